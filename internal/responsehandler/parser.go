// Package responsehandler parses and validates the structured JSON an
// LLM is asked to return for every turn, tolerating the fenced,
// truncated, or malformed output real providers occasionally send.
package responsehandler

import (
	"regexp"
	"strings"

	gojson "github.com/goccy/go-json"

	"memoria/internal/domain"
)

var fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
var fenceEnd = regexp.MustCompile("(?is)\\s*```\\s*$")
var answerRegex = regexp.MustCompile(`(?is)"answer"\s*:\s*"((?:\\.|[^"\\])*)"`)

// CleanFences strips ```json ... ``` fences and a leading BOM.
func CleanFences(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "﻿")
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse attempts to decode raw LLM output into a StructuredResponse.
// Three JSON decoding attempts are tried in order; if all fail, the
// "answer" string is pulled out by regex, and failing that the raw text
// becomes the answer. Both fallbacks set Degraded, so a turn never loses
// the reply outright.
func Parse(raw string) domain.StructuredResponse {
	cleaned := CleanFences(raw)

	if obj := extractFirstJSONObject(cleaned); obj != "" {
		if resp, ok := tryUnmarshal(obj); ok {
			return resp
		}
	}
	if resp, ok := tryUnmarshal(cleaned); ok {
		return resp
	}
	if resp, ok := tryUnmarshal(raw); ok {
		return resp
	}

	if answer, ok := extractAnswerByRegex(cleaned); ok {
		return domain.StructuredResponse{Answer: answer, Degraded: true}
	}
	if answer, ok := extractAnswerByRegex(raw); ok {
		return domain.StructuredResponse{Answer: answer, Degraded: true}
	}

	return domain.StructuredResponse{Answer: strings.TrimSpace(raw), Degraded: true}
}

func tryUnmarshal(candidate string) (domain.StructuredResponse, bool) {
	var resp domain.StructuredResponse
	if err := gojson.Unmarshal([]byte(candidate), &resp); err != nil {
		return domain.StructuredResponse{}, false
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return domain.StructuredResponse{}, false
	}
	return resp, true
}

func extractAnswerByRegex(s string) (string, bool) {
	m := answerRegex.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	unq := unescapeJSONString(m[1])
	unq = strings.TrimSpace(unq)
	if unq == "" {
		return "", false
	}
	return unq, true
}

func unescapeJSONString(s string) string {
	var out string
	if err := gojson.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	replacer := strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\n`, "\n", `\r`, "\r", `\t`, "\t")
	return replacer.Replace(s)
}
