package llmport

import "context"

// MockClient lets tests exercise the pipeline without a real provider.
type MockClient struct {
	Response string
	Err      error
	Calls    []string
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.Calls = append(m.Calls, userPrompt)
	return m.Response, m.Err
}
