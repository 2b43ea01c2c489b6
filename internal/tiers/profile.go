package tiers

import (
	"fmt"
	"strings"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
)

// ProfileManager owns people/<user_id>/{profile.md,preferences.md}. Below
// the configured interaction threshold it writes a template stub;
// content-bearing generation is triggered by the consolidation engine
// once a user crosses the threshold.
type ProfileManager struct {
	store     *fsstore.Store
	threshold int
}

func NewProfileManager(store *fsstore.Store, threshold int) *ProfileManager {
	if threshold <= 0 {
		threshold = 5
	}
	return &ProfileManager{store: store, threshold: threshold}
}

// EnsureStub writes the placeholder profile/preferences pair the first
// time a user is seen, so reconstruction always has something to read.
func (p *ProfileManager) EnsureStub(userID string, at time.Time) error {
	if p.store.Exists(p.store.ProfilePath(userID)) {
		return nil
	}
	stub := fmt.Sprintf("# Profile: %s\n\n_Not enough interactions yet to build a profile (threshold: %d)._\n", userID, p.threshold)
	if err := p.store.WriteFile(p.store.ProfilePath(userID), []byte(stub)); err != nil {
		return err
	}
	prefs := fmt.Sprintf("# Preferences: %s\n\n_No preferences learned yet._\n", userID)
	return p.store.WriteFile(p.store.PreferencesPath(userID), []byte(prefs))
}

// ShouldGenerate reports whether interactionCount has crossed the
// threshold at which a profile becomes worth generating.
func (p *ProfileManager) ShouldGenerate(interactionCount int) bool {
	return interactionCount >= p.threshold
}

// Write persists an LLM-generated profile and preferences pair.
func (p *ProfileManager) Write(profile domain.UserProfile) error {
	profileMD := fmt.Sprintf("# Profile: %s\n\n**Updated**: %s\n**Interactions**: %d\n\n%s\n",
		profile.UserID, profile.UpdatedAt.UTC().Format(time.RFC3339), profile.InteractionCount, profile.ProfileText)
	if err := p.store.WriteFile(p.store.ProfilePath(profile.UserID), []byte(profileMD)); err != nil {
		return err
	}
	prefsMD := fmt.Sprintf("# Preferences: %s\n\n**Updated**: %s\n\n%s\n",
		profile.UserID, profile.UpdatedAt.UTC().Format(time.RFC3339), profile.PreferencesText)
	return p.store.WriteFile(p.store.PreferencesPath(profile.UserID), []byte(prefsMD))
}

// Read returns the raw profile.md and preferences.md content for a user.
func (p *ProfileManager) Read(userID string) (profileMD, preferencesMD string, err error) {
	pd, err := p.store.ReadFile(p.store.ProfilePath(userID))
	if err != nil {
		return "", "", err
	}
	prefs, err := p.store.ReadFile(p.store.PreferencesPath(userID))
	if err != nil {
		return "", "", err
	}
	return string(pd), string(prefs), nil
}

// IsStub reports whether a user's profile.md is still the placeholder
// written by EnsureStub (no generation has happened yet).
func (p *ProfileManager) IsStub(userID string) (bool, error) {
	data, err := p.store.ReadFile(p.store.ProfilePath(userID))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(data), "Not enough interactions yet"), nil
}
