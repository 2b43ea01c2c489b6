package consolidation

import (
	"encoding/json"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
)

const (
	dailyInterval   = 24 * time.Hour
	weeklyInterval  = 7 * 24 * time.Hour
	monthlyInterval = 30 * 24 * time.Hour
)

// LoadSchedule reads .consolidation_schedule.json, initializing all
// three cadences to now if the file doesn't exist yet.
func LoadSchedule(store *fsstore.Store, now time.Time) (domain.ConsolidationSchedule, error) {
	data, err := store.ReadFile(store.ConsolidationSchedulePath())
	if err != nil {
		return domain.ConsolidationSchedule{}, err
	}
	if len(data) == 0 {
		return domain.ConsolidationSchedule{NextDaily: now, NextWeekly: now, NextMonthly: now}, nil
	}
	var s domain.ConsolidationSchedule
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.ConsolidationSchedule{}, err
	}
	return s, nil
}

// SaveSchedule persists the schedule.
func SaveSchedule(store *fsstore.Store, s domain.ConsolidationSchedule) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return store.WriteFile(store.ConsolidationSchedulePath(), data)
}

// Due returns the highest-cadence mode whose next_* timestamp has
// passed, so an overdue monthly run is never masked by a daily one
// firing first; "" means nothing is due.
func Due(s domain.ConsolidationSchedule, now time.Time) domain.ConsolidationMode {
	switch {
	case !s.NextMonthly.After(now):
		return domain.ModeMonthly
	case !s.NextWeekly.After(now):
		return domain.ModeWeekly
	case !s.NextDaily.After(now):
		return domain.ModeDaily
	default:
		return ""
	}
}

// Advance records a completed run and reschedules that cadence's next
// due time, leaving the other two cadences untouched.
func Advance(s domain.ConsolidationSchedule, mode domain.ConsolidationMode, now time.Time) domain.ConsolidationSchedule {
	switch mode {
	case domain.ModeDaily:
		s.LastDaily = &now
		s.NextDaily = now.Add(dailyInterval)
	case domain.ModeWeekly:
		s.LastWeekly = &now
		s.NextWeekly = now.Add(weeklyInterval)
	case domain.ModeMonthly:
		s.LastMonthly = &now
		s.NextMonthly = now.Add(monthlyInterval)
	}
	return s
}
