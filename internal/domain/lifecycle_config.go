package domain

import "time"

const LifecycleConfigID = 1

type LifecycleConfig struct {
	ID                  int
	TakeTimeoutDays     int
	OrderTimeoutMinutes int
	UpdatedAt           time.Time
}

// ConfirmCutoff returns the instant before which a shipped order becomes
// eligible for automatic confirmation: the start of now's day minus the
// configured number of days.
func (c LifecycleConfig) ConfirmCutoff(now time.Time) time.Time {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return startOfDay.AddDate(0, 0, -c.TakeTimeoutDays)
}
