package models

import "gorm.io/gorm"

// SyncState is the sync loop's per-user scratchpad. The notification flags
// are date-valued rather than boolean: a flag counts as "set today" only when
// it equals today's date string, so date rollover resets them implicitly.
type SyncState struct {
	gorm.Model
	UserID           string `gorm:"uniqueIndex;size:32;not null"`
	LastKnownRank    int
	GoalNotifiedDate string `gorm:"size:10"`
	ReminderSentDate string `gorm:"size:10"`
	DigestSentWeek   string `gorm:"size:10"` // ISO week key, e.g. 2026-W34
}
