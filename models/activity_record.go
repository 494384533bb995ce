package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivityRecord holds one user's health data for one calendar day.
// RecordID is derived, not independent: it is always UserID + "_" + Date and
// doubles as the document id in the cloud mirror.
type ActivityRecord struct {
	gorm.Model
	RecordID       string `gorm:"uniqueIndex;size:64;not null"`
	UserID         string `gorm:"uniqueIndex:idx_activity_user_date;size:32;not null"`
	Date           string `gorm:"uniqueIndex:idx_activity_user_date;size:10;not null"` // YYYY-MM-DD
	Steps          int
	DistanceMeters float64
	CaloriesBurned float64
	GoalReached    bool
	SyncedToCloud  bool
	LastUpdated    time.Time
}

// ActivityRecordID derives the record/document id for a (user, day) pair.
func ActivityRecordID(userID, date string) string {
	return userID + "_" + date
}
