package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the account row plus the profile aggregates shown on the profile
// screen. TotalSteps/WeeklySteps/MonthlySteps are overwritten wholesale by
// the sync loop on each tick; they are eventually consistent with the sum of
// ActivityRecords, never incrementally maintained.
type User struct {
	gorm.Model
	UserID      string `gorm:"uniqueIndex;size:32;not null"` // public handle, used as document id
	Email       string `gorm:"uniqueIndex;not null"`
	Password    string `gorm:"not null"`
	DisplayName string
	PhotoURL    string

	DailyStepGoal int `gorm:"default:10000"`
	TotalSteps    int64
	WeeklySteps   int64
	MonthlySteps  int64

	MFAEnabled    bool
	MFACode       string
	ResetToken    string
	ResetTokenExp time.Time
	Disabled      bool
}
