package models

import "time"

type Alert struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index;size:32"`
	Kind      string `gorm:"size:20"` // "reminder" | "goal_reached" | "overtaken" | "rank_up" | "weekly_digest"
	Message   string `gorm:"type:text"`
	CreatedAt time.Time
}
