package services

import (
	"time"

	"github.com/Majd04/StepChallenge/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Local notification kinds.
const (
	KindReminder     = "reminder"
	KindGoalReached  = "goal_reached"
	KindOvertaken    = "overtaken"
	KindRankUp       = "rank_up"
	KindWeeklyDigest = "weekly_digest"
)

// Notifier fans one notification out three ways: a persisted Alert row for
// the in-app feed, a frame to the user's live sockets, and an SNS push to
// registered devices. Every leg is best-effort.
type Notifier struct {
	db   *gorm.DB
	hub  *RealtimeHub
	push *PushService
	log  *zap.SugaredLogger
}

func NewNotifier(db *gorm.DB, hub *RealtimeHub, push *PushService, log *zap.SugaredLogger) *Notifier {
	return &Notifier{db: db, hub: hub, push: push, log: log}
}

func (n *Notifier) Notify(userID, kind, title, message string) {
	notificationsTotal.WithLabelValues(kind).Inc()

	a := &models.Alert{UserID: userID, Kind: kind, Message: message, CreatedAt: time.Now()}
	if err := n.db.Create(a).Error; err != nil {
		n.log.Warnw("failed to persist alert", "user", userID, "kind", kind, "err", err)
	}

	if n.hub != nil {
		n.hub.BroadcastToUser(userID, map[string]any{
			"kind":  "alert.created",
			"alert": a,
		})
	}
	if n.push != nil {
		n.push.PushToUser(userID, title, message, map[string]string{"kind": kind})
	}
}
