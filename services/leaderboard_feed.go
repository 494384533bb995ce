package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LiveSource opens ordered push subscriptions on the cloud mirror.
type LiveSource interface {
	SubscribeTop(collection, field string, limit int) (*LiveSubscription, error)
}

// RunLeaderboardFeed republishes the cloud mirror's live weekly ranking onto
// the realtime hub. Each pushed frame is a full snapshot; rank is the
// positional index, recomputed on every frame. The subscription is re-opened
// after a delay if the stream drops, and torn down when ctx ends.
var leaderboardReconnectDelay = 30 * time.Second

func RunLeaderboardFeed(ctx context.Context, cloud LiveSource, hub *RealtimeHub, limit int, log *zap.SugaredLogger) {
	for {
		if ctx.Err() != nil {
			return
		}

		sub, err := cloud.SubscribeTop("users", "weeklySteps", limit)
		if err != nil {
			log.Warnw("leaderboard subscription failed", "err", err)
			if !sleepOrDone(ctx, leaderboardReconnectDelay) {
				return
			}
			continue
		}

		pump(ctx, sub, hub)
		sub.Close()

		// A stream that dies right after a successful dial gets the same
		// delay, so a half-up mirror is not hammered in a tight loop.
		if !sleepOrDone(ctx, leaderboardReconnectDelay) {
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func pump(ctx context.Context, sub *LiveSubscription, hub *RealtimeHub) {
	for {
		select {
		case <-ctx.Done():
			return
		case docs, ok := <-sub.Frames():
			if !ok {
				return
			}
			entries := make([]LeaderboardEntry, 0, len(docs))
			for i, d := range docs {
				entries = append(entries, LeaderboardEntry{
					Rank:        i + 1,
					UserID:      d.UserID,
					DisplayName: d.DisplayName,
					PhotoURL:    d.PhotoURL,
					Steps:       d.Value,
				})
			}
			hub.BroadcastAll(map[string]any{
				"kind":    "leaderboard.updated",
				"period":  "weekly",
				"entries": entries,
			})
		}
	}
}
