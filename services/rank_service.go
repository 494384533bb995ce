package services

import (
	"context"
	"errors"
	"time"

	"github.com/Majd04/StepChallenge/models"

	"go.uber.org/zap"
)

// ErrRankUnattainable is returned by StepsToRank when fewer than the target
// number of ranked records exist: the threshold is undefined, not zero.
var ErrRankUnattainable = errors.New("target rank exceeds ranked population")

// RankSource is the slice of the cloud mirror the ranking engine queries.
type RankSource interface {
	GetUserDoc(ctx context.Context, id string) (*UserDoc, error)
	GetActivityDoc(ctx context.Context, id string) (*ActivityDoc, error)
	CountUsersAbove(ctx context.Context, field string, value int64) (int, error)
	TopUsers(ctx context.Context, field string, limit int) ([]UserDoc, error)
	CountActivitiesAbove(ctx context.Context, date string, value int) (int, error)
	TopActivities(ctx context.Context, date string, limit int) ([]ActivityDoc, error)
}

// LeaderboardEntry is derived fresh from a ranked snapshot; it is never
// persisted.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	PhotoURL      string `json:"photo_url,omitempty"`
	Steps         int64  `json:"steps"`
	IsCurrentUser bool   `json:"is_current_user"`
}

type RankService struct {
	cloud RankSource
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewRankService(cloud RankSource, log *zap.SugaredLogger) *RankService {
	return &RankService{cloud: cloud, log: log, now: time.Now}
}

func (r *RankService) ownValue(ctx context.Context, userID string, period models.Period) (int64, error) {
	if period == models.PeriodDaily {
		doc, err := r.cloud.GetActivityDoc(ctx, models.ActivityRecordID(userID, DayKey(r.now())))
		if err != nil {
			return 0, err
		}
		if doc == nil {
			return 0, nil
		}
		return int64(doc.Steps), nil
	}

	doc, err := r.cloud.GetUserDoc(ctx, userID)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, nil
	}
	if period == models.PeriodMonthly {
		return doc.MonthlySteps, nil
	}
	return doc.WeeklySteps, nil
}

// Rank computes the user's 1-based rank for the period: the count of records
// whose value strictly exceeds the user's own, plus one. Any failure yields
// the sentinel 0, meaning "unknown", never first place.
func (r *RankService) Rank(ctx context.Context, userID string, period models.Period) int {
	own, err := r.ownValue(ctx, userID, period)
	if err != nil {
		r.log.Warnw("rank lookup failed reading own value", "user", userID, "period", period, "err", err)
		return 0
	}

	var above int
	if period == models.PeriodDaily {
		above, err = r.cloud.CountActivitiesAbove(ctx, DayKey(r.now()), int(own))
	} else {
		above, err = r.cloud.CountUsersAbove(ctx, period.Field(), own)
	}
	if err != nil {
		r.log.Warnw("rank count query failed", "user", userID, "period", period, "err", err)
		return 0
	}

	return above + 1
}

// StepsToRank returns how many more steps the user needs to strictly overtake
// the record currently holding the target rank. It returns 0 when the user is
// already at or above the threshold, and ErrRankUnattainable when fewer than
// target records exist. Ties at the threshold require the full +1 overtake.
func (r *RankService) StepsToRank(ctx context.Context, userID string, period models.Period, target int) (int64, error) {
	if target < 1 {
		return 0, errors.New("target rank must be >= 1")
	}

	var threshold int64
	if period == models.PeriodDaily {
		top, err := r.cloud.TopActivities(ctx, DayKey(r.now()), target)
		if err != nil {
			return 0, err
		}
		if len(top) < target {
			return 0, ErrRankUnattainable
		}
		threshold = int64(top[target-1].Steps)
	} else {
		top, err := r.cloud.TopUsers(ctx, period.Field(), target)
		if err != nil {
			return 0, err
		}
		if len(top) < target {
			return 0, ErrRankUnattainable
		}
		if period == models.PeriodMonthly {
			threshold = top[target-1].MonthlySteps
		} else {
			threshold = top[target-1].WeeklySteps
		}
	}

	own, err := r.ownValue(ctx, userID, period)
	if err != nil {
		return 0, err
	}

	if threshold > own {
		return threshold - own + 1, nil
	}
	return 0, nil
}

// Leaderboard assembles a one-shot snapshot for the period. Rank is the
// positional index in the descending snapshot.
func (r *RankService) Leaderboard(ctx context.Context, currentUserID string, period models.Period, limit int) ([]LeaderboardEntry, error) {
	entries := make([]LeaderboardEntry, 0, limit)

	if period == models.PeriodDaily {
		top, err := r.cloud.TopActivities(ctx, DayKey(r.now()), limit)
		if err != nil {
			return nil, err
		}
		for i, doc := range top {
			entries = append(entries, LeaderboardEntry{
				Rank:          i + 1,
				UserID:        doc.UserID,
				DisplayName:   doc.DisplayName,
				PhotoURL:      doc.PhotoURL,
				Steps:         int64(doc.Steps),
				IsCurrentUser: doc.UserID == currentUserID,
			})
		}
		return entries, nil
	}

	top, err := r.cloud.TopUsers(ctx, period.Field(), limit)
	if err != nil {
		return nil, err
	}
	for i, doc := range top {
		steps := doc.WeeklySteps
		if period == models.PeriodMonthly {
			steps = doc.MonthlySteps
		}
		entries = append(entries, LeaderboardEntry{
			Rank:          i + 1,
			UserID:        doc.ID,
			DisplayName:   doc.DisplayName,
			PhotoURL:      doc.PhotoURL,
			Steps:         steps,
			IsCurrentUser: doc.ID == currentUserID,
		})
	}
	return entries, nil
}
