package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Majd04/StepChallenge/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeRankSource struct {
	userDocs     map[string]UserDoc
	activityDocs map[string]ActivityDoc
	topUsers     []UserDoc
	topActs      []ActivityDoc
	countAbove   int

	getErr   error
	countErr error
	topErr   error
}

func (f *fakeRankSource) GetUserDoc(_ context.Context, id string) (*UserDoc, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if doc, ok := f.userDocs[id]; ok {
		return &doc, nil
	}
	return nil, nil
}

func (f *fakeRankSource) GetActivityDoc(_ context.Context, id string) (*ActivityDoc, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if doc, ok := f.activityDocs[id]; ok {
		return &doc, nil
	}
	return nil, nil
}

func (f *fakeRankSource) CountUsersAbove(_ context.Context, _ string, _ int64) (int, error) {
	return f.countAbove, f.countErr
}

func (f *fakeRankSource) TopUsers(_ context.Context, _ string, limit int) ([]UserDoc, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	if len(f.topUsers) > limit {
		return f.topUsers[:limit], nil
	}
	return f.topUsers, nil
}

func (f *fakeRankSource) CountActivitiesAbove(_ context.Context, _ string, _ int) (int, error) {
	return f.countAbove, f.countErr
}

func (f *fakeRankSource) TopActivities(_ context.Context, _ string, limit int) ([]ActivityDoc, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	if len(f.topActs) > limit {
		return f.topActs[:limit], nil
	}
	return f.topActs, nil
}

func newTestRankService(src *fakeRankSource) *RankService {
	r := NewRankService(src, zap.NewNop().Sugar())
	r.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local) }
	return r
}

func TestRankFirstPlaceWhenNoneAbove(t *testing.T) {
	src := &fakeRankSource{
		userDocs:   map[string]UserDoc{"ayla42": {ID: "ayla42", WeeklySteps: 6000}},
		countAbove: 0,
	}
	r := newTestRankService(src)

	assert.Equal(t, 1, r.Rank(context.Background(), "ayla42", models.PeriodWeekly))
}

func TestRankCountsStrictlyGreater(t *testing.T) {
	src := &fakeRankSource{
		userDocs:   map[string]UserDoc{"ayla42": {ID: "ayla42", WeeklySteps: 6000}},
		countAbove: 4,
	}
	r := newTestRankService(src)

	assert.Equal(t, 5, r.Rank(context.Background(), "ayla42", models.PeriodWeekly))
}

func TestRankFailureYieldsUnknownSentinel(t *testing.T) {
	r := newTestRankService(&fakeRankSource{getErr: errors.New("mirror down")})
	assert.Equal(t, 0, r.Rank(context.Background(), "ayla42", models.PeriodWeekly))

	r = newTestRankService(&fakeRankSource{
		userDocs: map[string]UserDoc{"ayla42": {ID: "ayla42"}},
		countErr: errors.New("mirror down"),
	})
	assert.Equal(t, 0, r.Rank(context.Background(), "ayla42", models.PeriodWeekly))
}

func TestRankDailyReadsTodayActivityDoc(t *testing.T) {
	src := &fakeRankSource{
		activityDocs: map[string]ActivityDoc{
			"ayla42_2026-03-04": {ID: "ayla42_2026-03-04", UserID: "ayla42", Steps: 3000},
		},
		countAbove: 2,
	}
	r := newTestRankService(src)

	assert.Equal(t, 3, r.Rank(context.Background(), "ayla42", models.PeriodDaily))
}

func TestStepsToRankRequiresStrictOvertake(t *testing.T) {
	src := &fakeRankSource{
		userDocs: map[string]UserDoc{"ayla42": {ID: "ayla42", WeeklySteps: 6000}},
		topUsers: []UserDoc{
			{ID: "bora7", WeeklySteps: 12000},
			{ID: "cato9", WeeklySteps: 9500},
			{ID: "dena1", WeeklySteps: 8000},
		},
	}
	r := newTestRankService(src)

	// Rank 3 holds 8000; overtaking needs 8000-6000+1.
	needed, err := r.StepsToRank(context.Background(), "ayla42", models.PeriodWeekly, 3)
	assert.NoError(t, err)
	assert.EqualValues(t, 2001, needed)

	// A tie at the threshold still needs the full +1.
	src.userDocs["ayla42"] = UserDoc{ID: "ayla42", WeeklySteps: 8000}
	needed, err = r.StepsToRank(context.Background(), "ayla42", models.PeriodWeekly, 3)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, needed)

	needed, err = r.StepsToRank(context.Background(), "ayla42", models.PeriodWeekly, 2)
	assert.NoError(t, err)
	assert.EqualValues(t, 1501, needed)
}

func TestStepsToRankAlreadyAboveThreshold(t *testing.T) {
	src := &fakeRankSource{
		userDocs: map[string]UserDoc{"ayla42": {ID: "ayla42", WeeklySteps: 10000}},
		topUsers: []UserDoc{
			{ID: "ayla42", WeeklySteps: 10000},
			{ID: "bora7", WeeklySteps: 9000},
		},
	}
	r := newTestRankService(src)

	needed, err := r.StepsToRank(context.Background(), "ayla42", models.PeriodWeekly, 2)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, needed)
}

func TestStepsToRankUnattainable(t *testing.T) {
	src := &fakeRankSource{
		userDocs: map[string]UserDoc{"ayla42": {ID: "ayla42", WeeklySteps: 6000}},
		topUsers: []UserDoc{{ID: "bora7", WeeklySteps: 12000}},
	}
	r := newTestRankService(src)

	_, err := r.StepsToRank(context.Background(), "ayla42", models.PeriodWeekly, 5)
	assert.ErrorIs(t, err, ErrRankUnattainable)
}

func TestLeaderboardMarksCurrentUser(t *testing.T) {
	src := &fakeRankSource{
		topUsers: []UserDoc{
			{ID: "bora7", DisplayName: "Bora", WeeklySteps: 12000},
			{ID: "ayla42", DisplayName: "Ayla", WeeklySteps: 6000},
		},
	}
	r := newTestRankService(src)

	entries, err := r.Leaderboard(context.Background(), "ayla42", models.PeriodWeekly, 10)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.False(t, entries[0].IsCurrentUser)
	assert.Equal(t, 2, entries[1].Rank)
	assert.True(t, entries[1].IsCurrentUser)
	assert.EqualValues(t, 6000, entries[1].Steps)
}

func TestLeaderboardMonthlyUsesMonthlyField(t *testing.T) {
	src := &fakeRankSource{
		topUsers: []UserDoc{{ID: "bora7", WeeklySteps: 100, MonthlySteps: 40000}},
	}
	r := newTestRankService(src)

	entries, err := r.Leaderboard(context.Background(), "x", models.PeriodMonthly, 10)
	assert.NoError(t, err)
	assert.EqualValues(t, 40000, entries[0].Steps)
}
