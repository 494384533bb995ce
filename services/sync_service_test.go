package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Majd04/StepChallenge/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeHealth struct {
	snap HealthDaySnapshot
	err  error
}

func (f *fakeHealth) DaySnapshot(context.Context, time.Time) (HealthDaySnapshot, error) {
	return f.snap, f.err
}
func (f *fakeHealth) HasPermission() bool { return f.err == nil }

type fakeMirror struct {
	userDocs     map[string]UserDoc
	activityDocs map[string]ActivityDoc
	err          error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{userDocs: map[string]UserDoc{}, activityDocs: map[string]ActivityDoc{}}
}

func (f *fakeMirror) UpsertUserDoc(_ context.Context, doc UserDoc) error {
	if f.err != nil {
		return f.err
	}
	f.userDocs[doc.ID] = doc
	return nil
}

func (f *fakeMirror) UpsertActivityDoc(_ context.Context, doc ActivityDoc) error {
	if f.err != nil {
		return f.err
	}
	f.activityDocs[doc.ID] = doc
	return nil
}

type fakeRanks struct {
	rank    int
	needed  int64
	stepErr error
}

func (f *fakeRanks) Rank(context.Context, string, models.Period) int { return f.rank }
func (f *fakeRanks) StepsToRank(context.Context, string, models.Period, int) (int64, error) {
	return f.needed, f.stepErr
}

type recordedAlert struct {
	userID, kind, message string
}

type fakeAlerts struct {
	sent []recordedAlert
}

func (f *fakeAlerts) Notify(userID, kind, _, message string) {
	f.sent = append(f.sent, recordedAlert{userID, kind, message})
}

func (f *fakeAlerts) countKind(kind string) int {
	n := 0
	for _, a := range f.sent {
		if a.kind == kind {
			n++
		}
	}
	return n
}

type syncFixture struct {
	db     *gorm.DB
	health *fakeHealth
	mirror *fakeMirror
	ranks  *fakeRanks
	alerts *fakeAlerts
	svc    *SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	f := &syncFixture{
		db:     setupTestDB(t),
		health: &fakeHealth{},
		mirror: newFakeMirror(),
		ranks:  &fakeRanks{},
		alerts: &fakeAlerts{},
	}
	f.svc = &SyncService{
		db:            f.db,
		health:        f.health,
		mirror:        f.mirror,
		ranks:         f.ranks,
		alerts:        f.alerts,
		log:           zap.NewNop().Sugar(),
		interval:      time.Minute,
		reminderStart: 18,
		reminderEnd:   21,
		now:           time.Now,
		sendDigest:    func(string, string, int64, int) error { return nil },
	}
	return f
}

func (f *syncFixture) at(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

func (f *syncFixture) addUser(t *testing.T, userID string, goal int) {
	t.Helper()
	err := f.db.Create(&models.User{
		UserID:        userID,
		Email:         userID + "@example.com",
		DisplayName:   userID,
		DailyStepGoal: goal,
	}).Error
	assert.NoError(t, err)
}

func (f *syncFixture) state(t *testing.T, userID string) models.SyncState {
	t.Helper()
	var state models.SyncState
	assert.NoError(t, f.db.Where("user_id = ?", userID).First(&state).Error)
	return state
}

var (
	noonWed    = time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)  // Wednesday
	eveningWed = time.Date(2026, 3, 4, 19, 0, 0, 0, time.Local)  // inside reminder window
	noonThu    = time.Date(2026, 3, 5, 12, 0, 0, 0, time.Local)
	eveningSun = time.Date(2026, 3, 8, 19, 30, 0, 0, time.Local) // Sunday evening
)

func TestGoalNotificationFiresOncePerDay(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 5000)
	f.health.snap = HealthDaySnapshot{Steps: 6000}
	f.at(noonWed)

	f.svc.Tick(context.Background())
	f.svc.Tick(context.Background())
	assert.Equal(t, 1, f.alerts.countKind(KindGoalReached))

	// Date rollover re-arms the flag.
	f.at(noonThu)
	f.svc.Tick(context.Background())
	assert.Equal(t, 2, f.alerts.countKind(KindGoalReached))

	state := f.state(t, "ayla42")
	assert.Equal(t, "2026-03-05", state.GoalNotifiedDate)
}

func TestReminderOnlyInsideEveningWindow(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)
	f.health.snap = HealthDaySnapshot{Steps: 3000}

	f.at(noonWed)
	f.svc.Tick(context.Background())
	assert.Equal(t, 0, f.alerts.countKind(KindReminder))

	f.at(eveningWed)
	f.svc.Tick(context.Background())
	assert.Equal(t, 1, f.alerts.countKind(KindReminder))

	// Same evening, no duplicate.
	f.at(eveningWed.Add(30 * time.Minute))
	f.svc.Tick(context.Background())
	assert.Equal(t, 1, f.alerts.countKind(KindReminder))

	assert.Equal(t, "2026-03-04", f.state(t, "ayla42").ReminderSentDate)
}

func TestNoReminderOnceGoalReached(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 5000)
	f.health.snap = HealthDaySnapshot{Steps: 7000}
	f.at(eveningWed)

	f.svc.Tick(context.Background())
	assert.Equal(t, 0, f.alerts.countKind(KindReminder))
	assert.Equal(t, 1, f.alerts.countKind(KindGoalReached))
}

func TestOvertakenNotificationIncludesStepsToReclaim(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)
	f.db.Create(&models.SyncState{UserID: "ayla42", LastKnownRank: 3})
	f.ranks.rank = 5
	f.ranks.needed = 1200
	f.at(noonWed)

	f.svc.Tick(context.Background())
	assert.Equal(t, 1, f.alerts.countKind(KindOvertaken))
	assert.Contains(t, f.alerts.sent[0].message, "1200")
	assert.Contains(t, f.alerts.sent[0].message, "#3")
	assert.Equal(t, 5, f.state(t, "ayla42").LastKnownRank)
}

func TestRankUpNotification(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)
	f.db.Create(&models.SyncState{UserID: "ayla42", LastKnownRank: 5})
	f.ranks.rank = 2
	f.at(noonWed)

	f.svc.Tick(context.Background())
	assert.Equal(t, 1, f.alerts.countKind(KindRankUp))
	assert.Equal(t, 0, f.alerts.countKind(KindOvertaken))
	assert.Equal(t, 2, f.state(t, "ayla42").LastKnownRank)
}

func TestUnknownRankSuppressesComparison(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)
	f.db.Create(&models.SyncState{UserID: "ayla42", LastKnownRank: 3})
	f.ranks.rank = 0 // mirror unreachable
	f.at(noonWed)

	f.svc.Tick(context.Background())
	assert.Equal(t, 0, f.alerts.countKind(KindOvertaken))
	assert.Equal(t, 0, f.alerts.countKind(KindRankUp))
	// The sentinel is stored; a later recovery compares against 0 and stays quiet.
	assert.Equal(t, 0, f.state(t, "ayla42").LastKnownRank)

	f.ranks.rank = 7
	f.svc.Tick(context.Background())
	assert.Equal(t, 0, f.alerts.countKind(KindOvertaken))
	assert.Equal(t, 7, f.state(t, "ayla42").LastKnownRank)
}

func TestWeeklyAggregateReSummedAndMirrored(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)

	// Mon and Tue already on record; Wednesday's snapshot arrives this tick.
	assert.NoError(t, UpsertActivityRecord("ayla42", "2026-03-02", 1000, 0, 0, false))
	assert.NoError(t, UpsertActivityRecord("ayla42", "2026-03-03", 2000, 0, 0, false))
	f.health.snap = HealthDaySnapshot{Steps: 3000}
	f.at(noonWed)

	f.svc.Tick(context.Background())

	var user models.User
	assert.NoError(t, f.db.Where("user_id = ?", "ayla42").First(&user).Error)
	assert.EqualValues(t, 6000, user.WeeklySteps)
	assert.EqualValues(t, 6000, user.MonthlySteps)
	assert.EqualValues(t, 6000, user.TotalSteps)

	doc, ok := f.mirror.userDocs["ayla42"]
	assert.True(t, ok)
	assert.EqualValues(t, 6000, doc.WeeklySteps)

	// All three day records made it to the mirror and are flagged synced.
	assert.Len(t, f.mirror.activityDocs, 3)
	recs, err := UnsyncedActivityRecords("ayla42")
	assert.NoError(t, err)
	assert.Len(t, recs, 0)
}

func TestBrokerOutageKeepsRecordedDay(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 3000)
	assert.NoError(t, UpsertActivityRecord("ayla42", "2026-03-04", 4000, 0, 0, true))
	f.health.err = errors.New("broker unreachable")
	f.at(noonWed)

	f.svc.Tick(context.Background())

	// The recorded day survives the outage...
	rec, err := GetActivityRecord("ayla42", "2026-03-04")
	assert.NoError(t, err)
	assert.Equal(t, 4000, rec.Steps)
	// ...and the notification checks see the recorded value, not zero.
	assert.Equal(t, 1, f.alerts.countKind(KindGoalReached))
}

func TestMirrorOutageLeavesRecordsUnsynced(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)
	f.health.snap = HealthDaySnapshot{Steps: 2500}
	f.mirror.err = errors.New("mirror down")
	f.at(noonWed)

	f.svc.Tick(context.Background())

	recs, err := UnsyncedActivityRecords("ayla42")
	assert.NoError(t, err)
	assert.Len(t, recs, 1)

	// Mirror recovers; the next tick drains the backlog.
	f.mirror.err = nil
	f.svc.Tick(context.Background())
	recs, err = UnsyncedActivityRecords("ayla42")
	assert.NoError(t, err)
	assert.Len(t, recs, 0)
	assert.Len(t, f.mirror.activityDocs, 1)
}

func TestWeeklyDigestSundayEveningOnce(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)
	f.health.snap = HealthDaySnapshot{Steps: 1000}

	var digests int
	var digestSteps int64
	f.svc.sendDigest = func(_, _ string, weekly int64, _ int) error {
		digests++
		digestSteps = weekly
		return nil
	}

	// Saturday evening: no digest.
	f.at(time.Date(2026, 3, 7, 19, 0, 0, 0, time.Local))
	f.svc.Tick(context.Background())
	assert.Equal(t, 0, digests)

	f.at(eveningSun)
	f.svc.Tick(context.Background())
	f.svc.Tick(context.Background())
	assert.Equal(t, 1, digests)
	assert.EqualValues(t, 2000, digestSteps) // Saturday's 1000 + Sunday's 1000

	state := f.state(t, "ayla42")
	assert.NotEmpty(t, state.DigestSentWeek)
}

func TestDigestSkippedWhenAggregateFails(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 10000)
	f.health.snap = HealthDaySnapshot{Steps: 1000}

	var digests int
	var digestSteps int64
	f.svc.sendDigest = func(_, _ string, weekly int64, _ int) error {
		digests++
		digestSteps = weekly
		return nil
	}

	// Take the store out from under the re-sum.
	assert.NoError(t, f.db.Migrator().DropTable(&models.ActivityRecord{}))

	f.at(eveningSun)
	f.svc.Tick(context.Background())

	// No zero-step digest, and the week is not latched as sent.
	assert.Equal(t, 0, digests)
	assert.Empty(t, f.state(t, "ayla42").DigestSentWeek)

	// Store recovers; the same week's digest still goes out.
	assert.NoError(t, f.db.Migrator().CreateTable(&models.ActivityRecord{}))
	f.svc.Tick(context.Background())
	assert.Equal(t, 1, digests)
	assert.EqualValues(t, 1000, digestSteps)
	assert.NotEmpty(t, f.state(t, "ayla42").DigestSentWeek)
}

func TestDisabledUsersSkipped(t *testing.T) {
	f := newSyncFixture(t)
	f.addUser(t, "ayla42", 1000)
	assert.NoError(t, f.db.Model(&models.User{}).Where("user_id = ?", "ayla42").
		Update("disabled", true).Error)
	f.health.snap = HealthDaySnapshot{Steps: 5000}
	f.at(noonWed)

	f.svc.Tick(context.Background())

	rec, err := GetActivityRecord("ayla42", "2026-03-04")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, f.alerts.sent)
}
