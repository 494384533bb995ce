package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Majd04/StepChallenge/config"
	"github.com/Majd04/StepChallenge/models"
	"github.com/Majd04/StepChallenge/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthSource is the slice of the health broker the sync loop reads.
type HealthSource interface {
	DaySnapshot(ctx context.Context, t time.Time) (HealthDaySnapshot, error)
	HasPermission() bool
}

// MirrorStore is the slice of the cloud mirror the sync loop writes.
type MirrorStore interface {
	UpsertUserDoc(ctx context.Context, doc UserDoc) error
	UpsertActivityDoc(ctx context.Context, doc ActivityDoc) error
}

// RankReader is the slice of the ranking engine the sync loop consults.
type RankReader interface {
	Rank(ctx context.Context, userID string, period models.Period) int
	StepsToRank(ctx context.Context, userID string, period models.Period, target int) (int64, error)
}

// AlertSink receives the loop's fire-and-forget notifications.
type AlertSink interface {
	Notify(userID, kind, title, message string)
}

// SyncService is the background polling loop: every interval it pulls fresh
// health data, persists it locally, mirrors it to the cloud, re-derives the
// weekly/monthly aggregates, and decides whether to notify. Every stage is
// best-effort; an error is logged and the loop moves on. No retry, no
// backoff.
type SyncService struct {
	db     *gorm.DB
	health HealthSource
	mirror MirrorStore
	ranks  RankReader
	alerts AlertSink
	log    *zap.SugaredLogger

	interval      time.Duration
	reminderStart int
	reminderEnd   int

	now        func() time.Time
	sendDigest func(to, name string, weeklySteps int64, rank int) error
}

func NewSyncService(db *gorm.DB, health HealthSource, mirror MirrorStore, ranks RankReader, alerts AlertSink, log *zap.SugaredLogger) *SyncService {
	start, end := config.ReminderWindow()
	return &SyncService{
		db:            db,
		health:        health,
		mirror:        mirror,
		ranks:         ranks,
		alerts:        alerts,
		log:           log,
		interval:      config.SyncInterval(),
		reminderStart: start,
		reminderEnd:   end,
		now:           time.Now,
		sendDigest:    utils.SendWeeklySummaryEmail,
	}
}

// Run ticks until ctx is cancelled. The first tick fires after one interval.
func (s *SyncService) Run(ctx context.Context) {
	s.log.Infow("sync loop started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sync loop stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one full pass over every active user, sequentially.
func (s *SyncService) Tick(ctx context.Context) {
	started := s.now()
	tickID := uuid.NewString()

	var users []models.User
	if err := s.db.Where("disabled = ?", false).Find(&users).Error; err != nil {
		s.log.Errorw("tick aborted: cannot list users", "tick", tickID, "err", err)
		syncStageErrorsTotal.WithLabelValues("list_users").Inc()
		return
	}

	for i := range users {
		s.syncUser(ctx, tickID, &users[i])
	}

	syncTicksTotal.Inc()
	syncTickDuration.Observe(time.Since(started).Seconds())
	s.log.Debugw("tick complete", "tick", tickID, "users", len(users), "took", time.Since(started))
}

func (s *SyncService) syncUser(ctx context.Context, tickID string, user *models.User) {
	now := s.now()
	today := DayKey(now)

	// 1. Health broker read. A broker outage degrades to zero values; the
	// permission flag is the only surface of a denial.
	snap, err := s.health.DaySnapshot(ctx, now)
	if err != nil {
		s.log.Warnw("health read degraded", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("health_read").Inc()
	}

	goalReached := user.DailyStepGoal > 0 && snap.Steps >= user.DailyStepGoal

	// 2. Persist local record. Skipped when the broker read failed outright,
	// so a transient outage does not clobber a day already recorded.
	if err == nil {
		if uerr := UpsertActivityRecord(user.UserID, today, snap.Steps, snap.DistanceMeters, snap.CaloriesBurned, goalReached); uerr != nil {
			s.log.Warnw("local persist failed", "tick", tickID, "user", user.UserID, "err", uerr)
			syncStageErrorsTotal.WithLabelValues("local_persist").Inc()
		}
	}

	// 3. Mirror unsynced day records.
	s.pushUnsynced(ctx, tickID, user)

	// 4. Re-derive aggregates over the full windows (no incremental
	// accumulation) and overwrite them locally and in the mirror.
	weekly, weeklyOK := s.refreshAggregates(ctx, tickID, user, now)

	// 5. Rank delta against the persisted last-known rank.
	state := s.loadState(user.UserID)
	steps := s.todaySteps(user.UserID, today, snap.Steps)
	s.checkRank(ctx, tickID, user, state)

	// 6. Evening reminder, then goal-reached, each at most once per day.
	s.checkReminder(user, state, steps, now, today)
	s.checkGoal(user, state, steps, today)

	// 7. Sunday-evening weekly digest mail. Skipped without latching when the
	// re-sum failed, so a degraded tick cannot mail a zero-step week and eat
	// that week's digest.
	if weeklyOK {
		s.checkDigest(user, state, weekly, now)
	}

	if err := s.db.Save(state).Error; err != nil {
		s.log.Warnw("sync state save failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("state_save").Inc()
	}
}

func (s *SyncService) pushUnsynced(ctx context.Context, tickID string, user *models.User) {
	recs, err := UnsyncedActivityRecords(user.UserID)
	if err != nil {
		s.log.Warnw("unsynced scan failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("unsynced_scan").Inc()
		return
	}

	var pushed []string
	for _, rec := range recs {
		doc := ActivityDoc{
			ID:             rec.RecordID,
			UserID:         rec.UserID,
			Date:           rec.Date,
			Steps:          rec.Steps,
			DistanceMeters: rec.DistanceMeters,
			CaloriesBurned: rec.CaloriesBurned,
			DisplayName:    user.DisplayName,
			PhotoURL:       user.PhotoURL,
		}
		if err := s.mirror.UpsertActivityDoc(ctx, doc); err != nil {
			s.log.Warnw("activity mirror push failed", "tick", tickID, "record", rec.RecordID, "err", err)
			syncStageErrorsTotal.WithLabelValues("mirror_activity").Inc()
			continue
		}
		pushed = append(pushed, rec.RecordID)
	}

	if err := MarkActivitySynced(pushed); err != nil {
		s.log.Warnw("mark-synced failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("mark_synced").Inc()
	}
}

func (s *SyncService) refreshAggregates(ctx context.Context, tickID string, user *models.User, now time.Time) (weekly int64, ok bool) {
	today := DayKey(now)
	weekStart := DayKey(models.PeriodWeekly.WindowStart(now))
	monthStart := DayKey(models.PeriodMonthly.WindowStart(now))

	weekly, err := SumStepsRange(user.UserID, weekStart, today)
	if err != nil {
		s.log.Warnw("weekly re-sum failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("aggregate").Inc()
		return 0, false
	}
	monthly, err := SumStepsRange(user.UserID, monthStart, today)
	if err != nil {
		s.log.Warnw("monthly re-sum failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("aggregate").Inc()
		return weekly, true
	}
	total, err := SumStepsAll(user.UserID)
	if err != nil {
		s.log.Warnw("total re-sum failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("aggregate").Inc()
		return weekly, true
	}

	user.WeeklySteps = weekly
	user.MonthlySteps = monthly
	user.TotalSteps = total
	if err := s.db.Model(&models.User{}).Where("user_id = ?", user.UserID).
		Updates(map[string]any{
			"weekly_steps":  weekly,
			"monthly_steps": monthly,
			"total_steps":   total,
		}).Error; err != nil {
		s.log.Warnw("aggregate persist failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("aggregate").Inc()
	}

	doc := UserDoc{
		ID:           user.UserID,
		DisplayName:  user.DisplayName,
		PhotoURL:     user.PhotoURL,
		TotalSteps:   total,
		WeeklySteps:  weekly,
		MonthlySteps: monthly,
		DailyGoal:    user.DailyStepGoal,
		LastUpdated:  now,
	}
	if err := s.mirror.UpsertUserDoc(ctx, doc); err != nil {
		s.log.Warnw("profile mirror push failed", "tick", tickID, "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("mirror_profile").Inc()
	}

	return weekly, true
}

func (s *SyncService) loadState(userID string) *models.SyncState {
	state := models.SyncState{UserID: userID}
	s.db.Where("user_id = ?", userID).FirstOrCreate(&state)
	return &state
}

// todaySteps prefers the locally persisted record so a degraded broker read
// does not report zero steps against the notification checks.
func (s *SyncService) todaySteps(userID, today string, fallback int) int {
	rec, err := GetActivityRecord(userID, today)
	if err != nil || rec == nil {
		return fallback
	}
	return rec.Steps
}

func (s *SyncService) checkRank(ctx context.Context, tickID string, user *models.User, state *models.SyncState) {
	newRank := s.ranks.Rank(ctx, user.UserID, models.PeriodWeekly)

	// 0 is the "unknown" sentinel on either side; no comparison then.
	if state.LastKnownRank > 0 && newRank > 0 && newRank != state.LastKnownRank {
		if newRank > state.LastKnownRank {
			msg := fmt.Sprintf("You dropped to #%d on the weekly leaderboard.", newRank)
			if needed, err := s.ranks.StepsToRank(ctx, user.UserID, models.PeriodWeekly, state.LastKnownRank); err == nil && needed > 0 {
				msg = fmt.Sprintf("You dropped to #%d — %d more steps to reclaim #%d.", newRank, needed, state.LastKnownRank)
			}
			s.alerts.Notify(user.UserID, KindOvertaken, "You've been overtaken!", msg)
		} else {
			s.alerts.Notify(user.UserID, KindRankUp, "Moving up!",
				fmt.Sprintf("You climbed to #%d on the weekly leaderboard.", newRank))
		}
	}

	if newRank == 0 {
		s.log.Debugw("rank unknown this tick", "tick", tickID, "user", user.UserID)
	}
	state.LastKnownRank = newRank
}

func (s *SyncService) checkReminder(user *models.User, state *models.SyncState, steps int, now time.Time, today string) {
	hour := now.Hour()
	if hour < s.reminderStart || hour >= s.reminderEnd {
		return
	}
	if user.DailyStepGoal <= 0 || steps >= user.DailyStepGoal {
		return
	}
	if state.ReminderSentDate == today {
		return
	}

	remaining := user.DailyStepGoal - steps
	s.alerts.Notify(user.UserID, KindReminder, "Almost there!",
		fmt.Sprintf("%d steps to go to hit today's goal of %d.", remaining, user.DailyStepGoal))
	state.ReminderSentDate = today
}

func (s *SyncService) checkGoal(user *models.User, state *models.SyncState, steps int, today string) {
	if user.DailyStepGoal <= 0 || steps < user.DailyStepGoal {
		return
	}
	if state.GoalNotifiedDate == today {
		return
	}

	s.alerts.Notify(user.UserID, KindGoalReached, "Goal reached!",
		fmt.Sprintf("You hit your daily goal of %d steps. Nice work!", user.DailyStepGoal))
	state.GoalNotifiedDate = today
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func (s *SyncService) checkDigest(user *models.User, state *models.SyncState, weekly int64, now time.Time) {
	if now.Weekday() != time.Sunday {
		return
	}
	hour := now.Hour()
	if hour < s.reminderStart || hour >= s.reminderEnd {
		return
	}
	week := weekKey(now)
	if state.DigestSentWeek == week {
		return
	}

	if err := s.sendDigest(user.Email, user.DisplayName, weekly, state.LastKnownRank); err != nil {
		s.log.Warnw("weekly digest failed", "user", user.UserID, "err", err)
		syncStageErrorsTotal.WithLabelValues("digest").Inc()
		return
	}
	notificationsTotal.WithLabelValues(KindWeeklyDigest).Inc()
	state.DigestSentWeek = week
}
