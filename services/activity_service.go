package services

import (
	"time"

	"github.com/Majd04/StepChallenge/config"
	"github.com/Majd04/StepChallenge/models"

	"gorm.io/gorm"
)

// DayKey formats t as the ISO day string used to key activity records.
func DayKey(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02")
}

// UpsertActivityRecord writes the (user, date) record, deriving RecordID.
// A write always clears SyncedToCloud so the next sync tick pushes it.
func UpsertActivityRecord(userID, date string, steps int, distanceMeters, caloriesBurned float64, goalReached bool) error {
	rec := models.ActivityRecord{
		UserID: userID,
		Date:   date,
	}

	// Upsert by (user_id, date). Assign takes a map so zero values (steps 0,
	// the cleared sync flag) still overwrite an existing row.
	return config.DB.
		Where("user_id = ? AND date = ?", userID, date).
		Assign(map[string]any{
			"record_id":       models.ActivityRecordID(userID, date),
			"steps":           steps,
			"distance_meters": distanceMeters,
			"calories_burned": caloriesBurned,
			"goal_reached":    goalReached,
			"synced_to_cloud": false,
			"last_updated":    time.Now(),
		}).
		FirstOrCreate(&rec).Error
}

// GetActivityRecord returns the record for (user, date), or nil when the day
// has no data yet.
func GetActivityRecord(userID, date string) (*models.ActivityRecord, error) {
	var rec models.ActivityRecord
	err := config.DB.
		Where("user_id = ? AND date = ?", userID, date).
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// RangeActivityRecords returns the user's records with start <= date <= end,
// ascending by date.
func RangeActivityRecords(userID, start, end string) ([]models.ActivityRecord, error) {
	var recs []models.ActivityRecord
	err := config.DB.
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Order("date ASC").
		Find(&recs).Error
	return recs, err
}

// UnsyncedActivityRecords returns the user's records not yet mirrored.
func UnsyncedActivityRecords(userID string) ([]models.ActivityRecord, error) {
	var recs []models.ActivityRecord
	err := config.DB.
		Where("user_id = ? AND synced_to_cloud = ?", userID, false).
		Order("date ASC").
		Find(&recs).Error
	return recs, err
}

// MarkActivitySynced flags the given record ids as mirrored.
func MarkActivitySynced(recordIDs []string) error {
	if len(recordIDs) == 0 {
		return nil
	}
	return config.DB.Model(&models.ActivityRecord{}).
		Where("record_id IN ?", recordIDs).
		Update("synced_to_cloud", true).Error
}

// SumStepsRange re-sums steps over [start, end]. The sync loop calls this
// with the full weekly/monthly window every tick rather than accumulating
// incrementally.
func SumStepsRange(userID, start, end string) (int64, error) {
	recs, err := RangeActivityRecords(userID, start, end)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range recs {
		total += int64(r.Steps)
	}
	return total, nil
}

// SumStepsAll re-sums the user's entire history for the profile total.
func SumStepsAll(userID string) (int64, error) {
	var recs []models.ActivityRecord
	if err := config.DB.Where("user_id = ?", userID).Find(&recs).Error; err != nil {
		return 0, err
	}
	var total int64
	for _, r := range recs {
		total += int64(r.Steps)
	}
	return total, nil
}
