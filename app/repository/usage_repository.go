package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loglens/loglens/app/models"
)

// usageRepository implements the UsageRepository interface
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// AddUsage applies a batched counter increment to the subject's daily row
func (r *usageRepository) AddUsage(subject, day string, logs, recordings int64) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subject"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"logs":       gorm.Expr("logs + ?", logs),
			"recordings": gorm.Expr("recordings + ?", recordings),
		}),
	}).Create(&models.UsageStat{
		Subject:    subject,
		Day:        day,
		Logs:       logs,
		Recordings: recordings,
	}).Error
}

// GetDailyStats returns per-day captured log totals for the given range
func (r *usageRepository) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	var stats []models.DailyStats
	err := r.db.Model(&models.UsageStat{}).
		Select("day AS date, SUM(logs) AS count").
		Where("day BETWEEN ? AND ?", startDate.Format("2006-01-02"), endDate.Format("2006-01-02")).
		Group("day").
		Order("day").
		Scan(&stats).Error
	return stats, err
}
