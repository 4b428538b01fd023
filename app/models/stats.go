package models

import "time"

// DailyStats represents aggregate counts for a single day
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UsageStat is the persisted daily usage row flushed from the Redis
// counters. Subject is a user ID or installation ID.
type UsageStat struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Subject    string    `gorm:"type:varchar(100);not null;index:ux_usage_stats_subject_day,unique,priority:1" json:"subject"`
	Day        string    `gorm:"type:char(10);not null;index:ux_usage_stats_subject_day,unique,priority:2" json:"day"` // YYYY-MM-DD
	Logs       int64     `gorm:"default:0" json:"logs"`
	Recordings int64     `gorm:"default:0" json:"recordings"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
