package models

import "gorm.io/gorm"

// QuotaUsage is one metered counter for one account within one billing
// period. Used never exceeds Ceiling; increments go through a single
// conditional UPDATE so concurrent requests cannot race past the limit.
type QuotaUsage struct {
	gorm.Model
	AccountID uint   `gorm:"not null;uniqueIndex:idx_account_counter_period"`
	Counter   string `gorm:"size:32;not null;uniqueIndex:idx_account_counter_period"`
	Period    string `gorm:"size:16;not null;uniqueIndex:idx_account_counter_period"`
	Used      int    `gorm:"not null;default:0"`
	Ceiling   int    `gorm:"not null"`
}
