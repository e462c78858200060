package models

import "gorm.io/gorm"

// Subscription tiers. Rows are written by the billing system; this
// service only reads them to resolve quota ceilings.
const (
	TierFree = "free"
	TierPro  = "pro"
)

type Subscription struct {
	gorm.Model
	AccountID uint   `gorm:"uniqueIndex;not null"`
	Tier      string `gorm:"size:32;not null"`
}
