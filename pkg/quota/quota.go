package quota

import (
	"errors"
	"log"
	"time"

	"github.com/softvence-omega/wellness-backend-sub000/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Metered counter kinds.
const (
	CounterPrompts  = "prompts"
	CounterDocScans = "doc_scans"
)

// Counters lists every metered resource, in reporting order.
var Counters = []string{CounterPrompts, CounterDocScans}

// Limits holds per-tier ceilings for each counter kind.
type Limits struct {
	Prompts  int
	DocScans int
}

func (l Limits) ceiling(counter string) int {
	switch counter {
	case CounterPrompts:
		return l.Prompts
	case CounterDocScans:
		return l.DocScans
	default:
		return 0
	}
}

// Usage is a read-only snapshot of one counter.
type Usage struct {
	Used    int `json:"used"`
	Ceiling int `json:"ceiling"`
}

// Ledger meters account usage against subscription entitlements. The
// increment is a single conditional UPDATE at the storage layer, so it
// stays correct across concurrent requests and across replicas.
type Ledger struct {
	db    *gorm.DB
	tiers map[string]Limits
	now   func() time.Time
}

// NewLedger builds a ledger. tiers maps subscription tier names to
// ceilings; accounts without a subscription row fall back to the free
// tier rather than erroring.
func NewLedger(db *gorm.DB, tiers map[string]Limits) *Ledger {
	return &Ledger{db: db, tiers: tiers, now: time.Now}
}

// periodKey is the reset/epoch marker: counters are scoped to a
// calendar month, so a billing rollover naturally starts fresh rows.
func (l *Ledger) periodKey() string {
	return l.now().UTC().Format("2006-01")
}

func (l *Ledger) limitsFor(accountID uint) Limits {
	tier := models.TierFree
	var sub models.Subscription
	err := l.db.Where("account_id = ?", accountID).First(&sub).Error
	if err == nil {
		tier = sub.Tier
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[quota] subscription lookup failed for account %d: %v", accountID, err)
	}
	limits, ok := l.tiers[tier]
	if !ok {
		limits = l.tiers[models.TierFree]
	}
	return limits
}

// TryIncrement consumes one unit of the counter for the account.
// It returns false when the ceiling is reached. Concurrent callers for
// the same account and counter never both succeed past the ceiling:
// the row is bumped with "used = used + 1 WHERE used < ?" against the
// freshly resolved ceiling and the affected-row count decides. Binding
// the ceiling per call means a mid-period tier change takes effect on
// the next increment.
func (l *Ledger) TryIncrement(accountID uint, counter string) (bool, error) {
	ceiling := l.limitsFor(accountID).ceiling(counter)
	if ceiling <= 0 {
		return false, nil
	}
	period := l.periodKey()

	// Ensure the counter row exists; a concurrent creator winning the
	// unique index race is fine.
	row := models.QuotaUsage{
		AccountID: accountID,
		Counter:   counter,
		Period:    period,
		Ceiling:   ceiling,
	}
	if err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return false, err
	}

	res := l.db.Model(&models.QuotaUsage{}).
		Where("account_id = ? AND counter = ? AND period = ? AND used < ?",
			accountID, counter, period, ceiling).
		Updates(map[string]interface{}{
			"used":    gorm.Expr("used + 1"),
			"ceiling": ceiling,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetUsage returns the current-period usage for every counter kind.
// Counters without a row report zero used against the resolved ceiling.
func (l *Ledger) GetUsage(accountID uint) (map[string]Usage, error) {
	limits := l.limitsFor(accountID)
	period := l.periodKey()

	var rows []models.QuotaUsage
	if err := l.db.Where("account_id = ? AND period = ?", accountID, period).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]Usage, len(Counters))
	for _, counter := range Counters {
		out[counter] = Usage{Ceiling: limits.ceiling(counter)}
	}
	for _, row := range rows {
		// report against the resolved ceiling; the stored one may
		// predate a tier change
		out[row.Counter] = Usage{Used: row.Used, Ceiling: limits.ceiling(row.Counter)}
	}
	return out, nil
}

// ResetPeriod drops the account's counters that predate the supplied
// epoch. The billing collaborator calls this when a period rolls over
// early (e.g. on plan change). The delete is unscoped: a soft-deleted
// row would still occupy the unique index and block the fresh row's
// insert for the rest of the period.
func (l *Ledger) ResetPeriod(accountID uint, epoch time.Time) error {
	key := epoch.UTC().Format("2006-01")
	return l.db.Unscoped().
		Where("account_id = ? AND period < ?", accountID, key).
		Delete(&models.QuotaUsage{}).Error
}
