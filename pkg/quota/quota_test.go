package quota

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/softvence-omega/wellness-backend-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// sqlite allows one writer; a single pooled connection avoids
	// spurious busy errors in the concurrency tests
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.QuotaUsage{}))
	return db
}

func testTiers() map[string]Limits {
	return map[string]Limits{
		models.TierFree: {Prompts: 2, DocScans: 1},
		models.TierPro:  {Prompts: 100, DocScans: 50},
	}
}

func TestTryIncrement_DefaultsToFreeTier(t *testing.T) {
	l := NewLedger(testDB(t), testTiers())

	// no subscription row exists for account 1
	for i := 0; i < 2; i++ {
		allowed, err := l.TryIncrement(1, CounterPrompts)
		require.NoError(t, err)
		assert.True(t, allowed, "increment %d should be allowed", i+1)
	}

	allowed, err := l.TryIncrement(1, CounterPrompts)
	require.NoError(t, err)
	assert.False(t, allowed, "free ceiling of 2 must reject the third increment")
}

func TestTryIncrement_UsesSubscriptionTier(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.Subscription{AccountID: 7, Tier: models.TierPro}).Error)
	l := NewLedger(db, testTiers())

	for i := 0; i < 5; i++ {
		allowed, err := l.TryIncrement(7, CounterPrompts)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	usage, err := l.GetUsage(7)
	require.NoError(t, err)
	assert.Equal(t, Usage{Used: 5, Ceiling: 100}, usage[CounterPrompts])
}

func TestTryIncrement_UnknownTierFallsBackToFree(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.Subscription{AccountID: 3, Tier: "legacy-gold"}).Error)
	l := NewLedger(db, testTiers())

	allowed, err := l.TryIncrement(3, CounterDocScans)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.TryIncrement(3, CounterDocScans)
	require.NoError(t, err)
	assert.False(t, allowed, "free doc-scan ceiling is 1")
}

func TestTryIncrement_Atomicity(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.Subscription{AccountID: 9, Tier: models.TierPro}).Error)
	tiers := testTiers()
	tiers[models.TierPro] = Limits{Prompts: 10, DocScans: 1}
	l := NewLedger(db, tiers)

	const workers = 25
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := l.TryIncrement(9, CounterPrompts)
			assert.NoError(t, err)
			results <- allowed
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for allowed := range results {
		if allowed {
			granted++
		}
	}
	assert.Equal(t, 10, granted, "exactly ceiling increments may succeed")

	usage, err := l.GetUsage(9)
	require.NoError(t, err)
	assert.Equal(t, 10, usage[CounterPrompts].Used, "counter never exceeds its ceiling")
}

func TestGetUsage_ZeroWithoutRows(t *testing.T) {
	l := NewLedger(testDB(t), testTiers())

	usage, err := l.GetUsage(1)
	require.NoError(t, err)
	assert.Equal(t, Usage{Used: 0, Ceiling: 2}, usage[CounterPrompts])
	assert.Equal(t, Usage{Used: 0, Ceiling: 1}, usage[CounterDocScans])
}

func TestResetPeriod_DropsOldPeriods(t *testing.T) {
	db := testDB(t)
	l := NewLedger(db, testTiers())

	old := models.QuotaUsage{AccountID: 1, Counter: CounterPrompts, Period: "2006-01", Used: 2, Ceiling: 2}
	require.NoError(t, db.Create(&old).Error)

	allowed, err := l.TryIncrement(1, CounterPrompts)
	require.NoError(t, err)
	assert.True(t, allowed, "a stale period must not count against the current one")

	require.NoError(t, l.ResetPeriod(1, time.Now()))

	var count int64
	require.NoError(t, db.Model(&models.QuotaUsage{}).
		Where("account_id = ? AND period = ?", 1, "2006-01").Count(&count).Error)
	assert.Zero(t, count)

	usage, err := l.GetUsage(1)
	require.NoError(t, err)
	assert.Equal(t, 1, usage[CounterPrompts].Used)
}

func TestTryIncrement_AfterEarlyReset(t *testing.T) {
	db := testDB(t)
	l := NewLedger(db, testTiers())

	allowed, err := l.TryIncrement(1, CounterPrompts)
	require.NoError(t, err)
	require.True(t, allowed)

	// plan change rolls the period over early: the epoch is next month,
	// so the current row is swept
	require.NoError(t, l.ResetPeriod(1, time.Now().AddDate(0, 1, 0)))

	allowed, err = l.TryIncrement(1, CounterPrompts)
	require.NoError(t, err)
	assert.True(t, allowed, "after a reset the counter must start fresh, not lock out")

	usage, err := l.GetUsage(1)
	require.NoError(t, err)
	assert.Equal(t, 1, usage[CounterPrompts].Used)
}

func TestTryIncrement_TierUpgradeRaisesCeiling(t *testing.T) {
	db := testDB(t)
	l := NewLedger(db, testTiers())

	// exhaust the free ceiling of 2
	for i := 0; i < 2; i++ {
		allowed, err := l.TryIncrement(1, CounterPrompts)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := l.TryIncrement(1, CounterPrompts)
	require.NoError(t, err)
	require.False(t, allowed)

	// upgrading mid-period must take effect on the next increment
	require.NoError(t, db.Create(&models.Subscription{AccountID: 1, Tier: models.TierPro}).Error)

	allowed, err = l.TryIncrement(1, CounterPrompts)
	require.NoError(t, err)
	assert.True(t, allowed, "an upgraded tier raises the effective ceiling")

	usage, err := l.GetUsage(1)
	require.NoError(t, err)
	assert.Equal(t, Usage{Used: 3, Ceiling: 100}, usage[CounterPrompts])
}

func TestPeriodKeyTracksClock(t *testing.T) {
	l := NewLedger(testDB(t), testTiers())
	l.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	assert.Equal(t, "2026-08", l.periodKey())
}
