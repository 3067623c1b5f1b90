// Package ha serializes schema migrations across server replicas. Postgres
// deployments use an advisory lock; sqlite and other dialects fall back to a
// lock table with stale-holder cleanup.
package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"gorm.io/gorm"
)

// MigrationLocker guards AutoMigrate so concurrent replicas never run schema
// changes at the same time.
type MigrationLocker interface {
	// WithLock runs fn while holding the migration lock, blocking until the
	// lock is acquired and releasing it when fn returns.
	WithLock(ctx context.Context, fn func() error) error
}

// NewMigrationLocker picks the locking strategy for the database dialect.
// A nil db returns a no-op locker.
func NewMigrationLocker(db *gorm.DB) MigrationLocker {
	if db == nil {
		return &noopMigrationLock{}
	}
	if db.Dialector.Name() == "postgres" {
		return &pgAdvisoryLock{
			db:     db,
			lockID: int64(crc32.ChecksumIEEE([]byte("grc-registry-migration"))),
		}
	}
	lock := &tableMigrationLock{db: db}
	// Create the lock table up front so the first WithLock never races the
	// table's own creation.
	_ = db.AutoMigrate(&migrationLockRecord{})
	return lock
}

type noopMigrationLock struct{}

func (n *noopMigrationLock) WithLock(_ context.Context, fn func() error) error {
	return fn()
}

type pgAdvisoryLock struct {
	db     *gorm.DB
	lockID int64
}

func (l *pgAdvisoryLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", l.lockID).Error; err != nil {
		return fmt.Errorf("acquire migration advisory lock: %w", err)
	}
	defer func() {
		_ = l.db.Exec("SELECT pg_advisory_unlock(?)", l.lockID).Error
	}()
	return fn()
}

type migrationLockRecord struct {
	ID       string    `gorm:"primaryKey;column:id"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by"`
}

func (migrationLockRecord) TableName() string { return "migration_lock" }

// tableMigrationLock claims a singleton row with insert-or-fail semantics.
// Locks older than staleLockAge are treated as crashed holders and cleared.
type tableMigrationLock struct {
	db *gorm.DB
}

func (l *tableMigrationLock) WithLock(ctx context.Context, fn func() error) error {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	const maxRetries = 30
	const retryInterval = 1 * time.Second
	const staleLockAge = 5 * time.Minute

	row := migrationLockRecord{ID: "migration", LockedBy: hostname}
	acquired := false
	for i := 0; i < maxRetries; i++ {
		l.db.WithContext(ctx).
			Where("id = ? AND locked_at < ?", "migration", time.Now().Add(-staleLockAge)).
			Delete(&migrationLockRecord{})

		row.LockedAt = time.Now()
		result := l.db.WithContext(ctx).Create(&row)
		if result.Error == nil {
			acquired = true
			break
		}
		if i == maxRetries-1 {
			return fmt.Errorf("acquire migration lock after %d retries: %w", maxRetries, result.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	if !acquired {
		return fmt.Errorf("acquire migration lock")
	}

	defer func() {
		l.db.Where("id = ?", "migration").Delete(&migrationLockRecord{})
	}()

	return fn()
}
