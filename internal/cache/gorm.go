package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists entries in the cache_entries table. It works against
// any gorm dialect; production uses postgres, tests use in-memory sqlite.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate cache_entries: %w", err)
	}
	return &GormStore{db: db, logger: logger.Named("cache"), now: func() time.Time { return time.Now().UTC() }}, nil
}

func keyIs(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool) {
	var entry Entry
	err := s.db.WithContext(ctx).Where(keyIs(key)).Take(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	if entry.expired(s.now()) {
		if err := s.Invalidate(ctx, key); err != nil {
			s.logger.Warn("Failed to evict expired entry", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	if err := s.db.WithContext(ctx).Model(&Entry{}).Where(keyIs(key)).
		UpdateColumn("hit_count", gorm.Expr("hit_count + ?", 1)).Error; err != nil {
		s.logger.Warn("Failed to record cache hit", zap.String("key", key), zap.Error(err))
	}
	return entry.Value, true
}

func (s *GormStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	entry := Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_at", "expires_at", "hit_count"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Invalidate(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where(keyIs(key)).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Lookup returns the raw row without counting a hit.
func (s *GormStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	var entry Entry
	if err := s.db.WithContext(ctx).Where(keyIs(key)).Take(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
