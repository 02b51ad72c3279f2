package history

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"candymint/mint"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Store persists mint attempts. It is the orchestrator's Recorder.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&MintAttempt{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	log.Info("[HISTORY] Connected to history database")
	return NewStore(db), nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Record(ctx context.Context, attempt mint.Attempt) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history database not configured")
	}
	row := fromAttempt(attempt)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	log.Debugf("[HISTORY] Recorded %s attempt for %s", row.Kind, row.Wallet)
	return nil
}

// ListByWallet returns the newest attempts of a wallet first
func (s *Store) ListByWallet(ctx context.Context, wallet string, limit int) ([]MintAttempt, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history database not configured")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	var attempts []MintAttempt
	err := s.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("attempted_at DESC").
		Limit(limit).
		Find(&attempts).Error

	return attempts, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
