package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"signalforge/internal/models"
)

// PostgresStore persists run records with gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&models.RunRecord{}); err != nil {
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, record *models.RunRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create run %s: %w", record.ID, err)
	}
	return nil
}

func (s *PostgresStore) RecentSignalCount(ctx context.Context, windowHours int) (int, error) {
	var count int64
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	err := s.db.WithContext(ctx).
		Model(&models.RunRecord{}).
		Where("run_type = ? AND finished_at > ?", models.RunSignal, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count recent signals: %w", err)
	}
	return int(count), nil
}

func (s *PostgresStore) ActiveSymbols(ctx context.Context, windowHours int) (map[string]struct{}, error) {
	var symbols []string
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)
	err := s.db.WithContext(ctx).
		Model(&models.RunRecord{}).
		Where("run_type = ? AND finished_at > ? AND symbol <> ''", models.RunSignal, cutoff).
		Distinct().
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, fmt.Errorf("list active symbols: %w", err)
	}
	active := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		active[sym] = struct{}{}
	}
	return active, nil
}

func (s *PostgresStore) MarkDelivered(ctx context.Context, runID string, tier models.Tier, at time.Time) error {
	column, err := deliveryColumn(tier)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.RunRecord{}).
		Where("id = ?", runID).
		Update(column, at).Error; err != nil {
		return fmt.Errorf("mark %s delivered for run %s: %w", tier, runID, err)
	}
	return nil
}

func deliveryColumn(tier models.Tier) (string, error) {
	switch tier {
	case models.TierPremium:
		return "delivered_premium", nil
	case models.TierStandard:
		return "delivered_standard", nil
	case models.TierFree:
		return "delivered_free", nil
	default:
		return "", fmt.Errorf("unknown tier %q", tier)
	}
}
