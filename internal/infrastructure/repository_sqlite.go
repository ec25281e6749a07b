package infrastructure

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
)

// SQLiteHistoryRepository implements domain.HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&domain.DownloadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Create stores one retirement record
func (r *SQLiteHistoryRepository) Create(record *domain.DownloadRecord) error {
	return r.db.Create(record).Error
}

// FindRecent returns up to limit records, newest first
func (r *SQLiteHistoryRepository) FindRecent(limit int) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	err := r.db.Order("retired_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// CountByReason returns the number of records per retirement reason
func (r *SQLiteHistoryRepository) CountByReason() (map[domain.RetireReason]int64, error) {
	type reasonCount struct {
		Reason domain.RetireReason
		Count  int64
	}

	var counts []reasonCount
	err := r.db.Model(&domain.DownloadRecord{}).
		Select("reason, count(*) as count").
		Group("reason").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}

	result := make(map[domain.RetireReason]int64, len(counts))
	for _, c := range counts {
		result[c.Reason] = c.Count
	}
	return result, nil
}

// Close closes the underlying database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
