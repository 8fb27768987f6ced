package infrastructure

import (
	"fmt"

	"github.com/yourusername/pulldown-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteFaultRepository implements FaultRepository using SQLite
type SQLiteFaultRepository struct {
	db *gorm.DB
}

// NewSQLiteFaultRepository creates a new SQLite repository
func NewSQLiteFaultRepository(dbPath string) (*SQLiteFaultRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Fault{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteFaultRepository{db: db}, nil
}

// Create stores a fault
func (r *SQLiteFaultRepository) Create(fault *domain.Fault) error {
	return r.db.Create(fault).Error
}

// FindRecent returns the newest faults first
func (r *SQLiteFaultRepository) FindRecent(limit int) ([]*domain.Fault, error) {
	var faults []*domain.Fault
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&faults).Error
	return faults, err
}

// FindByKind returns faults of one kind, newest first
func (r *SQLiteFaultRepository) FindByKind(kind domain.FaultKind, limit int) ([]*domain.Fault, error) {
	var faults []*domain.Fault
	query := r.db.Where("kind = ?", kind).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&faults).Error
	return faults, err
}

// GetStats returns fault counts by kind
func (r *SQLiteFaultRepository) GetStats() (*domain.FaultStats, error) {
	kindCounts := []struct {
		Kind  domain.FaultKind
		Count int64
	}{}

	if err := r.db.Model(&domain.Fault{}).
		Select("kind, count(*) as count").
		Group("kind").
		Scan(&kindCounts).Error; err != nil {
		return nil, err
	}

	stats := &domain.FaultStats{}
	for _, kc := range kindCounts {
		stats.Add(kc.Kind, kc.Count)
	}
	return stats, nil
}

// Close closes the database connection
func (r *SQLiteFaultRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
