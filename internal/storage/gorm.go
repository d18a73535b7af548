package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Blob is one row of the progress_blobs table.
type Blob struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte
	UpdatedAt time.Time
}

func (Blob) TableName() string {
	return "progress_blobs"
}

// GormStore keeps blobs in a SQL table through gorm.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(path string) (*GormStore, error) {
	if path == "" {
		return nil, errors.New("storage: sqlite backend requires a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}
	return NewGormStore(sqlite.Open(path))
}

// OpenPostgres connects to a PostgreSQL database.
func OpenPostgres(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("storage: postgres backend requires a DSN")
	}
	return NewGormStore(postgres.Open(dsn))
}

// NewGormStore opens dialector and migrates the blob table.
func NewGormStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var b Blob
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %q: %w", key, err)
	}
	return b.Value, nil
}

func (s *GormStore) Put(ctx context.Context, key string, value []byte) error {
	b := Blob{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&b).Error
	if err != nil {
		return fmt.Errorf("storage: put %q: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&Blob{}).Error; err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
