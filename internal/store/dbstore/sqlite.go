// Package dbstore implements store.Store on a SQLite database, one row per
// key.
package dbstore

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/yiblet/promptkeep/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// FileName is the database file created inside a scope's storage root.
const FileName = "storage.db"

// Writers start transactions with BEGIN IMMEDIATE so a read-modify-write
// holds the database write lock from its first read. Waiting on another
// process is bounded only by the busy timeout, which is set high enough to
// behave like the file backend's blocking lock.
const dsnParams = "?_txlock=immediate&_busy_timeout=600000&_journal_mode=WAL"

// SQLiteStore is a SQLite-backed implementation of store.Store
type SQLiteStore struct {
	db     *gorm.DB
	dbPath string
	logger hclog.Logger
}

var _ store.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed store at the specified path.
// It initializes the database schema when needed.
func NewSQLiteStore(dbPath string, log hclog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	db, err := gorm.Open(sqlite.Open(dbPath+dsnParams), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection per store keeps every statement of a transaction on
	// the connection that holds the write lock.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&DocumentModel{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		logger: log,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Get decodes the document for key into dst.
func (s *SQLiteStore) Get(key string, dst any) (store.Status, error) {
	doc, err := s.load(s.db, key)
	if err != nil {
		return store.StatusAbsent, err
	}
	return doc.Decode(dst)
}

// Set stores the document for key (upsert)
func (s *SQLiteStore) Set(key string, value any) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	return s.write(s.db, key, value)
}

// Delete removes the document for key
func (s *SQLiteStore) Delete(key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if err := s.db.Delete(&DocumentModel{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Update runs fn inside a write transaction.
func (s *SQLiteStore) Update(key string, fn store.UpdateFunc) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		doc, err := s.load(tx, key)
		if err != nil {
			return err
		}
		next, write, err := fn(doc)
		if err != nil || !write {
			return err
		}
		return s.write(tx, key, next)
	})
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) load(db *gorm.DB, key string) (store.Document, error) {
	if err := store.ValidateKey(key); err != nil {
		return store.Document{Key: key}, err
	}
	var model DocumentModel
	if err := db.First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.Document{Key: key}, nil
		}
		return store.Document{Key: key}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return store.Load(key, model.Data, s.logger), nil
}

func (s *SQLiteStore) write(db *gorm.DB, key string, value any) error {
	data, err := store.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	model := &DocumentModel{Key: key, Data: data}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
