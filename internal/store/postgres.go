package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// collectionRow: одна коллекция целиком, записи лежат в JSONB.
type collectionRow struct {
	Name      string          `gorm:"column:name;primaryKey"`
	LastID    int64           `gorm:"column:last_id;not null;default:0"`
	Records   json.RawMessage `gorm:"column:records;type:jsonb;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (collectionRow) TableName() string { return "collections" }

// PostgresBackend keeps collections in the "collections" table created by the
// migrations. Update serializes writers of one collection with a transaction
// scoped advisory lock, so several bot processes can share the database.
type PostgresBackend struct {
	db *gorm.DB
}

func NewPostgresBackend(db *gorm.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Read(ctx context.Context, name string) (Snapshot, bool, error) {
	return readRow(b.db.WithContext(ctx), name)
}

func (b *PostgresBackend) Update(ctx context.Context, name string, fn func(prev Snapshot, found bool) (Snapshot, error)) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockQuery(tx, name).Error; err != nil {
			return errors.Wrapf(ErrUnreadable, "lock %s: %v", name, err)
		}
		prev, found, err := readRow(tx, name)
		if err != nil {
			return err
		}
		next, err := fn(prev, found)
		if err != nil {
			return err
		}
		return writeRow(tx, name, next)
	})
}

// lockQuery держит блокировку до конца транзакции, в том числе для ещё не созданной строки.
func lockQuery(db *gorm.DB, name string) *gorm.DB {
	return db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", name)
}

func selectQuery(db *gorm.DB, name string, row *collectionRow) *gorm.DB {
	return db.Where("name = ?", name).Take(row)
}

func upsertQuery(db *gorm.DB, row *collectionRow) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_id", "records", "updated_at"}),
	}).Create(row)
}

func readRow(db *gorm.DB, name string) (Snapshot, bool, error) {
	var row collectionRow
	err := selectQuery(db, name, &row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrapf(ErrUnreadable, "read %s: %v", name, err)
	}
	return Snapshot{LastID: row.LastID, Records: row.Records}, true, nil
}

func writeRow(db *gorm.DB, name string, snap Snapshot) error {
	records := snap.Records
	if len(records) == 0 {
		records = json.RawMessage("[]")
	}
	row := collectionRow{
		Name:      name,
		LastID:    snap.LastID,
		Records:   records,
		UpdatedAt: time.Now().UTC(),
	}
	err := upsertQuery(db, &row).Error
	if err != nil {
		return errors.Wrapf(ErrSaveFailed, "write %s: %v", name, err)
	}
	return nil
}
