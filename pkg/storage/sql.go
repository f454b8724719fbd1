package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type snapshotRow struct {
	Namespace string    `gorm:"column:namespace;primaryKey"`
	Name      string    `gorm:"column:name;primaryKey"`
	Payload   string    `gorm:"column:payload"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (snapshotRow) TableName() string { return "state_snapshots" }

type receiptRow struct {
	Namespace   string    `gorm:"column:namespace;primaryKey"`
	Scope       string    `gorm:"column:scope;primaryKey"`
	ReferenceID string    `gorm:"column:reference_id;primaryKey"`
	ReceivedAt  time.Time `gorm:"column:received_at"`
}

func (receiptRow) TableName() string { return "callback_receipts" }

type txRunner interface {
	DB() *gorm.DB
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SQLStore persists snapshots in the state_snapshots table created by pkg/migrate.
type SQLStore struct {
	client    txRunner
	namespace string
	now       func() time.Time
}

func NewSQLStore(client txRunner, namespace string) (*SQLStore, error) {
	if client == nil {
		return nil, errors.New("db client is required")
	}
	if namespace == "" {
		return nil, errors.New("namespace is required")
	}
	return &SQLStore{client: client, namespace: namespace, now: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context, name string) ([]byte, error) {
	var row snapshotRow
	err := s.client.DB().WithContext(ctx).
		Where("namespace = ? AND name = ?", s.namespace, name).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return []byte(row.Payload), nil
}

func (s *SQLStore) Save(ctx context.Context, name string, payload []byte) error {
	row := snapshotRow{
		Namespace: s.namespace,
		Name:      name,
		Payload:   string(payload),
		UpdatedAt: s.now().UTC(),
	}
	err := s.client.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, name := range names {
			if err := tx.Where("namespace = ? AND name = ?", s.namespace, name).Delete(&snapshotRow{}).Error; err != nil {
				return fmt.Errorf("delete snapshot %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// MarkOnce inserts a receipt row. The ttl is not enforced for SQL storage;
// receipts are kept until Unmark.
func (s *SQLStore) MarkOnce(ctx context.Context, scope, referenceID string, ttl time.Duration) (bool, error) {
	if referenceID == "" {
		return false, errors.New("reference id is required")
	}
	row := receiptRow{
		Namespace:   s.namespace,
		Scope:       scope,
		ReferenceID: referenceID,
		ReceivedAt:  s.now().UTC(),
	}
	res := s.client.DB().WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("insert callback receipt: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *SQLStore) Unmark(ctx context.Context, scope, referenceID string) error {
	return s.client.DB().WithContext(ctx).
		Where("namespace = ? AND scope = ? AND reference_id = ?", s.namespace, scope, referenceID).
		Delete(&receiptRow{}).Error
}
