// Package repo implements the data persistence layer for service orders,
// backed by GORM. This file provides repository functions for the
// ServiceOrder model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/assistec/wpp-os-gateway/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateOrder inserts a new pending ServiceOrder carrying the given payload
// and returns the persisted record with its store-assigned id.
func CreateOrder(ctx context.Context, db *gorm.DB, payload domain.OrderPayload) (*domain.ServiceOrder, error) {
	data, err := payload.Encode()
	if err != nil {
		return nil, err
	}
	o := &domain.ServiceOrder{
		DataJSON:  data,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// MarkOpen transitions the record to status "aberta" and sets the external
// order identifier, in a single transactional update. If no rows are
// affected (record missing), it returns ErrNotFound.
func MarkOpen(ctx context.Context, db *gorm.DB, id uint, externalID string) error {
	res := db.WithContext(ctx).
		Model(&domain.ServiceOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": domain.StatusOpen,
			"id_os":  externalID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder removes the record with the given id. Deleting a record that
// does not exist is not an error; compensation must be idempotent.
func DeleteOrder(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Delete(&domain.ServiceOrder{}, id).Error
}

// FindConflicting returns every record that can conflict with a new
// submission: all "pendente" records, plus "aberta" records created within
// openWindow of now. An openWindow of 0 disables the open-recency branch.
//
// The caller decides whether any returned record actually conflicts by
// comparing payload correlation identifiers.
func FindConflicting(ctx context.Context, db *gorm.DB, now time.Time, openWindow time.Duration) ([]domain.ServiceOrder, error) {
	q := db.WithContext(ctx).Model(&domain.ServiceOrder{})
	if openWindow > 0 {
		q = q.Where("status = ? OR (status = ? AND created_at >= ?)",
			domain.StatusPending, domain.StatusOpen, now.Add(-openWindow))
	} else {
		q = q.Where("status = ?", domain.StatusPending)
	}
	var out []domain.ServiceOrder
	err := q.Find(&out).Error
	return out, err
}

// ListStalePending returns "pendente" records created before cutoff. Used by
// the reconciliation sweep to clean up orphans left behind when compensation
// itself failed.
func ListStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.ServiceOrder, error) {
	var out []domain.ServiceOrder
	err := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.StatusPending, cutoff).
		Find(&out).Error
	return out, err
}

// CountOrdersByCSID returns how many records carry the given correlation
// identifier in their payload. Intended for tests and the reconciler's
// logging; the dedup gate uses FindConflicting.
func CountOrdersByCSID(ctx context.Context, db *gorm.DB, csID string) (int64, error) {
	var orders []domain.ServiceOrder
	if err := db.WithContext(ctx).Find(&orders).Error; err != nil {
		return 0, err
	}
	var n int64
	for i := range orders {
		p, err := orders[i].Payload()
		if err != nil {
			continue
		}
		if p.CSID == csID {
			n++
		}
	}
	return n, nil
}
