// Package services – OrderService
//
// This file implements the submission saga: deduplication gate, pending
// record creation, external ticketing call, and the finalizing status
// update, with a compensating delete when any step past creation fails.
// There is deliberately no end-to-end transaction; each local step is its
// own atomic operation and the external call sits between them.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/assistec/wpp-os-gateway/internal/domain"
	"github.com/assistec/wpp-os-gateway/internal/repo"
)

// OrderSubmitter is the external ticketing capability the saga calls in
// step 2. Implementations must honor ctx for cancellation and timeouts.
type OrderSubmitter interface {
	// CreateOrder submits the payload under the given record id and returns
	// the external order identifier.
	CreateOrder(ctx context.Context, recordID string, payload domain.OrderPayload) (string, error)
}

// OrderService owns the ServiceOrder lifecycle: it exclusively creates,
// transitions, and (on failure) deletes records. No other component mutates
// them.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Ticketing is the injected external ticketing collaborator.
	Ticketing OrderSubmitter
	// OpenWindow is the recency window for "aberta" records in the dedup
	// query; 0 disables that branch.
	OpenWindow time.Duration
	// Now is a seam for tests; defaults to time.Now when nil.
	Now func() time.Time
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, ticketing OrderSubmitter, openWindow time.Duration) *OrderService {
	return &OrderService{
		DB:         db,
		Ticketing:  ticketing,
		OpenWindow: openWindow,
		Now:        time.Now,
	}
}

// Submit runs the completed payload through the deduplication gate and the
// three-step saga.
//
// Returns:
//   - the finalized record ("aberta", external id set) on success;
//   - ErrDuplicateOrder when a conflicting record already carries the
//     payload's correlation id (no record created);
//   - an error wrapping ErrSubmissionFailed when the external call or the
//     finalize update failed (the pending record has been compensated away);
//   - the raw persistence error when the dedup query or the insert failed.
func (s *OrderService) Submit(ctx context.Context, payload domain.OrderPayload) (*domain.ServiceOrder, error) {
	now := s.now()

	// Deduplication gate. Not atomic with the insert below; callers serialize
	// per sender via the buffer's sender lock.
	dup, err := s.isDuplicate(ctx, payload.CSID, now)
	if err != nil {
		return nil, fmt.Errorf("dedup query: %w", err)
	}
	if dup {
		log.Info().Str("cs_id", payload.CSID).Msg("duplicate service order rejected")
		return nil, ErrDuplicateOrder
	}

	// Step 1: create the pending record.
	order, err := repo.CreateOrder(ctx, s.DB, payload)
	if err != nil {
		return nil, fmt.Errorf("create pending order: %w", err)
	}

	// Step 2: submit to the external ticketing API.
	externalID, err := s.Ticketing.CreateOrder(ctx, strconv.FormatUint(uint64(order.ID), 10), payload)
	if err != nil {
		s.compensate(ctx, order.ID)
		log.Error().Err(err).Uint("order_id", order.ID).Str("cs_id", payload.CSID).
			Msg("external submission failed")
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	// Step 3: finalize locally.
	if err := repo.MarkOpen(ctx, s.DB, order.ID, externalID); err != nil {
		s.compensate(ctx, order.ID)
		log.Error().Err(err).Uint("order_id", order.ID).Str("cs_id", payload.CSID).
			Msg("finalize update failed")
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	order.Status = domain.StatusOpen
	order.ExternalID = &externalID
	log.Info().Uint("order_id", order.ID).Str("id_os", externalID).Str("cs_id", payload.CSID).
		Msg("service order opened")
	return order, nil
}

// isDuplicate reports whether any conflicting record carries csID in its
// payload.
func (s *OrderService) isDuplicate(ctx context.Context, csID string, now time.Time) (bool, error) {
	candidates, err := repo.FindConflicting(ctx, s.DB, now, s.OpenWindow)
	if err != nil {
		return false, err
	}
	for i := range candidates {
		p, err := candidates[i].Payload()
		if err != nil {
			// A row we cannot decode cannot be matched; skip it rather than
			// block all submissions.
			log.Warn().Err(err).Uint("order_id", candidates[i].ID).Msg("undecodable order payload")
			continue
		}
		if p.CSID == csID {
			return true, nil
		}
	}
	return false, nil
}

// compensate deletes the pending record created in step 1. If the delete
// itself fails the orphan stays "pendente" and the reconciler sweeps it
// later.
func (s *OrderService) compensate(ctx context.Context, id uint) {
	if err := repo.DeleteOrder(ctx, s.DB, id); err != nil && !errors.Is(err, repo.ErrNotFound) {
		log.Error().Err(err).Uint("order_id", id).Msg("compensating delete failed, leaving pending orphan")
	}
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
