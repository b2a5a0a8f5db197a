package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/assistec/wpp-os-gateway/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orderrepo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ServiceOrder{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testPayload(cs string) domain.OrderPayload {
	return domain.OrderPayload{
		Nome:     "Ana",
		WhatsApp: "5511999",
		CSID:     cs,
		NumRota:  "R45",
	}
}

func TestCreateOrder_InsertsPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	o, err := CreateOrder(ctx, db, testPayload("CS1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID == 0 {
		t.Fatalf("expected store-assigned id")
	}
	if o.Status != domain.StatusPending {
		t.Fatalf("expected status %q, got %q", domain.StatusPending, o.Status)
	}
	if o.ExternalID != nil {
		t.Fatalf("new record must not carry an external id")
	}

	p, err := o.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.CSID != "CS1" {
		t.Fatalf("payload round trip lost cs_id: %+v", p)
	}
}

func TestMarkOpen_TransitionsAndSetsExternalID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	o, err := CreateOrder(ctx, db, testPayload("CS1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := MarkOpen(ctx, db, o.ID, "OS-77"); err != nil {
		t.Fatalf("mark open: %v", err)
	}

	var got domain.ServiceOrder
	if err := db.First(&got, o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.StatusOpen {
		t.Fatalf("expected status %q, got %q", domain.StatusOpen, got.Status)
	}
	if got.ExternalID == nil || *got.ExternalID != "OS-77" {
		t.Fatalf("external id not persisted: %v", got.ExternalID)
	}
}

func TestMarkOpen_MissingRecord(t *testing.T) {
	db := newTestDB(t)

	err := MarkOpen(context.Background(), db, 12345, "OS-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteOrder_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	o, err := CreateOrder(ctx, db, testPayload("CS1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := DeleteOrder(ctx, db, o.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := DeleteOrder(ctx, db, o.ID); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	if err := DeleteOrder(ctx, db, 99999); err != nil {
		t.Fatalf("deleting a record that never existed: %v", err)
	}
}

func TestFindConflicting_WindowSemantics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := func(status string, createdAt time.Time) uint {
		data, err := testPayload("CS1").Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		o := &domain.ServiceOrder{DataJSON: data, Status: status, CreatedAt: createdAt}
		if err := db.Create(o).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
		return o.ID
	}

	pending := seed(domain.StatusPending, now.Add(-48*time.Hour))
	recentOpen := seed(domain.StatusOpen, now.Add(-1*time.Hour))
	oldOpen := seed(domain.StatusOpen, now.Add(-48*time.Hour))

	got, err := FindConflicting(ctx, db, now, 24*time.Hour)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	ids := map[uint]bool{}
	for i := range got {
		ids[got[i].ID] = true
	}
	if !ids[pending] {
		t.Fatalf("pending record must always conflict, regardless of age")
	}
	if !ids[recentOpen] {
		t.Fatalf("open record inside the window must conflict")
	}
	if ids[oldOpen] {
		t.Fatalf("open record outside the window must not conflict")
	}

	// Window disabled: only pending records are candidates.
	got, err = FindConflicting(ctx, db, now, 0)
	if err != nil {
		t.Fatalf("find (window off): %v", err)
	}
	if len(got) != 1 || got[0].ID != pending {
		t.Fatalf("with window disabled expected only the pending record, got %d rows", len(got))
	}
}

func TestListStalePending_CutoffIsExclusive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	cutoff := now.Add(-time.Hour)

	data, err := testPayload("CS1").Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	stale := &domain.ServiceOrder{DataJSON: data, Status: domain.StatusPending, CreatedAt: cutoff.Add(-time.Minute)}
	fresh := &domain.ServiceOrder{DataJSON: data, Status: domain.StatusPending, CreatedAt: cutoff.Add(time.Minute)}
	open := &domain.ServiceOrder{DataJSON: data, Status: domain.StatusOpen, CreatedAt: cutoff.Add(-time.Minute)}
	for _, o := range []*domain.ServiceOrder{stale, fresh, open} {
		if err := db.Create(o).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := ListStalePending(ctx, db, cutoff)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != stale.ID {
		t.Fatalf("expected only the stale pending record, got %d rows", len(got))
	}
}

func TestCountOrdersByCSID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, cs := range []string{"CS1", "CS1", "CS2"} {
		if _, err := CreateOrder(ctx, db, testPayload(cs)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	// A corrupted payload is skipped, not counted and not an error.
	bad := &domain.ServiceOrder{DataJSON: "{not json", Status: domain.StatusPending, CreatedAt: time.Now().UTC()}
	if err := db.Create(bad).Error; err != nil {
		t.Fatalf("seed corrupted: %v", err)
	}

	n, err := CountOrdersByCSID(ctx, db, "CS1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 records for CS1, got %d", n)
	}
}
