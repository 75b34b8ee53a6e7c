package app_test

import (
	"context"
	"testing"

	"channelsync/internal/app"
	"channelsync/internal/domain"
)

func availFixture() (*app.AvailabilityService, *fakeInventory) {
	inv := newFakeInventory()
	rooms := &fakeRooms{rooms: map[int64]domain.Room{
		42: {ID: 42, TenantID: 1, PropertyID: 5, Name: "Sea View", BaseRate: 110, Active: true},
	}}
	return app.NewAvailabilityService(inv, rooms, nil, 0), inv
}

func TestCheckRoomAvailability_MissingRowsCountAsAvailable(t *testing.T) {
	svc, _ := availFixture()

	out, err := svc.CheckRoomAvailability(context.Background(), 42, day("2025-03-10"), day("2025-03-12"))
	if err != nil {
		t.Fatalf("CheckRoomAvailability: %v", err)
	}
	if !out.Available || out.Nights != 2 {
		t.Fatalf("empty calendar not available: %+v", out)
	}
	if out.TotalRate != 220 {
		t.Fatalf("total = %v, want 2 x base 110", out.TotalRate)
	}
}

func TestCheckRoomAvailability_BlockedNightZeroesTotal(t *testing.T) {
	svc, inv := availFixture()

	rec := domain.InventoryRecord{
		TenantID: 1, RoomID: 42, Date: day("2025-03-11"),
		Available: true, Blocked: true, MinStay: 1, Active: true,
	}
	rec.Normalize()
	inv.put(rec)

	out, err := svc.CheckRoomAvailability(context.Background(), 42, day("2025-03-10"), day("2025-03-12"))
	if err != nil {
		t.Fatalf("CheckRoomAvailability: %v", err)
	}
	if out.Available || out.TotalRate != 0 || out.NightlyRates != nil {
		t.Fatalf("blocked night leaked a price: %+v", out)
	}
	if len(out.UnavailableDates) != 1 || out.UnavailableDates[0] != "2025-03-11" {
		t.Fatalf("unavailable dates = %v", out.UnavailableDates)
	}
}

func TestCheckRoomAvailability_OverrideWinsOverBase(t *testing.T) {
	svc, inv := availFixture()

	rec := domain.InventoryRecord{
		TenantID: 1, RoomID: 42, Date: day("2025-03-10"),
		Available: true, MinStay: 1, Active: true, RateOverride: pfloat(95),
	}
	rec.Normalize()
	inv.put(rec)

	out, err := svc.CheckRoomAvailability(context.Background(), 42, day("2025-03-10"), day("2025-03-12"))
	if err != nil {
		t.Fatalf("CheckRoomAvailability: %v", err)
	}
	if out.TotalRate != 205 { // 95 + 110
		t.Fatalf("total = %v, want override + base", out.TotalRate)
	}
}

func TestBulkUpdate_CreatesCellsAndFlagsThem(t *testing.T) {
	svc, inv := availFixture()

	min := 2
	blocked := true
	out, err := svc.BulkUpdateAvailability(context.Background(), app.BulkUpdateRequest{
		TenantID: 1, RoomIDs: []int64{42},
		From: day("2025-03-10"), To: day("2025-03-12"),
		Blocked: &blocked, MinStay: &min,
	})
	if err != nil {
		t.Fatalf("BulkUpdateAvailability: %v", err)
	}
	if out.Updated != 3 || out.Failed != 0 {
		t.Fatalf("updated = %d failed = %d, want 3/0", out.Updated, out.Failed)
	}

	rec, err := inv.Get(context.Background(), 42, day("2025-03-11"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !rec.Blocked || rec.MinStay != 2 || rec.IsBookable || !rec.SyncPending {
		t.Fatalf("cell not edited/normalized/flagged: %+v", rec)
	}
}

func TestBulkUpdate_BadCellsAreSkippedNotFatal(t *testing.T) {
	svc, _ := availFixture()

	min := 5
	max := 2 // max < min fails validation per cell
	out, err := svc.BulkUpdateAvailability(context.Background(), app.BulkUpdateRequest{
		TenantID: 1, RoomIDs: []int64{42},
		From: day("2025-03-10"), To: day("2025-03-11"),
		MinStay: &min, MaxStay: &max,
	})
	if err != nil {
		t.Fatalf("BulkUpdateAvailability: %v", err)
	}
	if out.Updated != 0 || out.Failed != 2 || len(out.Errors) != 2 {
		t.Fatalf("bad cells not collected: %+v", out)
	}
}

func TestSetReserved_FlipsEveryNightAndFlags(t *testing.T) {
	svc, inv := availFixture()

	if err := svc.SetReserved(context.Background(), 1, 42, day("2025-03-10"), day("2025-03-13"), true); err != nil {
		t.Fatalf("SetReserved: %v", err)
	}
	for _, d := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		rec, err := inv.Get(context.Background(), 42, day(d))
		if err != nil {
			t.Fatalf("Get %s: %v", d, err)
		}
		if !rec.Reserved || rec.IsBookable || !rec.SyncPending {
			t.Fatalf("%s not reserved+flagged: %+v", d, rec)
		}
	}
	// Check-out date itself is untouched.
	if _, err := inv.Get(context.Background(), 42, day("2025-03-13")); err == nil {
		t.Fatalf("check-out date got an inventory row")
	}
}
