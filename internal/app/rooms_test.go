package app_test

import (
	"context"
	"testing"

	"channelsync/internal/app"
	"channelsync/internal/domain"
)

func roomSvcFixture(connected bool) (*app.RoomService, *fakeMappings, *fakeInventory, *fakeClient) {
	maps := newFakeMappings()
	inv := newFakeInventory()
	client := newFakeClient()
	configs := &fakeConfigs{cfgs: []domain.ChannelConfig{{
		ID: 7, TenantID: 1, PropertyID: 5, Active: true, Connected: connected,
	}}}
	return app.NewRoomService(maps, configs, inv, client), maps, inv, client
}

var seaView = domain.Room{ID: 42, TenantID: 1, PropertyID: 5, Name: "Sea View", BaseRate: 110, Active: true}

func TestEnsureMapping_CreatesWithPlaceholderDefaults(t *testing.T) {
	svc, maps, _, client := roomSvcFixture(true)

	svc.EnsureMapping(context.Background(), seaView)

	m, ok := maps.byRoom[42]
	if !ok {
		t.Fatalf("no mapping created")
	}
	if m.ExternalRoomID != "ext-new" || m.RateMultiplier != 1 || !m.Active || !m.SyncPending {
		t.Fatalf("mapping defaults wrong: %+v", m)
	}
	if !m.SyncAvailability || !m.SyncRates || !m.SyncRestrictions {
		t.Fatalf("aspects not all enabled: %+v", m)
	}
	if m.MinOccupancy != 1 || m.MaxOccupancy != 2 {
		t.Fatalf("occupancy defaults wrong: %+v", m)
	}

	if len(client.createdPay) != 1 {
		t.Fatalf("create calls = %d", len(client.createdPay))
	}
	pay := client.createdPay[0]
	if pay["name"] != "Sea View" || pay["rate"] != 9999.00 || pay["rate_code"] != "RACK-FLEX" {
		t.Fatalf("creation payload wrong: %v", pay)
	}
}

func TestEnsureMapping_NoConfigIsSilentSkip(t *testing.T) {
	maps := newFakeMappings()
	client := newFakeClient()
	svc := app.NewRoomService(maps, &fakeConfigs{}, newFakeInventory(), client)

	svc.EnsureMapping(context.Background(), seaView)

	if len(maps.byRoom) != 0 || len(client.createdPay) != 0 {
		t.Fatalf("mapping attempted without a configuration")
	}
}

func TestEnsureMapping_DisconnectedConfigSkips(t *testing.T) {
	svc, maps, _, client := roomSvcFixture(false)

	svc.EnsureMapping(context.Background(), seaView)

	if len(maps.byRoom) != 0 || len(client.createdPay) != 0 {
		t.Fatalf("mapping attempted against a disconnected channel")
	}
}

func TestEnsureMapping_ExternalFailureKeepsLocalRoom(t *testing.T) {
	svc, maps, _, client := roomSvcFixture(true)
	client.createErr = errBoom

	svc.EnsureMapping(context.Background(), seaView)

	if len(maps.byRoom) != 0 {
		t.Fatalf("mapping persisted despite external failure")
	}
}

func TestEnsureMapping_AlreadyMappedIsNoop(t *testing.T) {
	svc, maps, _, client := roomSvcFixture(true)
	_ = maps.Create(context.Background(), &domain.RoomMapping{
		TenantID: 1, ConfigID: 7, RoomID: 42, ExternalRoomID: "ext-42",
		RateMultiplier: 1, Active: true,
	})

	svc.EnsureMapping(context.Background(), seaView)

	if len(client.createdPay) != 0 {
		t.Fatalf("external room recreated for an already-mapped room")
	}
}

func TestDeactivateRoom_QueuesRemovalAndDisablesInventory(t *testing.T) {
	svc, maps, inv, _ := roomSvcFixture(true)
	_ = maps.Create(context.Background(), &domain.RoomMapping{
		TenantID: 1, ConfigID: 7, RoomID: 42, ExternalRoomID: "ext-42",
		RateMultiplier: 1, Active: true,
	})
	rec := domain.InventoryRecord{TenantID: 1, RoomID: 42, Date: day("2025-03-10"), Available: true, MinStay: 1, Active: true}
	rec.Normalize()
	inv.put(rec)

	if err := svc.DeactivateRoom(context.Background(), 42); err != nil {
		t.Fatalf("DeactivateRoom: %v", err)
	}

	m := maps.byRoom[42]
	if !m.DeletionPending || !m.SyncPending {
		t.Fatalf("removal not queued: %+v", m)
	}
	got, _ := inv.Get(context.Background(), 42, day("2025-03-10"))
	if got.Active || !got.SyncPending {
		t.Fatalf("inventory not disabled and flagged: %+v", got)
	}
}
