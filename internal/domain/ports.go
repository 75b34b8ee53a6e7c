package domain

import (
	"context"
	"time"
)

type InventoryRepository interface {
	// Write paths
	Upsert(ctx context.Context, rec *InventoryRecord) error
	BulkUpsert(ctx context.Context, recs []InventoryRecord) error
	MarkSynced(ctx context.Context, ids []int64, at time.Time) error
	MarkSyncError(ctx context.Context, id int64, msg string) error
	DisableForRoom(ctx context.Context, roomID int64) error

	// Read paths
	Get(ctx context.Context, roomID int64, date time.Time) (InventoryRecord, error)
	GetRange(ctx context.Context, roomID int64, from, to time.Time) ([]InventoryRecord, error)
	ListPending(ctx context.Context, propertyID *int64, limit int) ([]InventoryRecord, error)
	ListErrored(ctx context.Context, propertyID *int64, limit int) ([]InventoryRecord, error)
	ListForProperty(ctx context.Context, propertyID int64, from, to time.Time, limit int) ([]InventoryRecord, error)
	CountPending(ctx context.Context, propertyID *int64) (int, error)
	CountErrored(ctx context.Context, propertyID *int64) (int, error)
	CountActive(ctx context.Context, propertyID *int64) (int, error)
	OccupancyOn(ctx context.Context, propertyID int64, roomTypeID *int64, date time.Time) (occupied, total int, err error)
}

type MappingRepository interface {
	Create(ctx context.Context, m *RoomMapping) error
	MarkDeletionPending(ctx context.Context, roomID int64) (int64, error)
	MarkAspectSynced(ctx context.Context, id int64, aspect SyncAspect, at time.Time) error
	RecordError(ctx context.Context, id int64, msg string) error
	Deactivate(ctx context.Context, id int64) error

	GetByRoom(ctx context.Context, configID, roomID int64) (RoomMapping, error)
	GetByExternalRoom(ctx context.Context, configID int64, externalRoomID string) (RoomMapping, error)
	ListReady(ctx context.Context, configID int64) ([]RoomMapping, error)
	ListDeletionPending(ctx context.Context, configID int64, limit int) ([]RoomMapping, error)
	ListOrphans(ctx context.Context, tenantID int64) ([]RoomMapping, error)
}

type RestrictionRepository interface {
	Create(ctx context.Context, r *Restriction) error
	Deactivate(ctx context.Context, id int64) error
	MarkSynced(ctx context.Context, ids []int64, at time.Time) error

	ListOverlapping(ctx context.Context, propertyID int64, roomID, roomTypeID *int64, from, to time.Time) ([]Restriction, error)
	ListPending(ctx context.Context, propertyID *int64, limit int) ([]Restriction, error)
}

type RatePlanRepository interface {
	Save(ctx context.Context, p *RatePlan) error
	Get(ctx context.Context, id int64) (RatePlan, error)
	DefaultForScope(ctx context.Context, propertyID int64, roomTypeID *int64) (RatePlan, error)
}

type RoomRepository interface {
	Get(ctx context.Context, id int64) (Room, error)
}

type ConfigRepository interface {
	ListActive(ctx context.Context) ([]ChannelConfig, error)
	ActiveForProperty(ctx context.Context, propertyID int64) (ChannelConfig, error)
	MarkConnected(ctx context.Context, id int64, connected bool) error
}

type SyncLogRepository interface {
	Insert(ctx context.Context, l *SyncLog) error
	GetByRunID(ctx context.Context, runID string) (SyncLog, error)
	ListSince(ctx context.Context, configID int64, since time.Time) ([]SyncLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ChannelClient is the channel-manager HTTP API. Payloads stay wire-shaped
// (map[string]any); the translation layer owns the conversion.
type ChannelClient interface {
	CreateRoom(ctx context.Context, cfg ChannelConfig, payload map[string]any) (externalRoomID string, err error)
	RemoveRoom(ctx context.Context, cfg ChannelConfig, externalRoomID string) error
	PushInventory(ctx context.Context, cfg ChannelConfig, date string, items []map[string]any) error
	PullInventory(ctx context.Context, cfg ChannelConfig, from, to string) ([]map[string]any, error)
	Ping(ctx context.Context, cfg ChannelConfig) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Notifier publishes sync lifecycle events. Callers treat failures as
// best-effort: a dead bus never fails a sync.
type Notifier interface {
	Publish(ctx context.Context, subject string, event SyncEvent) error
}
