package domain

import "time"

// SyncAspect names one independently toggled slice of the sync feed.
type SyncAspect string

const (
	AspectAvailability SyncAspect = "availability"
	AspectRates        SyncAspect = "rates"
	AspectRestrictions SyncAspect = "restrictions"
)

// RoomMapping cross-references a local room with its counterpart in the
// external channel manager, per channel configuration. Unique per
// (tenant, config, room) and per (tenant, config, external room).
type RoomMapping struct {
	ID       int64
	TenantID int64
	ConfigID int64
	RoomID   int64

	ExternalRoomID   string
	ExternalRoomName string
	ExternalRoomType string

	SyncAvailability bool
	SyncRates        bool
	SyncRestrictions bool

	MinOccupancy   int
	MaxOccupancy   int
	RateMultiplier float64
	RateOverride   *float64

	AvailabilitySyncedAt *time.Time
	RatesSyncedAt        *time.Time
	RestrictionsSyncedAt *time.Time

	SyncError      *string
	SyncErrorCount int
	SyncPending    bool

	DeletionPending bool
	Active          bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ready reports whether the mapping participates in sync at all.
func (m *RoomMapping) Ready() bool {
	return m.Active && (m.SyncAvailability || m.SyncRates || m.SyncRestrictions)
}

func (m *RoomMapping) AspectEnabled(a SyncAspect) bool {
	switch a {
	case AspectAvailability:
		return m.SyncAvailability
	case AspectRates:
		return m.SyncRates
	case AspectRestrictions:
		return m.SyncRestrictions
	}
	return false
}

// NeedsSync reports whether an aspect has never been pushed.
func (m *RoomMapping) NeedsSync(a SyncAspect) bool {
	if !m.AspectEnabled(a) {
		return false
	}
	switch a {
	case AspectAvailability:
		return m.AvailabilitySyncedAt == nil
	case AspectRates:
		return m.RatesSyncedAt == nil
	case AspectRestrictions:
		return m.RestrictionsSyncedAt == nil
	}
	return false
}

// Multiplier returns the rate multiplier, defaulting to 1 when unset.
func (m *RoomMapping) Multiplier() float64 {
	if m.RateMultiplier <= 0 {
		return 1
	}
	return m.RateMultiplier
}

// Room is the minimal slice of the (out-of-scope) room entity this core needs:
// scope references for restriction/rate resolution and the base nightly rate.
type Room struct {
	ID         int64
	TenantID   int64
	PropertyID int64
	RoomTypeID *int64
	Name       string
	BaseRate   float64
	Active     bool
}
