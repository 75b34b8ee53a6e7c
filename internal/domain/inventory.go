package domain

import "time"

// SyncState is derived from the bookkeeping flags, never stored.
type SyncState string

const (
	SyncStateNotSynced SyncState = "not_synced"
	SyncStatePending   SyncState = "pending"
	SyncStateSynced    SyncState = "synced"
	SyncStateError     SyncState = "error"
)

// InventoryRecord is one room/date row: availability flags, optional rate
// override, stay bounds, and sync bookkeeping. Unique per (room, date).
type InventoryRecord struct {
	ID       int64
	TenantID int64
	RoomID   int64
	Date     time.Time // date-only, UTC midnight

	Available         bool
	Blocked           bool
	OutOfOrder        bool
	Maintenance       bool
	Reserved          bool
	ClosedToArrival   bool
	ClosedToDeparture bool
	BlockReason       *string

	RateOverride *float64
	MinStay      int
	MaxStay      *int

	IsBookable bool
	Active     bool

	SyncPending bool
	Synced      bool
	SyncError   *string
	LastSyncAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncState derives the record's sync status from the bookkeeping flags.
func (r *InventoryRecord) SyncState() SyncState {
	switch {
	case r.SyncError != nil && *r.SyncError != "":
		return SyncStateError
	case r.SyncPending:
		return SyncStatePending
	case r.Synced:
		return SyncStateSynced
	default:
		return SyncStateNotSynced
	}
}

// Normalize recomputes IsBookable and returns non-fatal inconsistency notes.
// Invariant: is_bookable = available ∧ ¬(blocked ∨ out_of_order ∨ maintenance ∨ reserved).
func (r *InventoryRecord) Normalize() []string {
	r.IsBookable = r.Available && !r.Blocked && !r.OutOfOrder && !r.Maintenance && !r.Reserved

	var notes []string
	if !r.Available && (r.ClosedToArrival || r.ClosedToDeparture) {
		notes = append(notes, "arrival/departure closure on unavailable record")
	}
	return notes
}

// MarkDirty flags the record for the next outward push and clears any prior
// sync error. Every sync-relevant mutation path must pass through here.
func (r *InventoryRecord) MarkDirty() {
	r.SyncPending = true
	r.Synced = false
	r.SyncError = nil
}

func (r *InventoryRecord) MarkSynced(at time.Time) {
	r.Synced = true
	r.SyncPending = false
	r.SyncError = nil
	t := at
	r.LastSyncAt = &t
}

// MarkSyncFailed keeps the record pending so the next scheduled pass retries it.
func (r *InventoryRecord) MarkSyncFailed(msg string) {
	r.Synced = false
	r.SyncPending = true
	r.SyncError = &msg
}

// CloneFor copies flags, overrides and stay bounds onto a fresh record for
// another date. The clone always starts unsynced and pending.
func (r *InventoryRecord) CloneFor(date time.Time) InventoryRecord {
	c := *r
	c.ID = 0
	c.Date = date
	c.SyncPending = true
	c.Synced = false
	c.SyncError = nil
	c.LastSyncAt = nil
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	return c
}

// Validate runs pre-persist checks.
func (r *InventoryRecord) Validate() error {
	if r.MinStay < 1 {
		return Invalid("min_stay", "must be at least 1")
	}
	if r.MaxStay != nil && *r.MaxStay < r.MinStay {
		return Invalid("max_stay", "must be >= min_stay")
	}
	if r.RateOverride != nil && *r.RateOverride <= 0 {
		return Invalid("rate_override", "must be positive when set")
	}
	return nil
}

// DateKey formats the record's date the way the wire format and diff keys do.
func (r *InventoryRecord) DateKey() string { return r.Date.Format("2006-01-02") }
