package domain

import "time"

type RestrictionType string

const (
	RestrictionMinStay    RestrictionType = "min_stay"
	RestrictionMaxStay    RestrictionType = "max_stay"
	RestrictionCTA        RestrictionType = "closed_to_arrival"
	RestrictionCTD        RestrictionType = "closed_to_departure"
	RestrictionStopSell   RestrictionType = "stop_sell"
	RestrictionMinAdvance RestrictionType = "min_advance"
	RestrictionMaxAdvance RestrictionType = "max_advance"
)

// RequiresValue reports whether the type carries a numeric value
// (stay and advance categories do, closure/stop-sell do not).
func (t RestrictionType) RequiresValue() bool {
	switch t {
	case RestrictionMinStay, RestrictionMaxStay, RestrictionMinAdvance, RestrictionMaxAdvance:
		return true
	}
	return false
}

type RestrictionSource string

const (
	SourceManual  RestrictionSource = "manual"
	SourceChannel RestrictionSource = "channel"
	SourceYield   RestrictionSource = "yield"
	SourceImport  RestrictionSource = "import"
	SourceAPI     RestrictionSource = "api"
)

// WeekdayMask is a bitmask over time.Weekday (bit 0 = Sunday). Nil on a
// restriction means every weekday.
type WeekdayMask uint8

func (m WeekdayMask) Contains(d time.Weekday) bool { return m&(1<<uint(d)) != 0 }

// MaskOf builds a mask from explicit weekdays.
func MaskOf(days ...time.Weekday) WeekdayMask {
	var m WeekdayMask
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m
}

// Restriction is a scoped, date-ranged booking rule. Scope is exactly one of
// room, room type, or neither (property-wide).
type Restriction struct {
	ID         int64
	TenantID   int64
	PropertyID int64
	RoomID     *int64
	RoomTypeID *int64

	StartDate time.Time
	EndDate   time.Time
	Weekdays  *WeekdayMask

	Type     RestrictionType
	Value    *int
	Priority int // 1..10, higher wins within a scope level
	Source   RestrictionSource
	Active   bool

	SyncPending bool
	Synced      bool
	SyncError   *string
	LastSyncAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Specificity orders scopes: room > room type > property.
func (r *Restriction) Specificity() int {
	switch {
	case r.RoomID != nil:
		return 2
	case r.RoomTypeID != nil:
		return 1
	default:
		return 0
	}
}

func (r *Restriction) ScopeDescription() string {
	switch {
	case r.RoomID != nil:
		return "room"
	case r.RoomTypeID != nil:
		return "room type"
	default:
		return "property"
	}
}

// AppliesOn reports whether the restriction covers the given date, honoring
// its date bounds and weekday mask.
func (r *Restriction) AppliesOn(d time.Time) bool {
	if d.Before(r.StartDate) || d.After(r.EndDate) {
		return false
	}
	if r.Weekdays != nil && !r.Weekdays.Contains(d.Weekday()) {
		return false
	}
	return true
}

// MatchesScope reports whether the restriction is in play for a candidate
// room/room-type pair (either may be unknown).
func (r *Restriction) MatchesScope(roomID, roomTypeID *int64) bool {
	switch {
	case r.RoomID != nil:
		return roomID != nil && *roomID == *r.RoomID
	case r.RoomTypeID != nil:
		return roomTypeID != nil && *roomTypeID == *r.RoomTypeID
	default:
		return true
	}
}

func (r *Restriction) Validate() error {
	if r.RoomID != nil && r.RoomTypeID != nil {
		return Invalid("scope", "room and room_type scopes are mutually exclusive")
	}
	if r.EndDate.Before(r.StartDate) {
		return Invalid("end_date", "must not precede start_date")
	}
	if r.Priority < 1 || r.Priority > 10 {
		return Invalid("priority", "must be between 1 and 10")
	}
	if r.Type.RequiresValue() {
		if r.Value == nil || *r.Value < 1 {
			return Invalid("value", "required and positive for stay/advance restrictions")
		}
	} else if r.Value != nil {
		return Invalid("value", "not allowed for closure/stop-sell restrictions")
	}
	return nil
}

// Violation is one failed restriction check. Overridable violations may be
// bypassed by staff; non-overridable ones block the booking outright.
type Violation struct {
	Type        RestrictionType `json:"type"`
	Message     string          `json:"message"`
	Scope       string          `json:"scope"`
	Date        *string         `json:"date,omitempty"`
	CanOverride bool            `json:"can_override"`
}

// RestrictionLevel is the presentation-only per-day severity for calendars.
type RestrictionLevel string

const (
	LevelBlocked RestrictionLevel = "blocked"
	LevelHigh    RestrictionLevel = "high"
	LevelMedium  RestrictionLevel = "medium"
	LevelLow     RestrictionLevel = "low"
	LevelNone    RestrictionLevel = "none"
)
