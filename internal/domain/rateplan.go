package domain

import (
	"fmt"
	"math"
	"time"
)

type DerivationType string

const (
	DerivePercentage DerivationType = "percentage"
	DeriveFixed      DerivationType = "fixed"
)

// RatePlan prices a scope (room type or whole property) with occupancy-tiered
// base rates. A derived plan computes its rates as a delta from its parent and
// is never materialized.
type RatePlan struct {
	ID         int64
	TenantID   int64
	PropertyID int64
	RoomTypeID *int64
	Name       string
	IsDefault  bool
	Active     bool

	// Occupancy tiers; nil tiers fall back to the next lower populated one.
	RateSingle *float64
	RateDouble *float64
	RateTriple *float64
	RateQuad   *float64 // 4+ occupancy
	ExtraPersonRate *float64

	MinStay        int
	MaxStay        *int
	MinAdvanceDays *int
	MaxAdvanceDays *int

	ValidFrom *time.Time
	ValidTo   *time.Time
	Weekdays  *WeekdayMask
	Channels  []string // allow-list; empty means every channel

	ParentPlanID    *int64
	DerivationType  *DerivationType
	DerivationValue *float64

	YieldEnabled bool
	YieldRules   []byte // opaque rule payload for the yield hook

	CancellationPolicy []byte
	PaymentPolicy      []byte

	// Plan-embedded closures, keyed by "2006-01-02". A second, lighter-weight
	// restriction source distinct from the restriction engine.
	ClosedArrivalDates   map[string]bool
	ClosedDepartureDates map[string]bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *RatePlan) IsDerived() bool { return p.ParentPlanID != nil && p.DerivationType != nil }

// BaseFor picks the tiered base rate for an occupancy bracket, falling back to
// the next lower populated tier. ok is false when no tier is populated.
func (p *RatePlan) BaseFor(occupancy int) (float64, bool) {
	if occupancy < 1 {
		occupancy = 1
	}
	if occupancy > 4 {
		occupancy = 4
	}
	tiers := []*float64{p.RateSingle, p.RateDouble, p.RateTriple, p.RateQuad}
	for i := occupancy - 1; i >= 0; i-- {
		if tiers[i] != nil {
			return *tiers[i], true
		}
	}
	return 0, false
}

// ApplyDerivation applies this plan's delta to a rate taken from its parent.
func (p *RatePlan) ApplyDerivation(parentRate float64) float64 {
	if !p.IsDerived() || p.DerivationValue == nil {
		return parentRate
	}
	switch *p.DerivationType {
	case DerivePercentage:
		return Round2(parentRate * (1 + *p.DerivationValue/100))
	case DeriveFixed:
		return Round2(parentRate + *p.DerivationValue)
	}
	return parentRate
}

// BookingCheck is the pass/fail outcome of plan-level booking validation.
type BookingCheck struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ValidateBooking checks, in order: validity window, min/max stay, min/max
// advance, then plan-embedded arrival/departure closures.
func (p *RatePlan) ValidateBooking(checkIn, checkOut time.Time, advanceDays *int) BookingCheck {
	if p.ValidFrom != nil && checkIn.Before(*p.ValidFrom) {
		return BookingCheck{Reason: "check-in precedes plan validity window"}
	}
	if p.ValidTo != nil && checkIn.After(*p.ValidTo) {
		return BookingCheck{Reason: "check-in past plan validity window"}
	}

	nights := Nights(checkIn, checkOut)
	if nights < 1 {
		return BookingCheck{Reason: "check-out must be after check-in"}
	}
	if nights < p.MinStay {
		return BookingCheck{Reason: fmt.Sprintf("minimum stay is %d nights", p.MinStay)}
	}
	if p.MaxStay != nil && nights > *p.MaxStay {
		return BookingCheck{Reason: fmt.Sprintf("maximum stay is %d nights", *p.MaxStay)}
	}

	if advanceDays != nil {
		if p.MinAdvanceDays != nil && *advanceDays < *p.MinAdvanceDays {
			return BookingCheck{Reason: fmt.Sprintf("bookings require at least %d days notice", *p.MinAdvanceDays)}
		}
		if p.MaxAdvanceDays != nil && *advanceDays > *p.MaxAdvanceDays {
			return BookingCheck{Reason: fmt.Sprintf("bookings open %d days before arrival", *p.MaxAdvanceDays)}
		}
	}

	if p.ClosedArrivalDates[checkIn.Format("2006-01-02")] {
		return BookingCheck{Reason: "arrival closed on check-in date"}
	}
	if p.ClosedDepartureDates[checkOut.Format("2006-01-02")] {
		return BookingCheck{Reason: "departure closed on check-out date"}
	}
	return BookingCheck{OK: true}
}

func (p *RatePlan) Validate() error {
	if p.MinStay < 1 {
		return Invalid("min_stay", "must be at least 1")
	}
	if p.MaxStay != nil && *p.MaxStay < p.MinStay {
		return Invalid("max_stay", "must be >= min_stay")
	}
	if p.IsDerived() {
		if p.DerivationValue == nil {
			return Invalid("derivation_value", "required for derived plans")
		}
		if *p.DerivationType != DerivePercentage && *p.DerivationType != DeriveFixed {
			return Invalid("derivation_type", "must be percentage or fixed")
		}
	}
	return nil
}

// AllowsChannel checks the plan's channel allow-list.
func (p *RatePlan) AllowsChannel(channel string) bool {
	if len(p.Channels) == 0 {
		return true
	}
	for _, c := range p.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// YieldAdjuster is the extension hook for demand-based price adjustment.
// The default implementation is a pass-through.
type YieldAdjuster interface {
	Adjust(plan *RatePlan, rate float64, checkIn time.Time) float64
}

// PassThroughYield is the default no-op yield hook.
type PassThroughYield struct{}

func (PassThroughYield) Adjust(_ *RatePlan, rate float64, _ time.Time) float64 { return rate }

// Nights counts whole nights between check-in and check-out dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

func Round2(v float64) float64 { return math.Round(v*100) / 100 }
