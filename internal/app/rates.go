package app

import (
	"context"
	"time"

	"channelsync/internal/domain"
)

// RateService computes nightly prices per occupancy, resolving derived plans
// against their parent and applying the yield hook when enabled.
type RateService struct {
	plans     domain.RatePlanRepository
	inventory domain.InventoryRepository
	yield     domain.YieldAdjuster

	// occupancy-based advisory knobs
	YieldThreshold float64 // occupancy ratio at which a raise is suggested
	YieldIncrease  float64 // suggested uniform percentage across tiers
}

func NewRateService(p domain.RatePlanRepository, inv domain.InventoryRepository, y domain.YieldAdjuster) *RateService {
	if y == nil {
		y = domain.PassThroughYield{}
	}
	return &RateService{plans: p, inventory: inv, yield: y, YieldThreshold: 0.8, YieldIncrease: 10}
}

// CalculateRate resolves the nightly rate for an occupancy bracket. Derived
// plans take their base from the parent (maximum derivation depth 1) and
// apply their delta on top. The yield hook only runs when a check-in date is
// supplied.
func (s *RateService) CalculateRate(ctx context.Context, planID int64, occupancy int, checkIn *time.Time) (float64, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return 0, err
	}
	return s.calculate(ctx, &plan, occupancy, checkIn)
}

func (s *RateService) calculate(ctx context.Context, plan *domain.RatePlan, occupancy int, checkIn *time.Time) (float64, error) {
	var rate float64
	if plan.IsDerived() {
		parent, err := s.plans.Get(ctx, *plan.ParentPlanID)
		if err != nil {
			return 0, err
		}
		if parent.IsDerived() {
			return 0, domain.Invalid("parent_plan_id", "derivation depth exceeds 1")
		}
		base, ok := parent.BaseFor(occupancy)
		if !ok {
			return 0, domain.Invalid("parent_plan_id", "parent plan has no populated rate tiers")
		}
		rate = plan.ApplyDerivation(base)
	} else {
		base, ok := plan.BaseFor(occupancy)
		if !ok {
			return 0, domain.Invalid("rates", "plan has no populated rate tiers")
		}
		rate = base
	}

	if plan.YieldEnabled && checkIn != nil {
		rate = s.yield.Adjust(plan, rate, *checkIn)
	}
	return domain.Round2(rate), nil
}

// ValidateBooking runs the plan-level booking checks.
func (s *RateService) ValidateBooking(ctx context.Context, planID int64, checkIn, checkOut time.Time, advanceDays *int) (domain.BookingCheck, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return domain.BookingCheck{}, err
	}
	return plan.ValidateBooking(checkIn, checkOut, advanceDays), nil
}

// YieldSuggestion is an advisory price raise; stored rates are never mutated.
type YieldSuggestion struct {
	Date           string  `json:"date"`
	OccupancyRate  float64 `json:"occupancy_rate"`
	Occupied       int     `json:"occupied"`
	Total          int     `json:"total"`
	Recommend      bool    `json:"recommend"`
	IncreasePct    float64 `json:"increase_pct,omitempty"`
}

// SuggestYieldAdjustment computes occupancy for the plan's scope on a target
// date and, at or above the threshold, suggests a uniform percentage increase
// across tiers.
func (s *RateService) SuggestYieldAdjustment(ctx context.Context, planID int64, date time.Time) (YieldSuggestion, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return YieldSuggestion{}, err
	}
	occupied, total, err := s.inventory.OccupancyOn(ctx, plan.PropertyID, plan.RoomTypeID, date)
	if err != nil {
		return YieldSuggestion{}, err
	}

	out := YieldSuggestion{Date: date.Format("2006-01-02"), Occupied: occupied, Total: total}
	if total == 0 {
		return out, nil
	}
	out.OccupancyRate = float64(occupied) / float64(total)
	if out.OccupancyRate >= s.YieldThreshold {
		out.Recommend = true
		out.IncreasePct = s.YieldIncrease
	}
	return out, nil
}

// SavePlan validates and persists a plan, rejecting derivation chains deeper
// than one level.
func (s *RateService) SavePlan(ctx context.Context, plan *domain.RatePlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.IsDerived() {
		parent, err := s.plans.Get(ctx, *plan.ParentPlanID)
		if err != nil {
			return err
		}
		if parent.IsDerived() {
			return domain.Invalid("parent_plan_id", "parent plan is itself derived")
		}
	}
	return s.plans.Save(ctx, plan)
}
