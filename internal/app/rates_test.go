package app_test

import (
	"context"
	"testing"
	"time"

	"channelsync/internal/app"
	"channelsync/internal/domain"
)

func basePlan(id int64) domain.RatePlan {
	return domain.RatePlan{
		ID: id, TenantID: 1, PropertyID: 5, Name: "Standard", Active: true,
		RateSingle: pfloat(90), RateDouble: pfloat(120),
		MinStay: 1,
	}
}

func TestCalculateRate_TierFallback(t *testing.T) {
	plans := newFakePlans(basePlan(1))
	svc := app.NewRateService(plans, newFakeInventory(), nil)
	ctx := context.Background()

	// Triple and quad tiers are unset; both fall back to the double rate.
	for _, occ := range []int{3, 4, 9} {
		rate, err := svc.CalculateRate(ctx, 1, occ, nil)
		if err != nil {
			t.Fatalf("occupancy %d: %v", occ, err)
		}
		if rate != 120 {
			t.Fatalf("occupancy %d rate = %v, want fallback 120", occ, rate)
		}
	}

	rate, err := svc.CalculateRate(ctx, 1, 1, nil)
	if err != nil || rate != 90 {
		t.Fatalf("single rate = %v, err %v", rate, err)
	}
}

func TestCalculateRate_Derivation(t *testing.T) {
	parent := basePlan(1)
	pct := domain.DerivePercentage
	fixed := domain.DeriveFixed

	discounted := domain.RatePlan{
		ID: 2, TenantID: 1, PropertyID: 5, Name: "NonRefundable", Active: true, MinStay: 1,
		ParentPlanID: pint64(1), DerivationType: &pct, DerivationValue: pfloat(-10),
	}
	surcharged := domain.RatePlan{
		ID: 3, TenantID: 1, PropertyID: 5, Name: "Breakfast", Active: true, MinStay: 1,
		ParentPlanID: pint64(1), DerivationType: &fixed, DerivationValue: pfloat(15),
	}
	plans := newFakePlans(parent, discounted, surcharged)
	svc := app.NewRateService(plans, newFakeInventory(), nil)
	ctx := context.Background()

	rate, err := svc.CalculateRate(ctx, 2, 2, nil)
	if err != nil || rate != 108 {
		t.Fatalf("percentage derivation = %v, err %v, want 120 - 10%%", rate, err)
	}
	rate, err = svc.CalculateRate(ctx, 3, 2, nil)
	if err != nil || rate != 135 {
		t.Fatalf("fixed derivation = %v, err %v, want 120 + 15", rate, err)
	}
}

func TestCalculateRate_DepthLimitedToOne(t *testing.T) {
	pct := domain.DerivePercentage
	parent := basePlan(1)
	mid := domain.RatePlan{
		ID: 2, TenantID: 1, PropertyID: 5, Name: "Derived", Active: true, MinStay: 1,
		ParentPlanID: pint64(1), DerivationType: &pct, DerivationValue: pfloat(-5),
	}
	grandchild := domain.RatePlan{
		ID: 3, TenantID: 1, PropertyID: 5, Name: "DoublyDerived", Active: true, MinStay: 1,
		ParentPlanID: pint64(2), DerivationType: &pct, DerivationValue: pfloat(-5),
	}
	plans := newFakePlans(parent, mid, grandchild)
	svc := app.NewRateService(plans, newFakeInventory(), nil)

	if _, err := svc.CalculateRate(context.Background(), 3, 2, nil); !domain.IsValidation(err) {
		t.Fatalf("two-level derivation accepted: %v", err)
	}
}

type doublingYield struct{}

func (doublingYield) Adjust(_ *domain.RatePlan, rate float64, _ time.Time) float64 { return rate * 2 }

func TestCalculateRate_YieldHookOnlyWithCheckIn(t *testing.T) {
	plan := basePlan(1)
	plan.YieldEnabled = true
	plans := newFakePlans(plan)
	svc := app.NewRateService(plans, newFakeInventory(), doublingYield{})
	ctx := context.Background()

	rate, err := svc.CalculateRate(ctx, 1, 2, nil)
	if err != nil || rate != 120 {
		t.Fatalf("yield ran without check-in: %v, err %v", rate, err)
	}

	checkIn := day("2025-03-10")
	rate, err = svc.CalculateRate(ctx, 1, 2, &checkIn)
	if err != nil || rate != 240 {
		t.Fatalf("yield hook skipped: %v, err %v", rate, err)
	}
}

func TestSuggestYieldAdjustment_ThresholdGates(t *testing.T) {
	plans := newFakePlans(basePlan(1))
	inv := newFakeInventory()
	svc := app.NewRateService(plans, inv, nil)
	ctx := context.Background()

	inv.occupied, inv.totalRooms = 7, 10
	out, err := svc.SuggestYieldAdjustment(ctx, 1, day("2025-03-10"))
	if err != nil {
		t.Fatalf("SuggestYieldAdjustment: %v", err)
	}
	if out.Recommend {
		t.Fatalf("70%% occupancy triggered a raise: %+v", out)
	}

	inv.occupied = 8
	out, err = svc.SuggestYieldAdjustment(ctx, 1, day("2025-03-10"))
	if err != nil {
		t.Fatalf("SuggestYieldAdjustment: %v", err)
	}
	if !out.Recommend || out.IncreasePct != 10 {
		t.Fatalf("80%% occupancy not recommended: %+v", out)
	}
}

func TestSavePlan_RejectsDerivedParent(t *testing.T) {
	pct := domain.DerivePercentage
	parent := basePlan(1)
	derived := domain.RatePlan{
		ID: 2, TenantID: 1, PropertyID: 5, Name: "Derived", Active: true, MinStay: 1,
		ParentPlanID: pint64(1), DerivationType: &pct, DerivationValue: pfloat(-5),
	}
	plans := newFakePlans(parent, derived)
	svc := app.NewRateService(plans, newFakeInventory(), nil)

	bad := domain.RatePlan{
		TenantID: 1, PropertyID: 5, Name: "Chained", MinStay: 1,
		ParentPlanID: pint64(2), DerivationType: &pct, DerivationValue: pfloat(-5),
	}
	if err := svc.SavePlan(context.Background(), &bad); !domain.IsValidation(err) {
		t.Fatalf("chained derivation accepted: %v", err)
	}
}

func TestValidateBooking_PlanEmbeddedClosures(t *testing.T) {
	plan := basePlan(1)
	plan.ClosedArrivalDates = map[string]bool{"2025-12-24": true}
	plans := newFakePlans(plan)
	svc := app.NewRateService(plans, newFakeInventory(), nil)

	check, err := svc.ValidateBooking(context.Background(), 1, day("2025-12-24"), day("2025-12-26"), nil)
	if err != nil {
		t.Fatalf("ValidateBooking: %v", err)
	}
	if check.OK || check.Reason == "" {
		t.Fatalf("closed arrival accepted: %+v", check)
	}
}
