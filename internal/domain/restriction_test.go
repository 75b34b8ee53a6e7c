package domain

import (
	"testing"
	"time"
)

func TestWeekdayMask(t *testing.T) {
	weekend := MaskOf(time.Saturday, time.Sunday)
	if !weekend.Contains(time.Saturday) || !weekend.Contains(time.Sunday) {
		t.Fatalf("weekend mask misses its own days")
	}
	if weekend.Contains(time.Wednesday) {
		t.Fatalf("weekend mask contains Wednesday")
	}
}

func TestRestriction_Specificity(t *testing.T) {
	if (&Restriction{RoomID: i64p(1)}).Specificity() != 2 {
		t.Fatalf("room scope must be most specific")
	}
	if (&Restriction{RoomTypeID: i64p(1)}).Specificity() != 1 {
		t.Fatalf("room type scope must rank between room and property")
	}
	if (&Restriction{}).Specificity() != 0 {
		t.Fatalf("property scope must be least specific")
	}
}

func TestRestriction_AppliesOn(t *testing.T) {
	mask := MaskOf(time.Friday, time.Saturday)
	r := Restriction{
		StartDate: datep("2025-03-01"),
		EndDate:   datep("2025-03-31"),
		Weekdays:  &mask,
	}

	// 2025-03-14 is a Friday, 2025-03-10 a Monday.
	if !r.AppliesOn(datep("2025-03-14")) {
		t.Fatalf("in-range masked weekday should apply")
	}
	if r.AppliesOn(datep("2025-03-10")) {
		t.Fatalf("unmasked weekday should not apply")
	}
	if r.AppliesOn(datep("2025-04-04")) {
		t.Fatalf("out-of-range Friday should not apply")
	}

	r.Weekdays = nil
	if !r.AppliesOn(datep("2025-03-10")) {
		t.Fatalf("nil mask means every weekday")
	}
}

func TestRestriction_MatchesScope(t *testing.T) {
	room := Restriction{RoomID: i64p(42)}
	typed := Restriction{RoomTypeID: i64p(3)}
	property := Restriction{}

	if !room.MatchesScope(i64p(42), nil) || room.MatchesScope(i64p(7), nil) {
		t.Fatalf("room scope must match by room id only")
	}
	if room.MatchesScope(nil, i64p(3)) {
		t.Fatalf("room scope must not match an unknown room")
	}
	if !typed.MatchesScope(nil, i64p(3)) || typed.MatchesScope(i64p(42), i64p(4)) {
		t.Fatalf("type scope must match by room type id only")
	}
	if !property.MatchesScope(nil, nil) {
		t.Fatalf("property scope must match everything")
	}
}

func TestRestriction_Validate(t *testing.T) {
	base := func() Restriction {
		return Restriction{
			PropertyID: 5,
			StartDate:  datep("2025-03-01"),
			EndDate:    datep("2025-03-31"),
			Type:       RestrictionMinStay,
			Value:      intp(2),
			Priority:   5,
		}
	}

	if err := func() error { r := base(); return r.Validate() }(); err != nil {
		t.Fatalf("valid restriction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Restriction)
	}{
		{"both scopes", func(r *Restriction) { r.RoomID = i64p(1); r.RoomTypeID = i64p(2) }},
		{"inverted dates", func(r *Restriction) { r.EndDate = datep("2025-02-01") }},
		{"priority too low", func(r *Restriction) { r.Priority = 0 }},
		{"priority too high", func(r *Restriction) { r.Priority = 11 }},
		{"min stay without value", func(r *Restriction) { r.Value = nil }},
		{"min stay zero value", func(r *Restriction) { r.Value = intp(0) }},
		{"stop sell with value", func(r *Restriction) { r.Type = RestrictionStopSell }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := base()
			tc.mutate(&r)
			if err := r.Validate(); !IsValidation(err) {
				t.Fatalf("Validate() = %v, want validation error", err)
			}
		})
	}

	r := base()
	r.Type = RestrictionCTA
	r.Value = nil
	if err := r.Validate(); err != nil {
		t.Fatalf("valueless closure rejected: %v", err)
	}
}
