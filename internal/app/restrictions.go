package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"channelsync/internal/domain"
)

// RestrictionService resolves effective restrictions across the three scope
// levels and answers booking validation and calendar queries.
type RestrictionService struct {
	repo     domain.RestrictionRepository
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewRestrictionService(r domain.RestrictionRepository, c domain.Cache, ttl time.Duration) *RestrictionService {
	return &RestrictionService{repo: r, cache: c, cacheTTL: ttl, now: time.Now}
}

const calendarMaxDays = 90

type ReservationRequest struct {
	PropertyID  int64      `json:"property_id"`
	RoomID      *int64     `json:"room_id,omitempty"`
	RoomTypeID  *int64     `json:"room_type_id,omitempty"`
	CheckIn     time.Time  `json:"check_in"`
	CheckOut    time.Time  `json:"check_out"`
	AdvanceDays *int       `json:"advance_days,omitempty"`
}

type ValidationResult struct {
	IsValid    bool               `json:"is_valid"`
	Violations []domain.Violation `json:"violations"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// ValidateReservation resolves the effective restriction per type and checks
// the candidate stay against each one. A missing precondition is a violation,
// never an error.
func (s *RestrictionService) ValidateReservation(ctx context.Context, req ReservationRequest) (ValidationResult, error) {
	res := ValidationResult{IsValid: true}

	nights := domain.Nights(req.CheckIn, req.CheckOut)
	if nights < 1 {
		return ValidationResult{}, domain.Invalid("check_out", "must be after check_in")
	}

	lastNight := req.CheckOut.AddDate(0, 0, -1)
	all, err := s.repo.ListOverlapping(ctx, req.PropertyID, req.RoomID, req.RoomTypeID, req.CheckIn, req.CheckOut)
	if err != nil {
		return ValidationResult{}, err
	}

	candidates := make([]domain.Restriction, 0, len(all))
	for _, r := range all {
		if !r.Active || !r.MatchesScope(req.RoomID, req.RoomTypeID) {
			continue
		}
		if !appliesToStay(&r, req.CheckIn, req.CheckOut, lastNight) {
			continue
		}
		candidates = append(candidates, r)
	}

	advance := 0
	if req.AdvanceDays != nil {
		advance = *req.AdvanceDays
	} else {
		advance = domain.Nights(s.now().Truncate(24*time.Hour), req.CheckIn)
	}

	for _, r := range effectivePerType(candidates) {
		if v, ok := checkStay(r, req.CheckIn, req.CheckOut, nights, advance); ok {
			res.Violations = append(res.Violations, v)
			continue
		}
		// boundary warning: stay exactly at the minimum
		if r.Type == domain.RestrictionMinStay && r.Value != nil && nights == *r.Value {
			res.Warnings = append(res.Warnings, fmt.Sprintf("stay is exactly the %d-night minimum (%s scope)", *r.Value, r.ScopeDescription()))
		}
	}

	res.IsValid = len(res.Violations) == 0
	return res, nil
}

// appliesToStay narrows a restriction to the dates it actually governs for a
// candidate stay: CTA the check-in date, CTD the check-out date, everything
// else any covered night.
func appliesToStay(r *domain.Restriction, checkIn, checkOut, lastNight time.Time) bool {
	switch r.Type {
	case domain.RestrictionCTA:
		return r.AppliesOn(checkIn)
	case domain.RestrictionCTD:
		return r.AppliesOn(checkOut)
	default:
		for d := checkIn; !d.After(lastNight); d = d.AddDate(0, 0, 1) {
			if r.AppliesOn(d) {
				return true
			}
		}
		return false
	}
}

// effectivePerType keeps, for each restriction type, the single winner by
// specificity (room > room type > property) then priority descending.
func effectivePerType(rs []domain.Restriction) map[domain.RestrictionType]*domain.Restriction {
	sort.SliceStable(rs, func(i, j int) bool {
		if a, b := rs[i].Specificity(), rs[j].Specificity(); a != b {
			return a > b
		}
		return rs[i].Priority > rs[j].Priority
	})
	out := make(map[domain.RestrictionType]*domain.Restriction)
	for i := range rs {
		r := &rs[i]
		if _, taken := out[r.Type]; !taken {
			out[r.Type] = r
		}
	}
	return out
}

func checkStay(r *domain.Restriction, checkIn, checkOut time.Time, nights, advance int) (domain.Violation, bool) {
	scope := r.ScopeDescription()
	switch r.Type {
	case domain.RestrictionMinStay:
		if r.Value != nil && nights < *r.Value {
			return domain.Violation{
				Type: r.Type, Scope: scope, CanOverride: false,
				Message: fmt.Sprintf("stay of %d nights is below the %d-night minimum", nights, *r.Value),
			}, true
		}
	case domain.RestrictionMaxStay:
		if r.Value != nil && nights > *r.Value {
			return domain.Violation{
				Type: r.Type, Scope: scope, CanOverride: true,
				Message: fmt.Sprintf("stay of %d nights exceeds the %d-night maximum", nights, *r.Value),
			}, true
		}
	case domain.RestrictionCTA:
		d := checkIn.Format("2006-01-02")
		return domain.Violation{
			Type: r.Type, Scope: scope, Date: &d, CanOverride: false,
			Message: "arrivals are closed on " + d,
		}, true
	case domain.RestrictionCTD:
		d := checkOut.Format("2006-01-02")
		return domain.Violation{
			Type: r.Type, Scope: scope, Date: &d, CanOverride: false,
			Message: "departures are closed on " + d,
		}, true
	case domain.RestrictionStopSell:
		for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
			if r.AppliesOn(d) {
				ds := d.Format("2006-01-02")
				return domain.Violation{
					Type: r.Type, Scope: scope, Date: &ds, CanOverride: false,
					Message: "sales are stopped on " + ds,
				}, true
			}
		}
	case domain.RestrictionMinAdvance:
		if r.Value != nil && advance < *r.Value {
			return domain.Violation{
				Type: r.Type, Scope: scope, CanOverride: true,
				Message: fmt.Sprintf("bookings require at least %d days notice, got %d", *r.Value, advance),
			}, true
		}
	case domain.RestrictionMaxAdvance:
		if r.Value != nil && advance > *r.Value {
			return domain.Violation{
				Type: r.Type, Scope: scope, CanOverride: true,
				Message: fmt.Sprintf("bookings open %d days before arrival, got %d", *r.Value, advance),
			}, true
		}
	}
	return domain.Violation{}, false
}

/********** calendar **********/

type CalendarRequest struct {
	PropertyID int64
	RoomID     *int64
	RoomTypeID *int64
	From, To   time.Time
}

type CalendarDay struct {
	Date         string                   `json:"date"`
	Level        domain.RestrictionLevel  `json:"level"`
	MinStay      *int                     `json:"min_stay,omitempty"`
	MaxStay      *int                     `json:"max_stay,omitempty"`
	ClosedToArrival   bool                `json:"closed_to_arrival"`
	ClosedToDeparture bool                `json:"closed_to_departure"`
	StopSell     bool                     `json:"stop_sell"`
}

// Calendar expands scoped restriction rows into a per-day grid, capped at 90
// days, with a presentation-only severity level per day.
func (s *RestrictionService) Calendar(ctx context.Context, req CalendarRequest) ([]CalendarDay, error) {
	if req.To.Before(req.From) {
		return nil, domain.Invalid("to", "must not precede from")
	}
	if domain.Nights(req.From, req.To) > calendarMaxDays {
		return nil, domain.Invalid("range", fmt.Sprintf("must not exceed %d days", calendarMaxDays))
	}

	key := calendarKey(req)
	var cached []CalendarDay
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	all, err := s.repo.ListOverlapping(ctx, req.PropertyID, req.RoomID, req.RoomTypeID, req.From, req.To)
	if err != nil {
		return nil, err
	}
	scoped := all[:0]
	for _, r := range all {
		if r.Active && r.MatchesScope(req.RoomID, req.RoomTypeID) {
			scoped = append(scoped, r)
		}
	}

	var days []CalendarDay
	for d := req.From; !d.After(req.To); d = d.AddDate(0, 0, 1) {
		var onDay []domain.Restriction
		for _, r := range scoped {
			if r.AppliesOn(d) {
				onDay = append(onDay, r)
			}
		}
		day := CalendarDay{Date: d.Format("2006-01-02")}
		for _, r := range effectivePerType(onDay) {
			switch r.Type {
			case domain.RestrictionMinStay:
				day.MinStay = r.Value
			case domain.RestrictionMaxStay:
				day.MaxStay = r.Value
			case domain.RestrictionCTA:
				day.ClosedToArrival = true
			case domain.RestrictionCTD:
				day.ClosedToDeparture = true
			case domain.RestrictionStopSell:
				day.StopSell = true
			}
		}
		day.Level = levelFor(day)
		days = append(days, day)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, days, int(s.cacheTTL.Seconds()))
	}
	return days, nil
}

func levelFor(d CalendarDay) domain.RestrictionLevel {
	switch {
	case d.StopSell:
		return domain.LevelBlocked
	case d.ClosedToArrival && d.ClosedToDeparture:
		return domain.LevelHigh
	case d.ClosedToArrival || d.ClosedToDeparture:
		return domain.LevelMedium
	case d.MinStay != nil || d.MaxStay != nil:
		return domain.LevelLow
	default:
		return domain.LevelNone
	}
}

func calendarKey(req CalendarRequest) string {
	room, rtype := int64(0), int64(0)
	if req.RoomID != nil {
		room = *req.RoomID
	}
	if req.RoomTypeID != nil {
		rtype = *req.RoomTypeID
	}
	return fmt.Sprintf("cal:%d:%d:%d:%s:%s", req.PropertyID, room, rtype,
		req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
}

/********** writes **********/

// Create validates and persists a restriction. Cached calendars age out via
// TTL rather than being purged per write.
func (s *RestrictionService) Create(ctx context.Context, r *domain.Restriction) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.Active = true
	r.SyncPending = true
	return s.repo.Create(ctx, r)
}

func (s *RestrictionService) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
