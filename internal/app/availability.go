package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"channelsync/internal/domain"
)

// AvailabilityService answers availability/pricing queries and applies the
// explicit, allow-listed bulk edit operation over room/date ranges.
type AvailabilityService struct {
	inventory domain.InventoryRepository
	rooms     domain.RoomRepository
	cache     domain.Cache
	cacheTTL  time.Duration
}

func NewAvailabilityService(inv domain.InventoryRepository, rooms domain.RoomRepository, c domain.Cache, ttl time.Duration) *AvailabilityService {
	return &AvailabilityService{inventory: inv, rooms: rooms, cache: c, cacheTTL: ttl}
}

type AvailabilityResult struct {
	Available        bool     `json:"available"`
	Nights           int      `json:"nights"`
	TotalRate        float64  `json:"total_rate"`
	NightlyRates     []float64 `json:"nightly_rates"`
	UnavailableDates []string `json:"unavailable_dates,omitempty"`
}

// CheckRoomAvailability reports whether every night in [from, to) is bookable
// and totals the nightly rates (record override, else the room base rate).
// Nights with no inventory row count as available at the base rate; rows are
// only created on demand by edits and bookings.
func (s *AvailabilityService) CheckRoomAvailability(ctx context.Context, roomID int64, from, to time.Time) (AvailabilityResult, error) {
	nights := domain.Nights(from, to)
	if nights < 1 {
		return AvailabilityResult{}, domain.Invalid("to", "must be after from")
	}

	key := fmt.Sprintf("avail:%d:%s:%s", roomID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached AvailabilityResult
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return AvailabilityResult{}, err
	}
	if !room.Active {
		return AvailabilityResult{Nights: nights}, nil
	}

	recs, err := s.inventory.GetRange(ctx, roomID, from, to.AddDate(0, 0, -1))
	if err != nil {
		return AvailabilityResult{}, err
	}
	byDate := make(map[string]domain.InventoryRecord, len(recs))
	for _, r := range recs {
		byDate[r.DateKey()] = r
	}

	out := AvailabilityResult{Available: true, Nights: nights}
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		rate := room.BaseRate
		if rec, ok := byDate[d.Format("2006-01-02")]; ok {
			if !rec.Active || !rec.IsBookable {
				out.Available = false
				out.UnavailableDates = append(out.UnavailableDates, d.Format("2006-01-02"))
				continue
			}
			if rec.RateOverride != nil {
				rate = *rec.RateOverride
			}
		}
		out.NightlyRates = append(out.NightlyRates, domain.Round2(rate))
		out.TotalRate = domain.Round2(out.TotalRate + rate)
	}
	if !out.Available {
		out.TotalRate = 0
		out.NightlyRates = nil
	}

	// Staleness after an edit is bounded by the TTL; keys embed the queried
	// range so there is no precise purge.
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// BulkUpdateRequest is the explicit field set a bulk edit may touch. Nil
// fields are left untouched.
type BulkUpdateRequest struct {
	TenantID int64     `json:"tenant_id"`
	RoomIDs  []int64   `json:"room_ids"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"` // inclusive

	Available         *bool    `json:"available,omitempty"`
	Blocked           *bool    `json:"blocked,omitempty"`
	OutOfOrder        *bool    `json:"out_of_order,omitempty"`
	Maintenance       *bool    `json:"maintenance,omitempty"`
	ClosedToArrival   *bool    `json:"closed_to_arrival,omitempty"`
	ClosedToDeparture *bool    `json:"closed_to_departure,omitempty"`
	MinStay           *int     `json:"min_stay,omitempty"`
	MaxStay           *int     `json:"max_stay,omitempty"`
	RateOverride      *float64 `json:"rate_override,omitempty"`
	BlockReason       *string  `json:"block_reason,omitempty"`
}

type BulkUpdateResult struct {
	Updated  int      `json:"updated"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
	Truncated bool    `json:"errors_truncated,omitempty"`
}

const bulkErrorCap = 20

// BulkUpdateAvailability applies the edit to every room/date cell, creating
// records on demand. One bad cell is recorded and skipped, never aborting the
// rest; all touched records go out in one multi-row upsert.
func (s *AvailabilityService) BulkUpdateAvailability(ctx context.Context, req BulkUpdateRequest) (BulkUpdateResult, error) {
	if len(req.RoomIDs) == 0 {
		return BulkUpdateResult{}, domain.Invalid("room_ids", "must not be empty")
	}
	if req.To.Before(req.From) {
		return BulkUpdateResult{}, domain.Invalid("to", "must not precede from")
	}

	var out BulkUpdateResult
	var batch []domain.InventoryRecord
	fail := func(roomID int64, d time.Time, err error) {
		out.Failed++
		if len(out.Errors) < bulkErrorCap {
			out.Errors = append(out.Errors, fmt.Sprintf("room %d %s: %v", roomID, d.Format("2006-01-02"), err))
		} else {
			out.Truncated = true
		}
	}

	for _, roomID := range req.RoomIDs {
		for d := req.From; !d.After(req.To); d = d.AddDate(0, 0, 1) {
			rec, err := s.inventory.Get(ctx, roomID, d)
			if errors.Is(err, domain.ErrNotFound) {
				rec = domain.InventoryRecord{
					TenantID: req.TenantID, RoomID: roomID, Date: d,
					Available: true, MinStay: 1, Active: true,
				}
			} else if err != nil {
				fail(roomID, d, err)
				continue
			}

			applyBulkFields(&rec, req)
			rec.MarkDirty()
			logInconsistencies(&rec)
			if err := rec.Validate(); err != nil {
				fail(roomID, d, err)
				continue
			}
			batch = append(batch, rec)
		}
	}

	if len(batch) > 0 {
		if err := s.inventory.BulkUpsert(ctx, batch); err != nil {
			return BulkUpdateResult{}, err
		}
		out.Updated = len(batch)
	}
	return out, nil
}

// logInconsistencies recomputes bookability and surfaces the non-fatal
// inconsistency notes instead of dropping them.
func logInconsistencies(rec *domain.InventoryRecord) {
	for _, note := range rec.Normalize() {
		log.Warn().Int64("room", rec.RoomID).Str("date", rec.DateKey()).
			Str("note", note).Msg("inventory inconsistency")
	}
}

func applyBulkFields(rec *domain.InventoryRecord, req BulkUpdateRequest) {
	if req.Available != nil {
		rec.Available = *req.Available
	}
	if req.Blocked != nil {
		rec.Blocked = *req.Blocked
	}
	if req.OutOfOrder != nil {
		rec.OutOfOrder = *req.OutOfOrder
	}
	if req.Maintenance != nil {
		rec.Maintenance = *req.Maintenance
	}
	if req.ClosedToArrival != nil {
		rec.ClosedToArrival = *req.ClosedToArrival
	}
	if req.ClosedToDeparture != nil {
		rec.ClosedToDeparture = *req.ClosedToDeparture
	}
	if req.MinStay != nil {
		rec.MinStay = *req.MinStay
	}
	if req.MaxStay != nil {
		rec.MaxStay = req.MaxStay
	}
	if req.RateOverride != nil {
		rec.RateOverride = req.RateOverride
	}
	if req.BlockReason != nil {
		rec.BlockReason = req.BlockReason
	}
}

// SetReserved flips the reserved flag for every night of a stay; booking
// creation and cancellation both funnel through here.
func (s *AvailabilityService) SetReserved(ctx context.Context, tenantID, roomID int64, checkIn, checkOut time.Time, reserved bool) error {
	if !checkOut.After(checkIn) {
		return domain.Invalid("check_out", "must be after check_in")
	}
	var batch []domain.InventoryRecord
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		rec, err := s.inventory.Get(ctx, roomID, d)
		if errors.Is(err, domain.ErrNotFound) {
			rec = domain.InventoryRecord{
				TenantID: tenantID, RoomID: roomID, Date: d,
				Available: true, MinStay: 1, Active: true,
			}
		} else if err != nil {
			return err
		}
		rec.Reserved = reserved
		rec.MarkDirty()
		logInconsistencies(&rec)
		batch = append(batch, rec)
	}
	return s.inventory.BulkUpsert(ctx, batch)
}
