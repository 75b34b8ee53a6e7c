package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"channelsync/internal/domain"
)

/********** wire aliases (single source of truth) **********/

// Channel managers are loose about field names; accept the common variants.
var wireAliases = map[string][]string{
	"room_id":        {"room_id", "roomId", "room", "external_room_id"},
	"date":           {"date", "day", "stay_date"},
	"availability":   {"availability", "avail", "available", "inventory"},
	"cta":            {"closed_to_arrival", "cta", "closed_arrival"},
	"ctd":            {"closed_to_departure", "ctd", "closed_departure"},
	"min_stay":       {"min_stay", "minimum_stay", "min_los"},
	"max_stay":       {"max_stay", "maximum_stay", "max_los"},
	"rate":           {"rate", "price", "amount"},
	"stop_sell":      {"stop_sell", "stopsell", "closed"},
}

const channelBlockReason = "closed via channel"

/********** coercion helpers **********/

func lookupWire(m map[string]any, key string) (any, bool) {
	for _, k := range wireAliases[key] {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// wireBool accepts {0,1,true,false} in boolean, numeric, or string form.
func wireBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	case int:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "0", "false":
			return false, true
		case "1", "true":
			return true, true
		}
	}
	return false, false
}

func wireFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func wireInt(v any) (int, bool) {
	if f, ok := wireFloat(v); ok {
		return int(f), true
	}
	return 0, false
}

func wireString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

/********** outbound **********/

// BuildPushPayload converts one inventory record into the external wire shape.
// Aspects disabled on the mapping are omitted from the payload. baseRate is
// the room's base nightly rate, used when the record carries no override.
func BuildPushPayload(rec *domain.InventoryRecord, m *domain.RoomMapping, baseRate float64) map[string]any {
	out := map[string]any{
		"room_id": m.ExternalRoomID,
		"date":    rec.DateKey(),
	}

	if m.SyncAvailability {
		avail := 0
		if rec.IsBookable {
			avail = 1
		}
		out["availability"] = avail
	}

	if m.SyncRestrictions {
		out["closed_to_arrival"] = rec.ClosedToArrival
		out["closed_to_departure"] = rec.ClosedToDeparture
		out["min_stay"] = rec.MinStay
		if rec.MaxStay != nil {
			out["max_stay"] = *rec.MaxStay
		}
	}

	if m.SyncRates {
		rate := baseRate
		if rec.RateOverride != nil {
			rate = *rec.RateOverride
		}
		if m.RateOverride != nil {
			rate = *m.RateOverride
		}
		out["rate"] = domain.Round2(rate * m.Multiplier())
	}

	return out
}

// BuildRestrictionItem converts one restriction rule into the wire shape for a
// single external room and date. A deactivated rule pushes the lifted value so
// the channel stops enforcing it.
func BuildRestrictionItem(r *domain.Restriction, externalRoomID, date string) map[string]any {
	item := map[string]any{
		"room_id": externalRoomID,
		"date":    date,
	}
	lifted := !r.Active
	val := func(cleared int) int {
		if lifted || r.Value == nil {
			return cleared
		}
		return *r.Value
	}
	switch r.Type {
	case domain.RestrictionMinStay:
		item["min_stay"] = val(1)
	case domain.RestrictionMaxStay:
		item["max_stay"] = val(0) // 0 means no cap
	case domain.RestrictionCTA:
		item["closed_to_arrival"] = !lifted
	case domain.RestrictionCTD:
		item["closed_to_departure"] = !lifted
	case domain.RestrictionStopSell:
		item["stop_sell"] = !lifted
	case domain.RestrictionMinAdvance:
		item["min_advance"] = val(0)
	case domain.RestrictionMaxAdvance:
		item["max_advance"] = val(0)
	}
	return item
}

/********** inbound **********/

// ApplyInbound patches a local record from one external item. Zero
// availability implies blocked with a standard reason; rates are divided by
// the mapping multiplier to recover the local value. The caller marks sync
// success or failure on the record.
func ApplyInbound(rec *domain.InventoryRecord, m *domain.RoomMapping, item map[string]any) error {
	if m.SyncAvailability {
		if v, ok := lookupWire(item, "availability"); ok {
			n, ok := wireInt(v)
			if !ok {
				return fmt.Errorf("availability not coercible: %v", v)
			}
			rec.Available = n > 0
			if n == 0 {
				rec.Blocked = true
				reason := channelBlockReason
				rec.BlockReason = &reason
			} else {
				rec.Blocked = false
				rec.BlockReason = nil
			}
		}
		if v, ok := lookupWire(item, "stop_sell"); ok {
			if b, ok := wireBool(v); ok && b {
				rec.Blocked = true
				reason := channelBlockReason
				rec.BlockReason = &reason
			}
		}
	}

	if m.SyncRestrictions {
		if v, ok := lookupWire(item, "cta"); ok {
			b, ok := wireBool(v)
			if !ok {
				return fmt.Errorf("closed_to_arrival not boolean-ish: %v", v)
			}
			rec.ClosedToArrival = b
		}
		if v, ok := lookupWire(item, "ctd"); ok {
			b, ok := wireBool(v)
			if !ok {
				return fmt.Errorf("closed_to_departure not boolean-ish: %v", v)
			}
			rec.ClosedToDeparture = b
		}
		if v, ok := lookupWire(item, "min_stay"); ok {
			if n, ok := wireInt(v); ok && n >= 1 {
				rec.MinStay = n
			}
		}
		if v, ok := lookupWire(item, "max_stay"); ok {
			if n, ok := wireInt(v); ok && n >= 1 {
				ms := n
				rec.MaxStay = &ms
			}
		}
	}

	if m.SyncRates {
		if v, ok := lookupWire(item, "rate"); ok {
			f, ok := wireFloat(v)
			if !ok {
				return fmt.Errorf("rate not numeric: %v", v)
			}
			local := domain.Round2(f / m.Multiplier())
			if local > 0 {
				rec.RateOverride = &local
			}
		}
	}

	for _, note := range rec.Normalize() {
		log.Warn().Int64("room", rec.RoomID).Str("date", rec.DateKey()).
			Str("note", note).Msg("inventory inconsistency")
	}
	return nil
}

/********** validation **********/

// ItemError is one rejected wire item: its index in the batch plus the reason.
type ItemError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ValidateItems screens a pulled batch. Invalid items are collected with
// index and reason and excluded; the batch continues with the remainder.
func ValidateItems(items []map[string]any) (valid []map[string]any, rejected []ItemError) {
	for i, item := range items {
		if reason := validateItem(item); reason != "" {
			rejected = append(rejected, ItemError{Index: i, Reason: reason})
			continue
		}
		valid = append(valid, item)
	}
	return valid, rejected
}

func validateItem(item map[string]any) string {
	v, ok := lookupWire(item, "room_id")
	if !ok {
		return "missing room_id"
	}
	if _, ok := wireString(v); !ok {
		return "room_id not a string or number"
	}

	v, ok = lookupWire(item, "date")
	if !ok {
		return "missing date"
	}
	s, _ := wireString(v)
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Sprintf("unparseable date %q", s)
	}

	if v, ok := lookupWire(item, "availability"); ok {
		if _, good := wireInt(v); !good {
			return "availability not numeric"
		}
	}
	for _, key := range []string{"cta", "ctd", "stop_sell"} {
		if v, ok := lookupWire(item, key); ok {
			if _, good := wireBool(v); !good {
				return fmt.Sprintf("%s not in {0,1,true,false}", wireAliases[key][0])
			}
		}
	}
	if v, ok := lookupWire(item, "rate"); ok {
		if _, good := wireFloat(v); !good {
			return "rate not numeric"
		}
	}
	return ""
}

/********** diffing **********/

// DiffEntry is one divergence between local and external state.
type DiffEntry struct {
	RoomID string `json:"room_id"` // external id
	Date   string `json:"date"`
	Field  string `json:"field"`
	Local  any    `json:"local"`
	External any  `json:"external"`
}

type DiffReport struct {
	Differences     []DiffEntry `json:"differences"`
	MissingExternal []string    `json:"missing_in_external,omitempty"`
	MissingLocal    []string    `json:"missing_in_local,omitempty"`
	Truncated       bool        `json:"truncated,omitempty"`
}

const diffCap = 50

// DiffRecords classifies (room, date) keys as value-difference, missing in
// external, or missing locally. Compares availability, closures and min_stay.
// Capped to bound reconciliation report size.
func DiffRecords(local []domain.InventoryRecord, mappings map[int64]*domain.RoomMapping, external []map[string]any) DiffReport {
	var rep DiffReport
	count := 0
	over := func() bool {
		count++
		if count > diffCap {
			rep.Truncated = true
			return true
		}
		return false
	}

	localByKey := make(map[string]domain.InventoryRecord, len(local))
	for _, rec := range local {
		m, ok := mappings[rec.RoomID]
		if !ok {
			continue
		}
		localByKey[m.ExternalRoomID+"|"+rec.DateKey()] = rec
	}

	seen := make(map[string]bool, len(external))
	for _, item := range external {
		rid, _ := wireString(mustLookup(item, "room_id"))
		ds, _ := wireString(mustLookup(item, "date"))
		key := rid + "|" + ds
		seen[key] = true

		rec, ok := localByKey[key]
		if !ok {
			if over() {
				return rep
			}
			rep.MissingLocal = append(rep.MissingLocal, key)
			continue
		}

		localAvail := 0
		if rec.IsBookable {
			localAvail = 1
		}
		if v, ok := lookupWire(item, "availability"); ok {
			if n, good := wireInt(v); good && n != localAvail {
				if over() {
					return rep
				}
				rep.Differences = append(rep.Differences, DiffEntry{RoomID: rid, Date: ds, Field: "availability", Local: localAvail, External: n})
			}
		}
		if v, ok := lookupWire(item, "cta"); ok {
			if b, good := wireBool(v); good && b != rec.ClosedToArrival {
				if over() {
					return rep
				}
				rep.Differences = append(rep.Differences, DiffEntry{RoomID: rid, Date: ds, Field: "closed_to_arrival", Local: rec.ClosedToArrival, External: b})
			}
		}
		if v, ok := lookupWire(item, "ctd"); ok {
			if b, good := wireBool(v); good && b != rec.ClosedToDeparture {
				if over() {
					return rep
				}
				rep.Differences = append(rep.Differences, DiffEntry{RoomID: rid, Date: ds, Field: "closed_to_departure", Local: rec.ClosedToDeparture, External: b})
			}
		}
		if v, ok := lookupWire(item, "min_stay"); ok {
			if n, good := wireInt(v); good && n != rec.MinStay {
				if over() {
					return rep
				}
				rep.Differences = append(rep.Differences, DiffEntry{RoomID: rid, Date: ds, Field: "min_stay", Local: rec.MinStay, External: n})
			}
		}
	}

	for key := range localByKey {
		if !seen[key] {
			if over() {
				return rep
			}
			rep.MissingExternal = append(rep.MissingExternal, key)
		}
	}
	return rep
}

func mustLookup(m map[string]any, key string) any {
	v, _ := lookupWire(m, key)
	return v
}
