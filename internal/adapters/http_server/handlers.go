package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"channelsync/internal/app"
	"channelsync/internal/domain"
)

type Handlers struct {
	Availability *app.AvailabilityService
	Restrictions *app.RestrictionService
	Rates        *app.RateService
	Rooms        *app.RoomService
	Sync         *app.Orchestrator
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/rooms/{id}/availability", h.roomAvailability)
	s.mux.Delete("/v1/rooms/{id}", h.deactivateRoom)
	s.mux.Post("/v1/availability/bulk", h.bulkUpdate)

	s.mux.Post("/v1/reservations/validate", h.validateReservation)
	s.mux.Get("/v1/restrictions/calendar", h.calendar)
	s.mux.Post("/v1/restrictions", h.createRestriction)
	s.mux.Delete("/v1/restrictions/{id}", h.deactivateRestriction)

	s.mux.Post("/v1/rate-plans", h.savePlan)
	s.mux.Get("/v1/rate-plans/{id}/rate", h.calculateRate)
	s.mux.Get("/v1/rate-plans/{id}/yield", h.yieldSuggestion)

	s.mux.Post("/v1/sync/runs", h.startRun)
	s.mux.Get("/v1/sync/runs/{id}", h.getRun)
	s.mux.Delete("/v1/sync/runs/{id}", h.revokeRun)
	s.mux.Get("/v1/sync/pending", h.pendingCount)
	s.mux.Get("/v1/sync/status", h.syncStatus)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainErr maps domain sentinels onto problem responses.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case domain.IsValidation(err):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		log.Error().Err(err).Msg("request failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON body failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func queryDate(r *http.Request, key string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", r.URL.Query().Get(key))
	return t, err == nil
}

func queryInt64(r *http.Request, key string) (*int64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}

/********** availability **********/

func (h *Handlers) roomAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	from, okF := queryDate(r, "from")
	to, okT := queryDate(r, "to")
	if !okF || !okT {
		writeProblem(w, http.StatusBadRequest, "Invalid Range", "from and to must be YYYY-MM-DD")
		return
	}

	out, err := h.Availability.CheckRoomAvailability(r.Context(), id, from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req app.BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	out, err := h.Availability.BulkUpdateAvailability(r.Context(), req)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deactivateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.Rooms.DeactivateRoom(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** restrictions **********/

func (h *Handlers) validateReservation(w http.ResponseWriter, r *http.Request) {
	var req app.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	out, err := h.Restrictions.ValidateReservation(r.Context(), req)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) calendar(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := queryInt64(r, "property_id")
	if !ok || propertyID == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Property", "property_id is required")
		return
	}
	roomID, okR := queryInt64(r, "room_id")
	roomTypeID, okT := queryInt64(r, "room_type_id")
	if !okR || !okT {
		writeProblem(w, http.StatusBadRequest, "Invalid Scope", "room_id and room_type_id must be numbers")
		return
	}
	from, okF := queryDate(r, "from")
	to, okTo := queryDate(r, "to")
	if !okF || !okTo {
		writeProblem(w, http.StatusBadRequest, "Invalid Range", "from and to must be YYYY-MM-DD")
		return
	}

	days, err := h.Restrictions.Calendar(r.Context(), app.CalendarRequest{
		PropertyID: *propertyID, RoomID: roomID, RoomTypeID: roomTypeID, From: from, To: to,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeCached(w, r, days)
}

func (h *Handlers) createRestriction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID   int64                    `json:"tenant_id"`
		PropertyID int64                    `json:"property_id"`
		RoomID     *int64                   `json:"room_id,omitempty"`
		RoomTypeID *int64                   `json:"room_type_id,omitempty"`
		StartDate  string                   `json:"start_date"`
		EndDate    string                   `json:"end_date"`
		Weekdays   *uint8                   `json:"weekdays,omitempty"`
		Type       domain.RestrictionType   `json:"type"`
		Value      *int                     `json:"value,omitempty"`
		Priority   int                      `json:"priority"`
		Source     domain.RestrictionSource `json:"source,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	start, errS := time.Parse("2006-01-02", body.StartDate)
	end, errE := time.Parse("2006-01-02", body.EndDate)
	if errS != nil || errE != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Dates", "start_date and end_date must be YYYY-MM-DD")
		return
	}

	res := domain.Restriction{
		TenantID: body.TenantID, PropertyID: body.PropertyID,
		RoomID: body.RoomID, RoomTypeID: body.RoomTypeID,
		StartDate: start, EndDate: end,
		Type: body.Type, Value: body.Value, Priority: body.Priority,
		Source: body.Source,
	}
	if res.Source == "" {
		res.Source = domain.SourceAPI
	}
	if body.Weekdays != nil {
		m := domain.WeekdayMask(*body.Weekdays)
		res.Weekdays = &m
	}
	if err := h.Restrictions.Create(r.Context(), &res); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": res.ID})
}

func (h *Handlers) deactivateRestriction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.Restrictions.Deactivate(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** rates **********/

func (h *Handlers) savePlan(w http.ResponseWriter, r *http.Request) {
	var plan domain.RatePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.Rates.SavePlan(r.Context(), &plan); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": plan.ID})
}

func (h *Handlers) calculateRate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	occupancy := 2
	if os := r.URL.Query().Get("occupancy"); os != "" {
		n, err := strconv.Atoi(os)
		if err != nil || n < 1 {
			writeProblem(w, http.StatusBadRequest, "Invalid Occupancy", "occupancy must be a positive integer")
			return
		}
		occupancy = n
	}
	var checkIn *time.Time
	if t, ok := queryDate(r, "check_in"); ok {
		checkIn = &t
	}

	rate, err := h.Rates.CalculateRate(r.Context(), id, occupancy, checkIn)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan_id": id, "occupancy": occupancy, "rate": rate})
}

func (h *Handlers) yieldSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	date, ok := queryDate(r, "date")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "date must be YYYY-MM-DD")
		return
	}
	out, err := h.Rates.SuggestYieldAdjustment(r.Context(), id, date)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

/********** sync **********/

func (h *Handlers) startRun(w http.ResponseWriter, r *http.Request) {
	var params domain.SyncRunParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	res, err := h.Sync.RunManual(r.Context(), params)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	status := http.StatusOK
	if params.Async {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (h *Handlers) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	entry, err := h.Sync.GetRun(r.Context(), runID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      entry.RunID,
		"kind":        entry.Kind,
		"status":      entry.Status,
		"processed":   entry.Processed,
		"succeeded":   entry.Succeeded,
		"failed":      entry.Failed,
		"started_at":  entry.StartedAt,
		"duration_ms": entry.Duration.Milliseconds(),
	})
}

func (h *Handlers) revokeRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if !h.Sync.RevokeRun(runID) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no running job with that id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) pendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Sync.GetPendingCount(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending": n})
}

func (h *Handlers) syncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Sync.HealthCheck(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
