package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"channelsync/internal/adapters/observability"
	"channelsync/internal/domain"
)

// OrchestratorConfig bounds every scheduled pass. The external call budget is
// a soft limit enforced here and by the client's own pacing.
type OrchestratorConfig struct {
	BatchSize      int           // records selected per config per pass
	RetryBatchSize int           // errored records per retry sweep
	MaxRetries     int           // mapping error count beyond which we stop retrying
	ErrorListCap   int           // truncation bound for returned error lists
	JobTimeout     time.Duration // soft per-job limit; an expired job leaves records pending
	FullWindowDays int           // reconciliation window for full runs
	PullWindowDays int           // inbound pull window
	LogRetention   time.Duration
}

func (c *OrchestratorConfig) withDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.RetryBatchSize <= 0 {
		c.RetryBatchSize = 100
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.ErrorListCap <= 0 {
		c.ErrorListCap = 20
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 5 * time.Minute
	}
	if c.FullWindowDays <= 0 {
		c.FullWindowDays = 365
	}
	if c.PullWindowDays <= 0 {
		c.PullWindowDays = 30
	}
	if c.LogRetention <= 0 {
		c.LogRetention = 30 * 24 * time.Hour
	}
}

const syncEventSubject = "channelsync.sync.completed"

// Orchestrator discovers pending work, pushes it in date-grouped batches,
// writes outcomes back per record, and runs the maintenance passes.
// Consistency comes from the idempotent per-record flags: replaying a push of
// already-synced values is a safe no-op.
type Orchestrator struct {
	cfg OrchestratorConfig

	inventory    domain.InventoryRepository
	mappings     domain.MappingRepository
	restrictions domain.RestrictionRepository
	rooms        domain.RoomRepository
	configs      domain.ConfigRepository
	logs         domain.SyncLogRepository
	client       domain.ChannelClient
	notifier     domain.Notifier
	now          func() time.Time

	mu      sync.Mutex
	running map[string]context.CancelFunc // manual async runs, revocable
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	inv domain.InventoryRepository,
	maps domain.MappingRepository,
	restr domain.RestrictionRepository,
	rooms domain.RoomRepository,
	configs domain.ConfigRepository,
	logs domain.SyncLogRepository,
	client domain.ChannelClient,
	notifier domain.Notifier,
) *Orchestrator {
	cfg.withDefaults()
	return &Orchestrator{
		cfg: cfg, inventory: inv, mappings: maps, restrictions: restr,
		rooms: rooms, configs: configs, logs: logs, client: client,
		notifier: notifier, now: time.Now,
		running: make(map[string]context.CancelFunc),
	}
}

/********** scheduled entry points **********/

// RunIncremental pushes pending records for every active configuration.
func (o *Orchestrator) RunIncremental(ctx context.Context) {
	o.runAll(ctx, domain.SyncIncremental, false)
}

// RunFull reconciles a wide window for every active configuration and pulls
// the external state back for diff-driven repair.
func (o *Orchestrator) RunFull(ctx context.Context, forceAll bool) {
	o.runAll(ctx, domain.SyncFull, forceAll)
}

func (o *Orchestrator) runAll(ctx context.Context, kind domain.SyncKind, forceAll bool) {
	cfgs, err := o.configs.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("config listing failed, skipping pass")
		return
	}
	for _, cfg := range cfgs {
		res := o.runConfig(ctx, cfg, kind, forceAll, o.cfg.BatchSize)
		log.Info().
			Str("run", res.RunID).
			Int64("config", cfg.ID).
			Str("kind", string(kind)).
			Int("processed", res.Processed).
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Dur("took", res.Duration).
			Msg("sync pass done")
		if kind == domain.SyncFull {
			o.pullConfig(ctx, cfg)
		}
	}
}

// RetrySweep re-pushes errored records, bounded in items and in retries per
// mapping. Fixed backoff comes from the sweep cadence itself, never from
// immediate re-tries.
func (o *Orchestrator) RetrySweep(ctx context.Context) {
	cfgs, err := o.configs.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("config listing failed, skipping retry sweep")
		return
	}
	for _, cfg := range cfgs {
		res := o.runConfig(ctx, cfg, domain.SyncRetry, false, o.cfg.RetryBatchSize)
		if res.Processed > 0 {
			log.Info().Int64("config", cfg.ID).Int("retried", res.Processed).
				Int("recovered", res.Succeeded).Msg("retry sweep done")
		}
	}
}

// Cleanup trims old sync logs and soft-removes orphan mappings so they stop
// being retried.
func (o *Orchestrator) Cleanup(ctx context.Context) {
	cutoff := o.now().Add(-o.cfg.LogRetention)
	if n, err := o.logs.DeleteBefore(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("sync log cleanup failed")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("sync logs trimmed")
	}

	cfgs, err := o.configs.ListActive(ctx)
	if err != nil {
		return
	}
	seen := make(map[int64]bool)
	for _, cfg := range cfgs {
		if seen[cfg.TenantID] {
			continue
		}
		seen[cfg.TenantID] = true
		orphans, err := o.mappings.ListOrphans(ctx, cfg.TenantID)
		if err != nil {
			log.Error().Int64("tenant", cfg.TenantID).Err(err).Msg("orphan sweep failed")
			continue
		}
		for _, m := range orphans {
			if _, err := o.mappings.MarkDeletionPending(ctx, m.RoomID); err != nil {
				log.Error().Int64("mapping", m.ID).Err(err).Msg("orphan mark failed")
			}
		}
		if len(orphans) > 0 {
			log.Warn().Int64("tenant", cfg.TenantID).Int("orphans", len(orphans)).
				Msg("orphan mappings queued for removal")
		}
	}
}

/********** manual runs **********/

// RunManual executes an operator-initiated run. Async runs return immediately
// with the run id and pending count; their outcome lands in the sync log.
func (o *Orchestrator) RunManual(ctx context.Context, params domain.SyncRunParams) (domain.SyncRunResult, error) {
	batch := params.BatchSize
	if batch <= 0 || batch > o.cfg.BatchSize {
		batch = o.cfg.BatchSize
	}

	pending, err := o.inventory.CountPending(ctx, params.PropertyID)
	if err != nil {
		return domain.SyncRunResult{}, err
	}

	var cfgs []domain.ChannelConfig
	if params.PropertyID != nil {
		cfg, err := o.configs.ActiveForProperty(ctx, *params.PropertyID)
		if err != nil {
			return domain.SyncRunResult{}, err
		}
		cfgs = []domain.ChannelConfig{cfg}
	} else {
		if cfgs, err = o.configs.ListActive(ctx); err != nil {
			return domain.SyncRunResult{}, err
		}
	}

	runID := uuid.NewString()
	if params.Async {
		runCtx, cancel := context.WithCancel(context.Background())
		o.mu.Lock()
		o.running[runID] = cancel
		o.mu.Unlock()
		go func() {
			defer func() {
				o.mu.Lock()
				delete(o.running, runID)
				o.mu.Unlock()
				cancel()
			}()
			for _, cfg := range cfgs {
				o.runConfigAs(runCtx, cfg, runID, domain.SyncManual, params.ForceAll, batch)
			}
		}()
		return domain.SyncRunResult{RunID: runID, Pending: pending}, nil
	}

	total := domain.SyncRunResult{RunID: runID, Pending: pending}
	for _, cfg := range cfgs {
		res := o.runConfigAs(ctx, cfg, runID, domain.SyncManual, params.ForceAll, batch)
		total.Processed += res.Processed
		total.Succeeded += res.Succeeded
		total.Failed += res.Failed
		total.Duration += res.Duration
		for _, e := range res.Errors {
			if len(total.Errors) >= o.cfg.ErrorListCap {
				total.Truncated = true
				break
			}
			total.Errors = append(total.Errors, e)
		}
	}
	return total, nil
}

// RevokeRun cancels an in-flight manual async run. Already-committed batches
// stay committed.
func (o *Orchestrator) RevokeRun(runID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cancel, ok := o.running[runID]
	if ok {
		cancel()
		delete(o.running, runID)
	}
	return ok
}

func (o *Orchestrator) GetRun(ctx context.Context, runID string) (domain.SyncLog, error) {
	return o.logs.GetByRunID(ctx, runID)
}

func (o *Orchestrator) GetPendingCount(ctx context.Context) (int, error) {
	return o.inventory.CountPending(ctx, nil)
}

/********** the push pipeline **********/

func (o *Orchestrator) runConfig(ctx context.Context, cfg domain.ChannelConfig, kind domain.SyncKind, forceAll bool, batch int) domain.SyncRunResult {
	return o.runConfigAs(ctx, cfg, uuid.NewString(), kind, forceAll, batch)
}

func (o *Orchestrator) runConfigAs(ctx context.Context, cfg domain.ChannelConfig, runID string, kind domain.SyncKind, forceAll bool, batch int) domain.SyncRunResult {
	started := o.now()
	res := domain.SyncRunResult{RunID: runID}

	// Soft per-job limit: a runaway job is cut off and leaves its remaining
	// records pending for the next pass.
	ctx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout)
	defer cancel()

	ready, err := o.mappings.ListReady(ctx, cfg.ID)
	if err != nil {
		o.finish(ctx, cfg, kind, started, &res, err)
		return res
	}
	byRoom := make(map[int64]*domain.RoomMapping, len(ready))
	for i := range ready {
		m := &ready[i]
		if m.SyncErrorCount > o.cfg.MaxRetries {
			continue // surfaced via health score instead of retrying forever
		}
		byRoom[m.RoomID] = m
	}

	records, err := o.selectRecords(ctx, cfg, kind, forceAll, batch)
	if err != nil {
		o.finish(ctx, cfg, kind, started, &res, err)
		return res
	}

	// Group by calendar date to minimize external calls.
	groups := make(map[string][]domain.InventoryRecord)
	for _, rec := range records {
		if byRoom[rec.RoomID] == nil {
			continue // unmapped rooms stay pending until a mapping exists
		}
		groups[rec.DateKey()] = append(groups[rec.DateKey()], rec)
	}
	dates := make([]string, 0, len(groups))
	for d := range groups {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	baseRates := make(map[int64]float64)
	touched := make(map[int64]*domain.RoomMapping)

	for _, date := range dates {
		if ctx.Err() != nil {
			break
		}
		group := groups[date]
		items := make([]map[string]any, 0, len(group))
		ids := make([]int64, 0, len(group))
		sent := make([]*domain.InventoryRecord, 0, len(group))
		for i := range group {
			rec := &group[i]
			m := byRoom[rec.RoomID]
			base, err := o.baseRate(ctx, rec.RoomID, baseRates)
			if err != nil {
				o.markFailed(ctx, rec, err, &res)
				continue
			}
			items = append(items, BuildPushPayload(rec, m, base))
			ids = append(ids, rec.ID)
			sent = append(sent, rec)
			touched[m.ID] = m
		}
		if len(items) == 0 {
			continue
		}

		if err := o.client.PushInventory(ctx, cfg, date, items); err != nil {
			// One failed date group never blocks its siblings. Only the records
			// that made it into the call are swept; ones already failed above
			// keep their own error and counts.
			for _, rec := range sent {
				o.markFailed(ctx, rec, err, &res)
			}
			observability.ObserveSyncRecords(string(kind), "failed", len(sent))
			continue
		}

		// Commit outcomes per batch, not per record.
		if err := o.inventory.MarkSynced(ctx, ids, o.now()); err != nil {
			log.Error().Err(err).Str("date", date).Msg("outcome commit failed")
			res.Failed += len(ids)
			continue
		}
		res.Processed += len(ids)
		res.Succeeded += len(ids)
		observability.ObserveSyncRecords(string(kind), "succeeded", len(ids))
	}

	// Stamp aspect sync times for mappings that took part.
	at := o.now()
	for id, m := range touched {
		for _, a := range []domain.SyncAspect{domain.AspectAvailability, domain.AspectRates, domain.AspectRestrictions} {
			if m.AspectEnabled(a) {
				if err := o.mappings.MarkAspectSynced(ctx, id, a, at); err != nil {
					log.Error().Int64("mapping", id).Err(err).Msg("aspect stamp failed")
				}
			}
		}
	}

	o.pushRestrictions(ctx, cfg, byRoom, batch, &res)
	o.pushRemovals(ctx, cfg, &res)
	o.finish(ctx, cfg, kind, started, &res, nil)
	return res
}

// pushRestrictions expands pending restriction rules across their mapped rooms
// and covered dates and pushes them in the same date-grouped wire shape. A
// rule stays pending until every date group it appears in goes through;
// deactivated rules push their lifted values once and then leave the queue.
func (o *Orchestrator) pushRestrictions(ctx context.Context, cfg domain.ChannelConfig, byRoom map[int64]*domain.RoomMapping, batch int, res *domain.SyncRunResult) {
	pending, err := o.restrictions.ListPending(ctx, &cfg.PropertyID, batch)
	if err != nil {
		log.Error().Int64("config", cfg.ID).Err(err).Msg("restriction listing failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	from := o.now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, o.cfg.FullWindowDays)

	roomTypes := make(map[int64]*int64)
	groups := make(map[string][]map[string]any)
	ruleDates := make(map[int64][]string)

	for i := range pending {
		r := &pending[i]
		for roomID, m := range byRoom {
			if !m.AspectEnabled(domain.AspectRestrictions) {
				continue
			}
			rt, ok := roomTypes[roomID]
			if !ok {
				room, err := o.rooms.Get(ctx, roomID)
				if err != nil {
					continue
				}
				rt = room.RoomTypeID
				roomTypes[roomID] = rt
			}
			id := roomID
			if !r.MatchesScope(&id, rt) {
				continue
			}
			start, end := r.StartDate, r.EndDate
			if start.Before(from) {
				start = from
			}
			if end.After(to) {
				end = to
			}
			for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
				if !r.AppliesOn(d) {
					continue
				}
				key := d.Format("2006-01-02")
				groups[key] = append(groups[key], BuildRestrictionItem(r, m.ExternalRoomID, key))
				ruleDates[r.ID] = append(ruleDates[r.ID], key)
			}
		}
	}

	dates := make([]string, 0, len(groups))
	for d := range groups {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	failed := make(map[string]bool)
	for _, date := range dates {
		if ctx.Err() != nil {
			return
		}
		if err := o.client.PushInventory(ctx, cfg, date, groups[date]); err != nil {
			failed[date] = true
			if len(res.Errors) < o.cfg.ErrorListCap {
				res.Errors = append(res.Errors, fmt.Sprintf("restrictions %s: %v", date, err))
			}
		}
	}

	okIDs := make([]int64, 0, len(pending))
	for i := range pending {
		r := &pending[i]
		clean := true
		for _, d := range ruleDates[r.ID] {
			if failed[d] {
				clean = false
				break
			}
		}
		if clean {
			okIDs = append(okIDs, r.ID)
		}
	}
	if len(okIDs) > 0 {
		if err := o.restrictions.MarkSynced(ctx, okIDs, o.now()); err != nil {
			log.Error().Int64("config", cfg.ID).Err(err).Msg("restriction outcome commit failed")
		}
	}
	log.Info().Int64("config", cfg.ID).Int("rules", len(pending)).Int("synced", len(okIDs)).
		Int("failed", len(pending)-len(okIDs)).Msg("restriction push done")
}

func (o *Orchestrator) selectRecords(ctx context.Context, cfg domain.ChannelConfig, kind domain.SyncKind, forceAll bool, batch int) ([]domain.InventoryRecord, error) {
	switch {
	case kind == domain.SyncRetry:
		return o.inventory.ListErrored(ctx, &cfg.PropertyID, batch)
	case forceAll || kind == domain.SyncFull:
		from := o.now().Truncate(24 * time.Hour)
		to := from.AddDate(0, 0, o.cfg.FullWindowDays)
		if forceAll {
			return o.inventory.ListForProperty(ctx, cfg.PropertyID, from, to, batch)
		}
		// Full-but-not-forced still honors the pending claim flag, just with
		// the wider selection cap.
		return o.inventory.ListPending(ctx, &cfg.PropertyID, batch)
	default:
		return o.inventory.ListPending(ctx, &cfg.PropertyID, batch)
	}
}

func (o *Orchestrator) baseRate(ctx context.Context, roomID int64, cache map[int64]float64) (float64, error) {
	if r, ok := cache[roomID]; ok {
		return r, nil
	}
	room, err := o.rooms.Get(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("room %d lookup: %w", roomID, err)
	}
	cache[roomID] = room.BaseRate
	return room.BaseRate, nil
}

func (o *Orchestrator) markFailed(ctx context.Context, rec *domain.InventoryRecord, cause error, res *domain.SyncRunResult) {
	res.Processed++
	res.Failed++
	if len(res.Errors) < o.cfg.ErrorListCap {
		res.Errors = append(res.Errors, fmt.Sprintf("room %d %s: %v", rec.RoomID, rec.DateKey(), cause))
	} else {
		res.Truncated = true
	}
	if err := o.inventory.MarkSyncError(ctx, rec.ID, cause.Error()); err != nil {
		log.Error().Int64("record", rec.ID).Err(err).Msg("error bookkeeping failed")
	}
}

// pushRemovals pushes the outward removal for deletion-pending mappings and
// converts them to confirmed-removed (deactivated) once the remote accepts.
func (o *Orchestrator) pushRemovals(ctx context.Context, cfg domain.ChannelConfig, res *domain.SyncRunResult) {
	doomed, err := o.mappings.ListDeletionPending(ctx, cfg.ID, o.cfg.RetryBatchSize)
	if err != nil {
		log.Error().Int64("config", cfg.ID).Err(err).Msg("removal listing failed")
		return
	}
	for _, m := range doomed {
		if ctx.Err() != nil {
			return
		}
		if m.SyncErrorCount > o.cfg.MaxRetries {
			continue
		}
		if err := o.client.RemoveRoom(ctx, cfg, m.ExternalRoomID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			if rerr := o.mappings.RecordError(ctx, m.ID, err.Error()); rerr != nil {
				log.Error().Int64("mapping", m.ID).Err(rerr).Msg("removal bookkeeping failed")
			}
			if len(res.Errors) < o.cfg.ErrorListCap {
				res.Errors = append(res.Errors, fmt.Sprintf("remove room %s: %v", m.ExternalRoomID, err))
			}
			continue
		}
		// Gone remotely (or never existed there): confirmed removed.
		if err := o.mappings.Deactivate(ctx, m.ID); err != nil {
			log.Error().Int64("mapping", m.ID).Err(err).Msg("mapping deactivate failed")
		}
	}
}

func (o *Orchestrator) finish(ctx context.Context, cfg domain.ChannelConfig, kind domain.SyncKind, started time.Time, res *domain.SyncRunResult, fatal error) {
	res.Duration = o.now().Sub(started)

	status := "ok"
	var errText *string
	switch {
	case fatal != nil:
		status = "failed"
		t := fatal.Error()
		errText = &t
	case res.Failed > 0:
		status = "partial"
	}
	observability.ObserveSyncRun(string(kind), status)

	entry := domain.SyncLog{
		RunID: res.RunID, ConfigID: cfg.ID, Kind: kind, Status: status,
		Processed: res.Processed, Succeeded: res.Succeeded, Failed: res.Failed,
		Error: errText, StartedAt: started, Duration: res.Duration,
	}
	if err := o.logs.Insert(ctx, &entry); err != nil {
		log.Error().Err(err).Msg("sync log insert failed")
	}

	// Best-effort completion event; an unreachable bus never fails the sync.
	if o.notifier != nil {
		ev := domain.SyncEvent{
			RunID: res.RunID, ConfigID: cfg.ID, Kind: kind,
			Processed: res.Processed, Succeeded: res.Succeeded, Failed: res.Failed,
			At: o.now(),
		}
		if err := o.notifier.Publish(ctx, syncEventSubject, ev); err != nil {
			log.Warn().Err(err).Msg("sync notification dropped")
		}
	}
}

/********** inbound pull **********/

// pullConfig fetches the external state for the pull window and applies each
// item to the matching local record. One bad item never aborts the batch.
func (o *Orchestrator) pullConfig(ctx context.Context, cfg domain.ChannelConfig) {
	from := o.now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, o.cfg.PullWindowDays)

	items, err := o.client.PullInventory(ctx, cfg, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		log.Error().Int64("config", cfg.ID).Err(err).Msg("inbound pull failed")
		return
	}

	valid, rejected := ValidateItems(items)
	for _, bad := range rejected {
		log.Warn().Int64("config", cfg.ID).Int("index", bad.Index).Str("reason", bad.Reason).
			Msg("pulled item rejected")
	}

	applied, failed := 0, 0
	for _, item := range valid {
		if ctx.Err() != nil {
			return
		}
		if err := o.applyPulled(ctx, cfg, item); err != nil {
			failed++
		} else {
			applied++
		}
	}
	log.Info().Int64("config", cfg.ID).Int("applied", applied).Int("failed", failed).
		Int("rejected", len(rejected)).Msg("inbound pull done")
}

func (o *Orchestrator) applyPulled(ctx context.Context, cfg domain.ChannelConfig, item map[string]any) error {
	extID, _ := wireString(mustLookup(item, "room_id"))
	dateStr, _ := wireString(mustLookup(item, "date"))
	date, _ := time.Parse("2006-01-02", dateStr)

	m, err := o.mappings.GetByExternalRoom(ctx, cfg.ID, extID)
	if err != nil {
		log.Warn().Str("external_room", extID).Err(err).Msg("pulled item has no mapping")
		return err
	}

	rec, err := o.inventory.Get(ctx, m.RoomID, date)
	if errors.Is(err, domain.ErrNotFound) {
		rec = domain.InventoryRecord{
			TenantID: m.TenantID, RoomID: m.RoomID, Date: date,
			Available: true, MinStay: 1, Active: true,
		}
	} else if err != nil {
		return err
	}

	if rec.SyncPending {
		// Known gap: concurrent outbound push for this room/date races this
		// apply; last successful write wins.
		log.Debug().Int64("room", m.RoomID).Str("date", dateStr).Msg("inbound apply over pending record")
	}

	if err := ApplyInbound(&rec, &m, item); err != nil {
		// Record the failure on the row instead of propagating, so one bad
		// item never aborts the batch.
		rec.MarkSyncFailed(err.Error())
		if uerr := o.inventory.Upsert(ctx, &rec); uerr != nil {
			log.Error().Int64("room", m.RoomID).Err(uerr).Msg("inbound error bookkeeping failed")
		}
		return err
	}

	rec.MarkSynced(o.now())
	return o.inventory.Upsert(ctx, &rec)
}

/********** health **********/

// HealthCheck scores every active configuration and aggregates to the worst.
func (o *Orchestrator) HealthCheck(ctx context.Context) (domain.SyncStatus, error) {
	cfgs, err := o.configs.ListActive(ctx)
	if err != nil {
		return domain.SyncStatus{Overall: domain.HealthUnknown}, err
	}

	status := domain.SyncStatus{Overall: domain.HealthHealthy, AsOf: o.now()}
	for _, cfg := range cfgs {
		h := o.scoreConfig(ctx, cfg)
		status.Configs = append(status.Configs, h)
		switch {
		case h.Status == domain.HealthCritical:
			status.Overall = domain.HealthCritical
		case h.Status == domain.HealthWarning && status.Overall == domain.HealthHealthy:
			status.Overall = domain.HealthWarning
		}
	}
	return status, nil
}

func (o *Orchestrator) scoreConfig(ctx context.Context, cfg domain.ChannelConfig) domain.ConfigHealth {
	h := domain.ConfigHealth{ConfigID: cfg.ID, Status: domain.HealthHealthy}

	if err := o.client.Ping(ctx, cfg); err != nil {
		if merr := o.configs.MarkConnected(ctx, cfg.ID, false); merr != nil {
			log.Error().Int64("config", cfg.ID).Err(merr).Msg("connectivity bookkeeping failed")
		}
		h.Status = domain.HealthCritical
		return h
	}
	if !cfg.Connected {
		if merr := o.configs.MarkConnected(ctx, cfg.ID, true); merr != nil {
			log.Error().Int64("config", cfg.ID).Err(merr).Msg("connectivity bookkeeping failed")
		}
	}

	pending, err := o.inventory.CountPending(ctx, &cfg.PropertyID)
	if err != nil {
		h.Status = domain.HealthUnknown
		return h
	}
	errored, err := o.inventory.CountErrored(ctx, &cfg.PropertyID)
	if err != nil {
		h.Status = domain.HealthUnknown
		return h
	}
	total, err := o.inventory.CountActive(ctx, &cfg.PropertyID)
	if err != nil {
		h.Status = domain.HealthUnknown
		return h
	}

	h.Pending, h.Errored = pending, errored
	if total > 0 {
		h.ErrorRate = float64(errored) / float64(total)
		h.PendingRate = float64(pending) / float64(total)
	}
	observability.SetSyncPending(cfg.ID, pending)

	errThreshold := cfg.ErrorThreshold
	if errThreshold <= 0 {
		errThreshold = 0.1
	}
	pendThreshold := cfg.PendingThreshold
	if pendThreshold <= 0 {
		pendThreshold = 0.25
	}
	switch {
	case h.ErrorRate >= errThreshold:
		h.Status = domain.HealthCritical
	case h.PendingRate >= pendThreshold:
		h.Status = domain.HealthWarning
	}
	return h
}
