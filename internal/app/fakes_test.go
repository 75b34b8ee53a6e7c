package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"channelsync/internal/domain"
)

// ---- shared fakes ----

func pint(i int) *int           { return &i }
func pint64(i int64) *int64     { return &i }
func pfloat(f float64) *float64 { return &f }

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

type fakeInventory struct {
	mu      sync.Mutex
	records map[string]domain.InventoryRecord // roomID|date
	nextID  int64

	occupied, totalRooms int
	failUpsert           error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{records: map[string]domain.InventoryRecord{}}
}

func invKey(roomID int64, d time.Time) string {
	return fmt.Sprintf("%d|%s", roomID, d.Format("2006-01-02"))
}

func (f *fakeInventory) put(rec domain.InventoryRecord) domain.InventoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == 0 {
		f.nextID++
		rec.ID = f.nextID
	}
	f.records[invKey(rec.RoomID, rec.Date)] = rec
	return rec
}

func (f *fakeInventory) Upsert(_ context.Context, rec *domain.InventoryRecord) error {
	if f.failUpsert != nil {
		return f.failUpsert
	}
	*rec = f.put(*rec)
	return nil
}

func (f *fakeInventory) BulkUpsert(_ context.Context, recs []domain.InventoryRecord) error {
	if f.failUpsert != nil {
		return f.failUpsert
	}
	for _, r := range recs {
		f.put(r)
	}
	return nil
}

func (f *fakeInventory) Get(_ context.Context, roomID int64, d time.Time) (domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[invKey(roomID, d)]
	if !ok {
		return domain.InventoryRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeInventory) GetRange(_ context.Context, roomID int64, from, to time.Time) ([]domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.InventoryRecord
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if rec, ok := f.records[invKey(roomID, d)]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeInventory) list(filter func(domain.InventoryRecord) bool, limit int) []domain.InventoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.InventoryRecord
	for _, rec := range f.records {
		if filter(rec) {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func (f *fakeInventory) ListPending(_ context.Context, _ *int64, limit int) ([]domain.InventoryRecord, error) {
	return f.list(func(r domain.InventoryRecord) bool {
		return r.Active && r.SyncPending && r.SyncError == nil
	}, limit), nil
}

func (f *fakeInventory) ListErrored(_ context.Context, _ *int64, limit int) ([]domain.InventoryRecord, error) {
	return f.list(func(r domain.InventoryRecord) bool {
		return r.Active && r.SyncPending && r.SyncError != nil
	}, limit), nil
}

func (f *fakeInventory) ListForProperty(_ context.Context, _ int64, from, to time.Time, limit int) ([]domain.InventoryRecord, error) {
	return f.list(func(r domain.InventoryRecord) bool {
		return r.Active && !r.Date.Before(from) && !r.Date.After(to)
	}, limit), nil
}

func (f *fakeInventory) MarkSynced(_ context.Context, ids []int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for k, rec := range f.records {
		if want[rec.ID] {
			rec.MarkSynced(at)
			f.records[k] = rec
		}
	}
	return nil
}

func (f *fakeInventory) MarkSyncError(_ context.Context, id int64, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, rec := range f.records {
		if rec.ID == id {
			rec.MarkSyncFailed(msg)
			f.records[k] = rec
		}
	}
	return nil
}

func (f *fakeInventory) DisableForRoom(_ context.Context, roomID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, rec := range f.records {
		if rec.RoomID == roomID {
			rec.Active = false
			rec.SyncPending = true
			f.records[k] = rec
		}
	}
	return nil
}

func (f *fakeInventory) CountPending(_ context.Context, _ *int64) (int, error) {
	return len(f.list(func(r domain.InventoryRecord) bool {
		return r.Active && r.SyncPending && r.SyncError == nil
	}, 0)), nil
}

func (f *fakeInventory) CountErrored(_ context.Context, _ *int64) (int, error) {
	return len(f.list(func(r domain.InventoryRecord) bool {
		return r.Active && r.SyncError != nil
	}, 0)), nil
}

func (f *fakeInventory) CountActive(_ context.Context, _ *int64) (int, error) {
	return len(f.list(func(r domain.InventoryRecord) bool { return r.Active }, 0)), nil
}

func (f *fakeInventory) OccupancyOn(_ context.Context, _ int64, _ *int64, _ time.Time) (int, int, error) {
	return f.occupied, f.totalRooms, nil
}

type fakeMappings struct {
	mu       sync.Mutex
	byRoom   map[int64]*domain.RoomMapping
	nextID   int64
	stamps   map[int64][]domain.SyncAspect
	errorLog map[int64][]string

	orphanRooms []int64 // rooms whose mappings count as orphaned
}

func newFakeMappings() *fakeMappings {
	return &fakeMappings{
		byRoom:   map[int64]*domain.RoomMapping{},
		stamps:   map[int64][]domain.SyncAspect{},
		errorLog: map[int64][]string{},
	}
}

func (f *fakeMappings) Create(_ context.Context, m *domain.RoomMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byRoom[m.RoomID]; ok {
		return domain.ErrConflict
	}
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.byRoom[m.RoomID] = &cp
	return nil
}

func (f *fakeMappings) MarkDeletionPending(_ context.Context, roomID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byRoom[roomID]
	if !ok || m.DeletionPending {
		return 0, nil
	}
	m.DeletionPending = true
	m.SyncPending = true
	return 1, nil
}

func (f *fakeMappings) MarkAspectSynced(_ context.Context, id int64, a domain.SyncAspect, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamps[id] = append(f.stamps[id], a)
	return nil
}

func (f *fakeMappings) RecordError(_ context.Context, id int64, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorLog[id] = append(f.errorLog[id], msg)
	for _, m := range f.byRoom {
		if m.ID == id {
			m.SyncErrorCount++
		}
	}
	return nil
}

func (f *fakeMappings) Deactivate(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byRoom {
		if m.ID == id {
			m.Active = false
		}
	}
	return nil
}

func (f *fakeMappings) GetByRoom(_ context.Context, _ int64, roomID int64) (domain.RoomMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.byRoom[roomID]; ok && m.Active {
		return *m, nil
	}
	return domain.RoomMapping{}, domain.ErrNotFound
}

func (f *fakeMappings) GetByExternalRoom(_ context.Context, _ int64, ext string) (domain.RoomMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byRoom {
		if m.ExternalRoomID == ext && m.Active {
			return *m, nil
		}
	}
	return domain.RoomMapping{}, domain.ErrNotFound
}

func (f *fakeMappings) ListReady(_ context.Context, _ int64) ([]domain.RoomMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RoomMapping
	for _, m := range f.byRoom {
		if m.Ready() && !m.DeletionPending {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMappings) ListDeletionPending(_ context.Context, _ int64, limit int) ([]domain.RoomMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RoomMapping
	for _, m := range f.byRoom {
		if m.Active && m.DeletionPending {
			out = append(out, *m)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeMappings) ListOrphans(_ context.Context, _ int64) ([]domain.RoomMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RoomMapping
	for _, roomID := range f.orphanRooms {
		if m, ok := f.byRoom[roomID]; ok && m.Active && !m.DeletionPending {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeRestrictions struct {
	items  []domain.Restriction
	nextID int64
}

func (f *fakeRestrictions) Create(_ context.Context, r *domain.Restriction) error {
	f.nextID++
	r.ID = f.nextID
	f.items = append(f.items, *r)
	return nil
}

func (f *fakeRestrictions) Deactivate(_ context.Context, id int64) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Active = false
		}
	}
	return nil
}

func (f *fakeRestrictions) MarkSynced(_ context.Context, ids []int64, at time.Time) error {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for i := range f.items {
		if want[f.items[i].ID] {
			f.items[i].SyncPending = false
			f.items[i].Synced = true
			f.items[i].LastSyncAt = &at
		}
	}
	return nil
}

func (f *fakeRestrictions) ListOverlapping(_ context.Context, propertyID int64, roomID, roomTypeID *int64, from, to time.Time) ([]domain.Restriction, error) {
	var out []domain.Restriction
	for _, r := range f.items {
		if r.PropertyID != propertyID {
			continue
		}
		if r.StartDate.After(to) || r.EndDate.Before(from) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRestrictions) ListPending(_ context.Context, _ *int64, limit int) ([]domain.Restriction, error) {
	var out []domain.Restriction
	for _, r := range f.items {
		if r.SyncPending {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakePlans struct {
	plans map[int64]domain.RatePlan
	saved []domain.RatePlan
}

func newFakePlans(ps ...domain.RatePlan) *fakePlans {
	f := &fakePlans{plans: map[int64]domain.RatePlan{}}
	for _, p := range ps {
		f.plans[p.ID] = p
	}
	return f
}

func (f *fakePlans) Save(_ context.Context, p *domain.RatePlan) error {
	if p.ID == 0 {
		p.ID = int64(len(f.plans) + 1)
	}
	f.plans[p.ID] = *p
	f.saved = append(f.saved, *p)
	return nil
}

func (f *fakePlans) Get(_ context.Context, id int64) (domain.RatePlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return domain.RatePlan{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePlans) DefaultForScope(_ context.Context, _ int64, _ *int64) (domain.RatePlan, error) {
	return domain.RatePlan{}, domain.ErrNotFound
}

type fakeRooms struct{ rooms map[int64]domain.Room }

func (f *fakeRooms) Get(_ context.Context, id int64) (domain.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeConfigs struct {
	cfgs    []domain.ChannelConfig
	markers map[int64]bool
}

func (f *fakeConfigs) ListActive(_ context.Context) ([]domain.ChannelConfig, error) {
	return f.cfgs, nil
}

func (f *fakeConfigs) ActiveForProperty(_ context.Context, propertyID int64) (domain.ChannelConfig, error) {
	for _, c := range f.cfgs {
		if c.PropertyID == propertyID {
			return c, nil
		}
	}
	return domain.ChannelConfig{}, domain.ErrNotFound
}

func (f *fakeConfigs) MarkConnected(_ context.Context, id int64, connected bool) error {
	if f.markers == nil {
		f.markers = map[int64]bool{}
	}
	f.markers[id] = connected
	return nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []domain.SyncLog
}

func (f *fakeLogs) Insert(_ context.Context, l *domain.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *l)
	return nil
}

func (f *fakeLogs) GetByRunID(_ context.Context, runID string) (domain.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].RunID == runID {
			return f.entries[i], nil
		}
	}
	return domain.SyncLog{}, domain.ErrNotFound
}

func (f *fakeLogs) ListSince(_ context.Context, _ int64, _ time.Time) ([]domain.SyncLog, error) {
	return f.entries, nil
}

func (f *fakeLogs) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []domain.SyncLog
	var n int64
	for _, e := range f.entries {
		if e.StartedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return n, nil
}

// fakeClient records pushes and can fail selected dates or removals.
type fakeClient struct {
	mu         sync.Mutex
	pushes     map[string][]map[string]any // date -> items
	failDates  map[string]error
	pullItems  []map[string]any
	pullErr    error
	pingErr    error
	removeErr  error
	removed    []string
	createID   string
	createErr  error
	createdPay []map[string]any
}

func newFakeClient() *fakeClient {
	return &fakeClient{pushes: map[string][]map[string]any{}, failDates: map[string]error{}}
}

func (f *fakeClient) CreateRoom(_ context.Context, _ domain.ChannelConfig, payload map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdPay = append(f.createdPay, payload)
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.createID == "" {
		return "ext-new", nil
	}
	return f.createID, nil
}

func (f *fakeClient) RemoveRoom(_ context.Context, _ domain.ChannelConfig, ext string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, ext)
	return nil
}

func (f *fakeClient) PushInventory(_ context.Context, _ domain.ChannelConfig, date string, items []map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failDates[date]; ok {
		return err
	}
	f.pushes[date] = append(f.pushes[date], items...)
	return nil
}

func (f *fakeClient) PullInventory(_ context.Context, _ domain.ChannelConfig, _, _ string) ([]map[string]any, error) {
	return f.pullItems, f.pullErr
}

func (f *fakeClient) Ping(_ context.Context, _ domain.ChannelConfig) error { return f.pingErr }

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.SyncEvent
	err    error
}

func (f *fakeNotifier) Publish(_ context.Context, _ string, ev domain.SyncEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

var errBoom = errors.New("boom")
