package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"channelsync/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func ptrFromNullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
func ptrFromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
func ptrFromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
func ptrFromNullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
func ptrFromNullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// translateErr maps MySQL duplicate-key violations to domain.ErrConflict.
func translateErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
	}
	return err
}

func dateOnly(t time.Time) string { return t.Format("2006-01-02") }

// -----------------------------------------------------------------------------
// Inventory
// -----------------------------------------------------------------------------

type InventoryRepo struct{ db *sql.DB }

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

func inventoryArgs(r *domain.InventoryRecord) []any {
	return []any{
		r.TenantID, r.RoomID, dateOnly(r.Date),
		r.Available, r.Blocked, r.OutOfOrder, r.Maintenance, r.Reserved,
		r.ClosedToArrival, r.ClosedToDeparture, valStr(r.BlockReason),
		valF64(r.RateOverride), r.MinStay, valInt(r.MaxStay),
		r.IsBookable, r.Active, r.SyncPending, r.Synced, valStr(r.SyncError),
		valTime(r.LastSyncAt),
	}
}

func (r *InventoryRepo) Upsert(ctx context.Context, rec *domain.InventoryRecord) error {
	_, err := r.db.ExecContext(ctx, upsertInventorySQL, inventoryArgs(rec)...)
	return translateErr(err)
}

func (r *InventoryRepo) BulkUpsert(ctx context.Context, recs []domain.InventoryRecord) error {
	if len(recs) == 0 {
		return nil
	}
	values := make([]string, 0, len(recs))
	args := make([]any, 0, len(recs)*20)
	for i := range recs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args, inventoryArgs(&recs[i])...)
	}
	sqlStr := insertInventoryPrefix + strings.Join(values, ",") + insertInventoryOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return translateErr(err)
}

func scanInventory(row interface{ Scan(...any) error }) (domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	var blockReason, syncErr sql.NullString
	var rateOverride sql.NullFloat64
	var maxStay sql.NullInt64
	var lastSync sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.RoomID, &rec.Date,
		&rec.Available, &rec.Blocked, &rec.OutOfOrder, &rec.Maintenance, &rec.Reserved,
		&rec.ClosedToArrival, &rec.ClosedToDeparture, &blockReason,
		&rateOverride, &rec.MinStay, &maxStay,
		&rec.IsBookable, &rec.Active, &rec.SyncPending, &rec.Synced, &syncErr,
		&lastSync, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	rec.BlockReason = ptrFromNullStr(blockReason)
	rec.SyncError = ptrFromNullStr(syncErr)
	rec.RateOverride = ptrFromNullF64(rateOverride)
	rec.MaxStay = ptrFromNullInt(maxStay)
	rec.LastSyncAt = ptrFromNullTime(lastSync)
	return rec, nil
}

func (r *InventoryRepo) Get(ctx context.Context, roomID int64, date time.Time) (domain.InventoryRecord, error) {
	rec, err := scanInventory(r.db.QueryRowContext(ctx, getInventorySQL, roomID, dateOnly(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InventoryRecord{}, domain.ErrNotFound
	}
	return rec, err
}

func (r *InventoryRepo) queryInventory(ctx context.Context, query string, args ...any) ([]domain.InventoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InventoryRecord
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) GetRange(ctx context.Context, roomID int64, from, to time.Time) ([]domain.InventoryRecord, error) {
	return r.queryInventory(ctx, getInventoryRangeSQL, roomID, dateOnly(from), dateOnly(to))
}

func (r *InventoryRepo) ListPending(ctx context.Context, propertyID *int64, limit int) ([]domain.InventoryRecord, error) {
	return r.queryInventory(ctx, listPendingSQL, valInt64(propertyID), valInt64(propertyID), limit)
}

func (r *InventoryRepo) ListErrored(ctx context.Context, propertyID *int64, limit int) ([]domain.InventoryRecord, error) {
	return r.queryInventory(ctx, listErroredSQL, valInt64(propertyID), valInt64(propertyID), limit)
}

func (r *InventoryRepo) ListForProperty(ctx context.Context, propertyID int64, from, to time.Time, limit int) ([]domain.InventoryRecord, error) {
	return r.queryInventory(ctx, listForPropertySQL, propertyID, dateOnly(from), dateOnly(to), limit)
}

func (r *InventoryRepo) MarkSynced(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, markSyncedPrefix+"("+placeholders+")", args...)
	return err
}

func (r *InventoryRepo) MarkSyncError(ctx context.Context, id int64, msg string) error {
	_, err := r.db.ExecContext(ctx, markSyncErrorSQL, msg, id)
	return err
}

func (r *InventoryRepo) DisableForRoom(ctx context.Context, roomID int64) error {
	_, err := r.db.ExecContext(ctx, disableForRoomSQL, roomID)
	return err
}

func (r *InventoryRepo) count(ctx context.Context, cond string, propertyID *int64) (int, error) {
	var n int
	q := fmt.Sprintf(countInventorySQL, cond)
	err := r.db.QueryRowContext(ctx, q, valInt64(propertyID), valInt64(propertyID)).Scan(&n)
	return n, err
}

func (r *InventoryRepo) CountPending(ctx context.Context, propertyID *int64) (int, error) {
	return r.count(ctx, "i.sync_pending = 1 AND i.sync_error IS NULL", propertyID)
}

func (r *InventoryRepo) CountErrored(ctx context.Context, propertyID *int64) (int, error) {
	return r.count(ctx, "i.sync_error IS NOT NULL", propertyID)
}

func (r *InventoryRepo) CountActive(ctx context.Context, propertyID *int64) (int, error) {
	return r.count(ctx, "1 = 1", propertyID)
}

func (r *InventoryRepo) OccupancyOn(ctx context.Context, propertyID int64, roomTypeID *int64, date time.Time) (int, int, error) {
	var occupied, total int
	err := r.db.QueryRowContext(ctx, occupancyOnSQL,
		dateOnly(date), propertyID, valInt64(roomTypeID), valInt64(roomTypeID),
	).Scan(&occupied, &total)
	return occupied, total, err
}

// -----------------------------------------------------------------------------
// Rooms
// -----------------------------------------------------------------------------

type RoomRepo struct{ db *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

func (r *RoomRepo) Get(ctx context.Context, id int64) (domain.Room, error) {
	var room domain.Room
	var roomType sql.NullInt64
	err := r.db.QueryRowContext(ctx, getRoomSQL, id).Scan(
		&room.ID, &room.TenantID, &room.PropertyID, &roomType,
		&room.Name, &room.BaseRate, &room.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	room.RoomTypeID = ptrFromNullInt64(roomType)
	return room, nil
}
