package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"channelsync/internal/domain"
)

type RestrictionRepo struct{ db *sql.DB }

func NewRestrictionRepo(db *sql.DB) *RestrictionRepo { return &RestrictionRepo{db: db} }

func maskArg(m *domain.WeekdayMask) any {
	if m == nil {
		return nil
	}
	return uint8(*m)
}

func maskFromNull(v sql.NullInt64) *domain.WeekdayMask {
	if !v.Valid {
		return nil
	}
	m := domain.WeekdayMask(v.Int64)
	return &m
}

func (r *RestrictionRepo) Create(ctx context.Context, res *domain.Restriction) error {
	out, err := r.db.ExecContext(ctx, insertRestrictionSQL,
		res.TenantID, res.PropertyID, valInt64(res.RoomID), valInt64(res.RoomTypeID),
		dateOnly(res.StartDate), dateOnly(res.EndDate), maskArg(res.Weekdays),
		string(res.Type), valInt(res.Value), res.Priority, string(res.Source),
		res.Active, res.SyncPending,
	)
	if err != nil {
		return translateErr(err)
	}
	res.ID, err = out.LastInsertId()
	return err
}

func scanRestriction(row interface{ Scan(...any) error }) (domain.Restriction, error) {
	var res domain.Restriction
	var roomID, roomTypeID, weekdays, value sql.NullInt64
	var syncErr sql.NullString
	var lastSync sql.NullTime

	err := row.Scan(
		&res.ID, &res.TenantID, &res.PropertyID, &roomID, &roomTypeID,
		&res.StartDate, &res.EndDate, &weekdays,
		&res.Type, &value, &res.Priority, &res.Source, &res.Active,
		&res.SyncPending, &res.Synced, &syncErr, &lastSync,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return domain.Restriction{}, err
	}
	res.RoomID = ptrFromNullInt64(roomID)
	res.RoomTypeID = ptrFromNullInt64(roomTypeID)
	res.Weekdays = maskFromNull(weekdays)
	res.Value = ptrFromNullInt(value)
	res.SyncError = ptrFromNullStr(syncErr)
	res.LastSyncAt = ptrFromNullTime(lastSync)
	return res, nil
}

func (r *RestrictionRepo) query(ctx context.Context, q string, args ...any) ([]domain.Restriction, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Restriction
	for rows.Next() {
		res, err := scanRestriction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *RestrictionRepo) ListOverlapping(ctx context.Context, propertyID int64, roomID, roomTypeID *int64, from, to time.Time) ([]domain.Restriction, error) {
	return r.query(ctx, listOverlappingRestrictionsSQL,
		propertyID, dateOnly(to), dateOnly(from), valInt64(roomID), valInt64(roomTypeID))
}

func (r *RestrictionRepo) ListPending(ctx context.Context, propertyID *int64, limit int) ([]domain.Restriction, error) {
	return r.query(ctx, listPendingRestrictionsSQL, valInt64(propertyID), valInt64(propertyID), limit)
}

func (r *RestrictionRepo) MarkSynced(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, markRestrictionsSyncedPrefix+"("+placeholders+")", args...)
	return err
}

func (r *RestrictionRepo) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, deactivateRestrictionSQL, id)
	return err
}
