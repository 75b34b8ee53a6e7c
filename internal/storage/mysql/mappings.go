package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"channelsync/internal/domain"
)

type MappingRepo struct{ db *sql.DB }

func NewMappingRepo(db *sql.DB) *MappingRepo { return &MappingRepo{db: db} }

func (r *MappingRepo) Create(ctx context.Context, m *domain.RoomMapping) error {
	res, err := r.db.ExecContext(ctx, insertMappingSQL,
		m.TenantID, m.ConfigID, m.RoomID, m.ExternalRoomID, m.ExternalRoomName, m.ExternalRoomType,
		m.SyncAvailability, m.SyncRates, m.SyncRestrictions, m.MinOccupancy, m.MaxOccupancy,
		m.RateMultiplier, valF64(m.RateOverride), m.SyncPending, m.DeletionPending, m.Active,
	)
	if err != nil {
		return translateErr(err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func scanMapping(row interface{ Scan(...any) error }) (domain.RoomMapping, error) {
	var m domain.RoomMapping
	var rateOverride sql.NullFloat64
	var availAt, ratesAt, restrAt sql.NullTime
	var syncErr sql.NullString

	err := row.Scan(
		&m.ID, &m.TenantID, &m.ConfigID, &m.RoomID,
		&m.ExternalRoomID, &m.ExternalRoomName, &m.ExternalRoomType,
		&m.SyncAvailability, &m.SyncRates, &m.SyncRestrictions,
		&m.MinOccupancy, &m.MaxOccupancy, &m.RateMultiplier, &rateOverride,
		&availAt, &ratesAt, &restrAt,
		&syncErr, &m.SyncErrorCount, &m.SyncPending, &m.DeletionPending, &m.Active,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.RoomMapping{}, err
	}
	m.RateOverride = ptrFromNullF64(rateOverride)
	m.AvailabilitySyncedAt = ptrFromNullTime(availAt)
	m.RatesSyncedAt = ptrFromNullTime(ratesAt)
	m.RestrictionsSyncedAt = ptrFromNullTime(restrAt)
	m.SyncError = ptrFromNullStr(syncErr)
	return m, nil
}

func (r *MappingRepo) one(ctx context.Context, query string, args ...any) (domain.RoomMapping, error) {
	m, err := scanMapping(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoomMapping{}, domain.ErrNotFound
	}
	return m, err
}

func (r *MappingRepo) GetByRoom(ctx context.Context, configID, roomID int64) (domain.RoomMapping, error) {
	return r.one(ctx, getMappingByRoomSQL, configID, roomID)
}

func (r *MappingRepo) GetByExternalRoom(ctx context.Context, configID int64, externalRoomID string) (domain.RoomMapping, error) {
	return r.one(ctx, getMappingByExternalSQL, configID, externalRoomID)
}

func (r *MappingRepo) many(ctx context.Context, query string, args ...any) ([]domain.RoomMapping, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MappingRepo) ListReady(ctx context.Context, configID int64) ([]domain.RoomMapping, error) {
	return r.many(ctx, listReadyMappingsSQL, configID)
}

func (r *MappingRepo) ListDeletionPending(ctx context.Context, configID int64, limit int) ([]domain.RoomMapping, error) {
	return r.many(ctx, listDeletionPendingSQL, configID, limit)
}

func (r *MappingRepo) ListOrphans(ctx context.Context, tenantID int64) ([]domain.RoomMapping, error) {
	return r.many(ctx, listOrphanMappingsSQL, tenantID)
}

func (r *MappingRepo) MarkDeletionPending(ctx context.Context, roomID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, markDeletionPendingSQL, roomID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *MappingRepo) MarkAspectSynced(ctx context.Context, id int64, aspect domain.SyncAspect, at time.Time) error {
	var col string
	switch aspect {
	case domain.AspectAvailability:
		col = "availability_synced_at"
	case domain.AspectRates:
		col = "rates_synced_at"
	case domain.AspectRestrictions:
		col = "restrictions_synced_at"
	default:
		return domain.Invalid("aspect", "unknown sync aspect")
	}
	q := `UPDATE room_mappings SET ` + col + ` = ?, sync_error = NULL, sync_error_count = 0,
sync_pending = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, at, id)
	return err
}

func (r *MappingRepo) RecordError(ctx context.Context, id int64, msg string) error {
	_, err := r.db.ExecContext(ctx, recordMappingErrorSQL, msg, id)
	return err
}

func (r *MappingRepo) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, deactivateMappingSQL, id)
	return err
}
