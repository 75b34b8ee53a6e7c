package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"channelsync/internal/domain"
)

type ConfigRepo struct{ db *sql.DB }

func NewConfigRepo(db *sql.DB) *ConfigRepo { return &ConfigRepo{db: db} }

func scanConfig(row interface{ Scan(...any) error }) (domain.ChannelConfig, error) {
	var c domain.ChannelConfig
	err := row.Scan(
		&c.ID, &c.TenantID, &c.PropertyID, &c.Name, &c.BaseURL, &c.APIKey, &c.ConnectionID,
		&c.Active, &c.Connected, &c.ErrorThreshold, &c.PendingThreshold,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *ConfigRepo) ListActive(ctx context.Context) ([]domain.ChannelConfig, error) {
	rows, err := r.db.QueryContext(ctx, listActiveConfigsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChannelConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConfigRepo) ActiveForProperty(ctx context.Context, propertyID int64) (domain.ChannelConfig, error) {
	c, err := scanConfig(r.db.QueryRowContext(ctx, activeConfigForPropertySQL, propertyID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChannelConfig{}, domain.ErrNotFound
	}
	return c, err
}

func (r *ConfigRepo) MarkConnected(ctx context.Context, id int64, connected bool) error {
	_, err := r.db.ExecContext(ctx, markConfigConnectedSQL, connected, id)
	return err
}

type SyncLogRepo struct{ db *sql.DB }

func NewSyncLogRepo(db *sql.DB) *SyncLogRepo { return &SyncLogRepo{db: db} }

func (r *SyncLogRepo) Insert(ctx context.Context, l *domain.SyncLog) error {
	res, err := r.db.ExecContext(ctx, insertSyncLogSQL,
		l.RunID, l.ConfigID, string(l.Kind), l.Status,
		l.Processed, l.Succeeded, l.Failed, valStr(l.Error),
		l.StartedAt, l.Duration.Milliseconds(),
	)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

func scanSyncLog(row interface{ Scan(...any) error }) (domain.SyncLog, error) {
	var l domain.SyncLog
	var errMsg sql.NullString
	var durMs int64

	err := row.Scan(
		&l.ID, &l.RunID, &l.ConfigID, &l.Kind, &l.Status,
		&l.Processed, &l.Succeeded, &l.Failed, &errMsg,
		&l.StartedAt, &durMs,
	)
	if err != nil {
		return domain.SyncLog{}, err
	}
	l.Error = ptrFromNullStr(errMsg)
	l.Duration = time.Duration(durMs) * time.Millisecond
	return l, nil
}

func (r *SyncLogRepo) GetByRunID(ctx context.Context, runID string) (domain.SyncLog, error) {
	l, err := scanSyncLog(r.db.QueryRowContext(ctx, getSyncLogByRunSQL, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SyncLog{}, domain.ErrNotFound
	}
	return l, err
}

func (r *SyncLogRepo) ListSince(ctx context.Context, configID int64, since time.Time) ([]domain.SyncLog, error) {
	rows, err := r.db.QueryContext(ctx, listSyncLogsSinceSQL, configID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SyncLog
	for rows.Next() {
		l, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SyncLogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteSyncLogsBeforeSQL, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
