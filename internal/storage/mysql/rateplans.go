package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"channelsync/internal/domain"
)

type RatePlanRepo struct{ db *sql.DB }

func NewRatePlanRepo(db *sql.DB) *RatePlanRepo { return &RatePlanRepo{db: db} }

func jsonArg(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func planArgs(p *domain.RatePlan) ([]any, error) {
	channels, err := jsonArg(p.Channels, len(p.Channels) == 0)
	if err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}
	closedArr, err := jsonArg(p.ClosedArrivalDates, len(p.ClosedArrivalDates) == 0)
	if err != nil {
		return nil, fmt.Errorf("closed_arrival_dates: %w", err)
	}
	closedDep, err := jsonArg(p.ClosedDepartureDates, len(p.ClosedDepartureDates) == 0)
	if err != nil {
		return nil, fmt.Errorf("closed_departure_dates: %w", err)
	}

	var id any
	if p.ID != 0 {
		id = p.ID
	}
	var derivType any
	if p.DerivationType != nil {
		derivType = string(*p.DerivationType)
	}

	return []any{
		id, p.TenantID, p.PropertyID, valInt64(p.RoomTypeID), p.Name, p.IsDefault, p.Active,
		valF64(p.RateSingle), valF64(p.RateDouble), valF64(p.RateTriple), valF64(p.RateQuad),
		valF64(p.ExtraPersonRate),
		p.MinStay, valInt(p.MaxStay), valInt(p.MinAdvanceDays), valInt(p.MaxAdvanceDays),
		valTime(p.ValidFrom), valTime(p.ValidTo), maskArg(p.Weekdays), channels,
		valInt64(p.ParentPlanID), derivType, valF64(p.DerivationValue),
		p.YieldEnabled, valJSON(p.YieldRules), valJSON(p.CancellationPolicy), valJSON(p.PaymentPolicy),
		closedArr, closedDep,
	}, nil
}

// Save upserts the plan. Making a plan the default demotes any other default
// in the same scope.
func (r *RatePlanRepo) Save(ctx context.Context, p *domain.RatePlan) error {
	args, err := planArgs(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, upsertRatePlanSQL, args...)
	if err != nil {
		return translateErr(err)
	}
	if p.ID == 0 {
		if p.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	if p.IsDefault {
		_, err = r.db.ExecContext(ctx, clearDefaultRatePlanSQL,
			p.TenantID, p.PropertyID, p.ID, valInt64(p.RoomTypeID), valInt64(p.RoomTypeID))
	}
	return err
}

func scanRatePlan(row interface{ Scan(...any) error }) (domain.RatePlan, error) {
	var p domain.RatePlan
	var roomTypeID, maxStay, minAdv, maxAdv, weekdays, parentID sql.NullInt64
	var single, double, triple, quad, extra, derivVal sql.NullFloat64
	var validFrom, validTo sql.NullTime
	var channels, derivType, yieldRules, cancelPolicy, payPolicy, closedArr, closedDep sql.NullString

	err := row.Scan(
		&p.ID, &p.TenantID, &p.PropertyID, &roomTypeID, &p.Name, &p.IsDefault, &p.Active,
		&single, &double, &triple, &quad, &extra,
		&p.MinStay, &maxStay, &minAdv, &maxAdv,
		&validFrom, &validTo, &weekdays, &channels,
		&parentID, &derivType, &derivVal,
		&p.YieldEnabled, &yieldRules, &cancelPolicy, &payPolicy,
		&closedArr, &closedDep, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.RatePlan{}, err
	}

	p.RoomTypeID = ptrFromNullInt64(roomTypeID)
	p.RateSingle = ptrFromNullF64(single)
	p.RateDouble = ptrFromNullF64(double)
	p.RateTriple = ptrFromNullF64(triple)
	p.RateQuad = ptrFromNullF64(quad)
	p.ExtraPersonRate = ptrFromNullF64(extra)
	p.MaxStay = ptrFromNullInt(maxStay)
	p.MinAdvanceDays = ptrFromNullInt(minAdv)
	p.MaxAdvanceDays = ptrFromNullInt(maxAdv)
	p.ValidFrom = ptrFromNullTime(validFrom)
	p.ValidTo = ptrFromNullTime(validTo)
	p.Weekdays = maskFromNull(weekdays)
	p.ParentPlanID = ptrFromNullInt64(parentID)
	p.DerivationValue = ptrFromNullF64(derivVal)

	if derivType.Valid {
		dt := domain.DerivationType(derivType.String)
		p.DerivationType = &dt
	}
	if channels.Valid {
		if err := json.Unmarshal([]byte(channels.String), &p.Channels); err != nil {
			return domain.RatePlan{}, fmt.Errorf("channels: %w", err)
		}
	}
	if closedArr.Valid {
		if err := json.Unmarshal([]byte(closedArr.String), &p.ClosedArrivalDates); err != nil {
			return domain.RatePlan{}, fmt.Errorf("closed_arrival_dates: %w", err)
		}
	}
	if closedDep.Valid {
		if err := json.Unmarshal([]byte(closedDep.String), &p.ClosedDepartureDates); err != nil {
			return domain.RatePlan{}, fmt.Errorf("closed_departure_dates: %w", err)
		}
	}
	if yieldRules.Valid {
		p.YieldRules = []byte(yieldRules.String)
	}
	if cancelPolicy.Valid {
		p.CancellationPolicy = []byte(cancelPolicy.String)
	}
	if payPolicy.Valid {
		p.PaymentPolicy = []byte(payPolicy.String)
	}
	return p, nil
}

func (r *RatePlanRepo) one(ctx context.Context, query string, args ...any) (domain.RatePlan, error) {
	p, err := scanRatePlan(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RatePlan{}, domain.ErrNotFound
	}
	return p, err
}

func (r *RatePlanRepo) Get(ctx context.Context, id int64) (domain.RatePlan, error) {
	return r.one(ctx, getRatePlanSQL, id)
}

func (r *RatePlanRepo) DefaultForScope(ctx context.Context, propertyID int64, roomTypeID *int64) (domain.RatePlan, error) {
	return r.one(ctx, defaultRatePlanSQL, propertyID, valInt64(roomTypeID))
}
