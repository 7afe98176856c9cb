package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/smsline/smsline/internal/model"
	"github.com/smsline/smsline/internal/pkg/dbutil"
	appErr "github.com/smsline/smsline/internal/pkg/errors"
)

var eventFields = []string{"id", "correlation_id", "verification_id", "phone_number", "event_type", "code", "status", "ctime"}

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Insert(ctx context.Context, ev *model.SMSEvent) error {
	var code interface{}
	if ev.Code != "" {
		code = ev.Code
	}
	data := map[string]interface{}{
		"id":              ev.ID,
		"correlation_id":  ev.CorrelationID,
		"verification_id": ev.VerificationID,
		"phone_number":    ev.PhoneNumber,
		"event_type":      ev.EventType,
		"code":            code,
		"status":          ev.Status,
		"ctime":           ev.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("sms_events", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *EventRepo) ListByCorrelation(ctx context.Context, correlationID string, limit uint) ([]*model.SMSEvent, error) {
	where := map[string]interface{}{
		"correlation_id": correlationID,
		"_orderby":       "ctime desc",
		"_limit":         []uint{0, limit},
	}
	return r.query(ctx, where)
}

func (r *EventRepo) ListRecent(ctx context.Context, limit uint) ([]*model.SMSEvent, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
		"_limit":   []uint{0, limit},
	}
	return r.query(ctx, where)
}

func (r *EventRepo) PruneBefore(ctx context.Context, ctime int64) (int64, error) {
	where := map[string]interface{}{"ctime <": ctime}
	sqlStr, args, err := builder.BuildDelete("sms_events", where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

func (r *EventRepo) query(ctx context.Context, where map[string]interface{}) ([]*model.SMSEvent, error) {
	sqlStr, args, err := builder.BuildSelect("sms_events", where, eventFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.SMSEvent
	for rows.Next() {
		var ev model.SMSEvent
		var code sql.NullString
		if err := rows.Scan(&ev.ID, &ev.CorrelationID, &ev.VerificationID, &ev.PhoneNumber, &ev.EventType, &code, &ev.Status, &ev.Ctime); err != nil {
			return nil, err
		}
		ev.Code = code.String
		out = append(out, &ev)
	}
	return out, rows.Err()
}
