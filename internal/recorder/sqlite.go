package recorder

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/store"
)

// SQLiteRecorder stores events in the crank database. Payloads are borsh
// encoded, the same layout the events have on chain.
type SQLiteRecorder struct {
	logger *zap.Logger
}

func NewSQLiteRecorder(logger *zap.Logger) *SQLiteRecorder {
	return &SQLiteRecorder{logger: logger}
}

func (r *SQLiteRecorder) Record(ctx context.Context, q store.Querier, runID uuid.UUID, events []model.Event) error {
	for _, e := range events {
		payload, err := Encode(e)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `INSERT INTO events (run_id, kind, day, timestamp, payload)
			VALUES (?,?,?,?,?)`,
			runID.String(), int(e.Kind()), store.Int(dayOf(e)), e.Time(), payload)
		if err != nil {
			return fmt.Errorf("insert %s event: %w", e.Kind(), err)
		}
		r.logger.Debug("event recorded", zap.String("kind", e.Kind().String()), zap.String("run_id", runID.String()))
	}
	return nil
}

func (r *SQLiteRecorder) List(ctx context.Context, q store.Querier, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Day > 0 {
		where = append(where, "day = ?")
		args = append(args, store.Int(f.Day))
	}
	if f.Kind > 0 {
		where = append(where, "kind = ?")
		args = append(args, int(f.Kind))
	}
	query := `SELECT id, run_id, kind, day, timestamp, payload FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			kind    int
			day     int64
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.RunID, &kind, &day, &e.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Event, err = Decode(model.EventKind(kind), payload); err != nil {
			return nil, err
		}
		e.Kind = model.EventKind(kind).String()
		e.Day = store.Uint(day)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Encode borsh-encodes an event payload.
func Encode(e model.Event) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(e); err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Kind(), err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode for the given kind.
func Decode(kind model.EventKind, payload []byte) (model.Event, error) {
	dec := bin.NewBorshDecoder(payload)
	switch kind {
	case model.EventPositionInitialized:
		var e model.PositionInitialized
		if err := decodeInto(dec, &e); err != nil {
			return nil, err
		}
		return e, nil
	case model.EventFeesClaimed:
		var e model.FeesClaimed
		if err := decodeInto(dec, &e); err != nil {
			return nil, err
		}
		return e, nil
	case model.EventPageSettled:
		var e model.PageSettled
		if err := decodeInto(dec, &e); err != nil {
			return nil, err
		}
		return e, nil
	case model.EventDayClosed:
		var e model.DayClosed
		if err := decodeInto(dec, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, errors.ErrInvalidState.Newf("unknown event kind %d", kind)
	}
}

func decodeInto(dec *bin.Decoder, v any) error {
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrInvalidState, err.Error())
	}
	return nil
}
