package sqlite

import (
	"fmt"
	"time"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/primitive"
)

// wrapSQL tags a driver error with the statement that caused it.
func wrapSQL(err error, sqlText string) *qerr.Error {
	return qerr.Wrap(qerr.ErrSQLExecution, err, "statement failed").WithSQL(sqlText)
}

// bindValue converts a primitive value to a driver argument. Temporal values
// are stored in their ISO 8601 text form. Custom values never reach binding;
// the renderer splices them into the statement text.
func bindValue(v primitive.Value) (any, error) {
	switch x := v.(type) {
	case nil, primitive.Null:
		return nil, nil
	case primitive.String:
		return string(x), nil
	case primitive.Blob:
		return []byte(x), nil
	case primitive.Int64:
		return int64(x), nil
	case primitive.Double:
		return float64(x), nil
	case primitive.Bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case primitive.Date:
		return x.String(), nil
	case primitive.TimeOfDay:
		if x.Nanosecond != 0 {
			return fmt.Sprintf("%02d:%02d:%02d.%09d", x.Hour, x.Minute, x.Second, x.Nanosecond), nil
		}
		return x.String(), nil
	case primitive.UTCTime:
		return x.Time().Format(time.RFC3339Nano), nil
	case primitive.ZonedTime:
		return x.Time().Format(time.RFC3339Nano), nil
	default:
		return nil, qerr.Newf(qerr.ErrDecodeShape, "cannot bind %s value", v.Kind())
	}
}

// bindAll converts a value list to driver arguments.
func bindAll(vals []primitive.Value) ([]any, error) {
	out := make([]any, len(vals))
	for i, v := range vals {
		a, err := bindValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// scanAs converts one scanned driver value into the expected primitive kind.
func scanAs(kind primitive.Kind, raw any) (primitive.Value, error) {
	if raw == nil {
		return primitive.Null{}, nil
	}
	switch kind {
	case primitive.KindString:
		if s, ok := asString(raw); ok {
			return primitive.String(s), nil
		}
	case primitive.KindBlob:
		switch x := raw.(type) {
		case []byte:
			return primitive.Blob(append([]byte(nil), x...)), nil
		case string:
			return primitive.Blob(x), nil
		}
	case primitive.KindInt64:
		if n, ok := raw.(int64); ok {
			return primitive.Int64(n), nil
		}
	case primitive.KindDouble:
		switch x := raw.(type) {
		case float64:
			return primitive.Double(x), nil
		case int64:
			return primitive.Double(x), nil
		}
	case primitive.KindBool:
		if n, ok := raw.(int64); ok {
			return primitive.Bool(n != 0), nil
		}
	case primitive.KindDate:
		if s, ok := asString(raw); ok {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				return nil, qerr.Wrap(qerr.ErrRowCorrupt, err, "malformed date")
			}
			return primitive.DateOf(t), nil
		}
	case primitive.KindTimeOfDay:
		if s, ok := asString(raw); ok {
			return parseTimeOfDay(s)
		}
	case primitive.KindUTCTime:
		if s, ok := asString(raw); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, qerr.Wrap(qerr.ErrRowCorrupt, err, "malformed timestamp")
			}
			return primitive.NewUTCTime(t), nil
		}
	case primitive.KindZonedTime:
		if s, ok := asString(raw); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, qerr.Wrap(qerr.ErrRowCorrupt, err, "malformed timestamp")
			}
			return primitive.NewZonedTime(t), nil
		}
	}
	return nil, qerr.Newf(qerr.ErrRowCorrupt, "column value %T does not fit kind %s", raw, kind)
}

// scanAny converts a scanned driver value with no declared kind, as raw
// queries and computed projections produce.
func scanAny(raw any) primitive.Value {
	switch x := raw.(type) {
	case nil:
		return primitive.Null{}
	case int64:
		return primitive.Int64(x)
	case float64:
		return primitive.Double(x)
	case string:
		return primitive.String(x)
	case []byte:
		return primitive.Blob(append([]byte(nil), x...))
	case bool:
		return primitive.Bool(x)
	case time.Time:
		return primitive.NewUTCTime(x)
	default:
		return primitive.String(fmt.Sprint(x))
	}
}

func asString(raw any) (string, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return "", false
	}
}

func parseTimeOfDay(s string) (primitive.Value, error) {
	layout := "15:04:05"
	if len(s) > len(layout) {
		layout = "15:04:05.999999999"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrRowCorrupt, err, "malformed time of day")
	}
	return primitive.TimeOfDay{
		Hour:       t.Hour(),
		Minute:     t.Minute(),
		Second:     t.Second(),
		Nanosecond: t.Nanosecond(),
	}, nil
}
