package sqlutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable SQL types

// ToNullRawMessage marshals v into a JSONB-compatible value; nil maps and
// slices become SQL NULL.
func ToNullRawMessage(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal json column: %w", err)
	}
	if string(data) == "null" {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

// FromNullRawMessage unmarshals a JSONB value into dst; NULL leaves dst untouched.
func FromNullRawMessage(val pqtype.NullRawMessage, dst any) error {
	if !val.Valid || len(val.RawMessage) == 0 {
		return nil
	}
	if err := json.Unmarshal(val.RawMessage, dst); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return nil
}

// FromSqlTime converts sql.NullTime to Go time pointer
func FromSqlTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	return &val.Time
}
