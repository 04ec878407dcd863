package sqlutil

import (
	"database/sql"
	"testing"
	"time"
)

func TestToNullRawMessage(t *testing.T) {
	var nilMap map[string]string
	v, err := ToNullRawMessage(nilMap)
	if err != nil || v.Valid {
		t.Errorf("nil map = %+v, %v; want NULL", v, err)
	}

	v, err = ToNullRawMessage(map[string]string{"team_id": "t1"})
	if err != nil || !v.Valid || string(v.RawMessage) != `{"team_id":"t1"}` {
		t.Errorf("map = %s (%v), %v", v.RawMessage, v.Valid, err)
	}

	var back map[string]string
	if err := FromNullRawMessage(v, &back); err != nil || back["team_id"] != "t1" {
		t.Errorf("round trip = %v, %v", back, err)
	}
}

func TestFromSqlTime(t *testing.T) {
	if FromSqlTime(sql.NullTime{}) != nil {
		t.Error("NULL should map to nil")
	}
	now := time.Now()
	if got := FromSqlTime(sql.NullTime{Time: now, Valid: true}); got == nil || !got.Equal(now) {
		t.Errorf("FromSqlTime = %v", got)
	}
}
