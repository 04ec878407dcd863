package expiry

import (
	"testing"
	"time"

	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/testutil"
)

func testPolicy() Policy {
	return Policy{Cap: 10 * time.Hour, WarnBefore: time.Minute, Location: testutil.Zone}
}

func at(day, hour, min, sec int) time.Time {
	return time.Date(2025, time.March, day, hour, min, sec, 0, testutil.Zone)
}

func openAt(start time.Time) models.ClockEvent {
	return models.ClockEvent{StartTimestamp: models.Millis(start)}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		ce      models.ClockEvent
		now     time.Time
		expired bool
		reason  Reason
		warn    bool
	}{
		{
			name: "fresh session",
			ce:   openAt(at(10, 9, 0, 0)),
			now:  at(10, 12, 0, 0),
		},
		{
			name: "one second under the cap",
			ce:   openAt(at(10, 8, 0, 0)),
			now:  at(10, 17, 59, 59),
		},
		{
			name:    "exactly at the cap",
			ce:      openAt(at(10, 8, 0, 0)),
			now:     at(10, 18, 0, 0),
			expired: true,
			reason:  ReasonCap,
		},
		{
			name:    "past the cap",
			ce:      openAt(at(10, 8, 0, 0)),
			now:     at(10, 18, 0, 1),
			expired: true,
			reason:  ReasonCap,
		},
		{
			name: "before the warning window",
			ce:   openAt(at(10, 23, 58, 0)),
			now:  at(10, 23, 58, 59),
		},
		{
			name: "inside the warning window",
			ce:   openAt(at(10, 23, 58, 0)),
			now:  at(10, 23, 59, 30),
			warn: true,
		},
		{
			name:    "at local midnight",
			ce:      openAt(at(10, 23, 58, 0)),
			now:     at(11, 0, 0, 0),
			expired: true,
			reason:  ReasonMidnight,
		},
		{
			name:    "past local midnight",
			ce:      openAt(at(10, 23, 58, 0)),
			now:     at(11, 0, 0, 1),
			expired: true,
			reason:  ReasonMidnight,
		},
		{
			name:    "cap wins over midnight",
			ce:      openAt(at(10, 14, 0, 0)),
			now:     at(11, 0, 0, 30),
			expired: true,
			reason:  ReasonCap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.ce, tt.now, testPolicy())
			if v.Expired != tt.expired || v.Reason != tt.reason || v.Warn != tt.warn {
				t.Errorf("Evaluate = %+v, want expired=%v reason=%q warn=%v", v, tt.expired, tt.reason, tt.warn)
			}
		})
	}
}

func TestEvaluate_ClosedNeverExpires(t *testing.T) {
	ce := openAt(at(10, 0, 0, 0))
	end := models.Millis(at(10, 1, 0, 0))
	ce.EndTime = &end

	if v := Evaluate(ce, at(12, 0, 0, 0), testPolicy()); v.Expired || v.Warn {
		t.Errorf("closed session verdict = %+v", v)
	}
}

func TestEvaluate_MidnightFollowsLocation(t *testing.T) {
	// 23:30 in UTC-5 is 04:30 UTC the next day; in UTC the session started
	// after midnight and is nowhere near its cutover.
	ce := openAt(at(10, 23, 30, 0))
	now := at(11, 0, 10, 0)

	utc := testPolicy()
	utc.Location = time.UTC
	if v := Evaluate(ce, now, utc); v.Expired {
		t.Errorf("UTC verdict = %+v, want not expired", v)
	}
	if v := Evaluate(ce, now, testPolicy()); !v.Expired || v.Reason != ReasonMidnight {
		t.Errorf("local verdict = %+v, want midnight", v)
	}
}

func TestEvaluate_Remaining(t *testing.T) {
	v := Evaluate(openAt(at(10, 9, 0, 0)), at(10, 10, 0, 0), testPolicy())
	if v.UntilCap != 9*time.Hour {
		t.Errorf("UntilCap = %v, want 9h", v.UntilCap)
	}
	if v.UntilCutover != 14*time.Hour {
		t.Errorf("UntilCutover = %v, want 14h", v.UntilCutover)
	}
}

func TestClosedMessage(t *testing.T) {
	p := testPolicy()
	if got := closedMessage(ReasonCap, "10h 00m 01s", p); got != "Your session reached the 10-hour limit and was clocked out after 10h 00m 01s." {
		t.Errorf("cap message = %q", got)
	}
	if got := closedMessage(ReasonMidnight, "2m 01s", p); got != "Your session was clocked out at midnight after 2m 01s." {
		t.Errorf("midnight message = %q", got)
	}
}
