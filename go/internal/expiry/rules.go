// Package expiry closes clock sessions that run past the continuous-work cap
// or across local midnight. Evaluate is the only implementation of the rules;
// the Monitor acts on it and the Advisor only reports it.
package expiry

import (
	"time"

	"github.com/mcdev12/timekeep/go/internal/models"
)

// Reason names the rule that expired a session.
type Reason string

const (
	ReasonCap      Reason = "cap"
	ReasonMidnight Reason = "midnight"
)

// Policy configures both rules.
type Policy struct {
	// Cap is the longest a session may stay open, measured from its start.
	Cap time.Duration `yaml:"cap"`
	// WarnBefore is how long before the local midnight cutover the advisory
	// warning is raised.
	WarnBefore time.Duration `yaml:"warn_before"`
	// Location decides where midnight is.
	Location *time.Location `yaml:"-"`
}

func DefaultPolicy() Policy {
	return Policy{
		Cap:        10 * time.Hour,
		WarnBefore: time.Minute,
		Location:   time.Local,
	}
}

// Verdict is the outcome of evaluating one session at one instant.
type Verdict struct {
	Expired bool
	Reason  Reason
	// Warn is set when the session is still valid but inside the warning
	// window before the cutover.
	Warn         bool
	UntilCap     time.Duration
	UntilCutover time.Duration
}

// Evaluate applies the cap and midnight rules to ce at now. Closed sessions
// never expire. The cap wins when both rules apply.
func Evaluate(ce models.ClockEvent, now time.Time, p Policy) Verdict {
	if !ce.IsOpen() {
		return Verdict{}
	}
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}

	local := now.In(loc)
	elapsed := time.Duration(models.Millis(now)-ce.StartTimestamp) * time.Millisecond
	cutover := nextMidnight(models.FromMillis(ce.StartTimestamp, loc))

	v := Verdict{
		UntilCap:     p.Cap - elapsed,
		UntilCutover: cutover.Sub(local),
	}
	switch {
	case elapsed >= p.Cap:
		v.Expired, v.Reason = true, ReasonCap
	case !local.Before(cutover):
		v.Expired, v.Reason = true, ReasonMidnight
	case !local.Before(cutover.Add(-p.WarnBefore)):
		v.Warn = true
	}
	return v
}

// nextMidnight returns the first instant of the local day after t.
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
