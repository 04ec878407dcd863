// Package testutil holds fixtures shared by the package tests: a migrated
// SQLite store in a temp dir, a team directory and a recording dispatcher.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/access"
	"github.com/mcdev12/timekeep/go/internal/notify"
	"github.com/mcdev12/timekeep/go/internal/store/sqlite"
)

// Zone is a fixed UTC-5 zone so midnight arithmetic does not depend on the
// machine running the tests.
var Zone = time.FixedZone("EST", -5*60*60)

// NewStore opens a migrated SQLite store that is closed when the test ends.
func NewStore(t testing.TB) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "timekeep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	return st
}

// NewClock returns a fake clock at the given wall time in Zone.
func NewClock(year int, month time.Month, day, hour, min, sec int) *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(year, month, day, hour, min, sec, 0, Zone))
}

// Team is one team with an admin and two plain members.
type Team struct {
	ID     uuid.UUID
	Admin  uuid.UUID
	Member uuid.UUID
	Other  uuid.UUID
	Dir    *access.StaticDirectory
}

// NewTeam builds a single-team directory.
func NewTeam() Team {
	tm := Team{
		ID:     uuid.New(),
		Admin:  uuid.New(),
		Member: uuid.New(),
		Other:  uuid.New(),
	}
	tm.Dir = access.NewStaticDirectory([]access.TeamEntry{{
		ID:      tm.ID,
		Name:    "platform",
		Admins:  []uuid.UUID{tm.Admin},
		Members: []uuid.UUID{tm.Member, tm.Other},
	}})
	return tm
}

// As returns a context acting as userID.
func As(userID uuid.UUID) context.Context {
	return access.WithActor(context.Background(), userID)
}

// Sent is one notification captured by RecordingDispatcher.
type Sent struct {
	Type notify.EventType
	To   notify.Recipient
	Msg  notify.Message
}

// RecordingDispatcher is a notify.Dispatcher that keeps every notification.
type RecordingDispatcher struct {
	mu   sync.Mutex
	sent []Sent
}

func (d *RecordingDispatcher) Notify(_ context.Context, eventType notify.EventType, to notify.Recipient, msg notify.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, Sent{Type: eventType, To: to, Msg: msg})
}

// Of returns the notifications of one type in send order.
func (d *RecordingDispatcher) Of(eventType notify.EventType) []Sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Sent
	for _, s := range d.sent {
		if s.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

// Len returns how many notifications were sent.
func (d *RecordingDispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}
