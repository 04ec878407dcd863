package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/access"
	"github.com/mcdev12/timekeep/go/internal/clockevents"
	"github.com/mcdev12/timekeep/go/internal/expiry"
	"github.com/mcdev12/timekeep/go/internal/gateway"
	"github.com/mcdev12/timekeep/go/internal/notify"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/mcdev12/timekeep/go/internal/tickets"
	"github.com/mcdev12/timekeep/go/internal/timesheet"
	"github.com/rs/zerolog/log"
)

// Services is the wired application. Closers run in reverse order on Close.
type Services struct {
	Store       store.Store
	Ledger      *clockevents.App
	Tickets     *tickets.App
	Timesheet   *timesheet.App
	Monitor     *expiry.Monitor
	Advisor     *expiry.Advisor
	Connections *gateway.ConnectionManager
	Relay       *notify.Relay

	LedgerService    *clockevents.Service
	TicketService    *tickets.Service
	TimesheetService *timesheet.Service

	closers []func() error
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
}

func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Store → App layer → Service layer; expiry and gateway hang off the ledger
	svc := &Services{}
	clock := clockwork.NewRealClock()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc.Store = st
	svc.closers = append(svc.closers, st.Close)

	dir, err := loadDirectory(cfg.DirectoryFile)
	if err != nil {
		svc.Close()
		return nil, err
	}

	publisher, err := setupPublisher(ctx, cfg, svc)
	if err != nil {
		svc.Close()
		return nil, err
	}

	var dispatcher notify.Dispatcher
	if cfg.Store == "postgres" {
		db, err := openOutboxDB(ctx, cfg)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.closers = append(svc.closers, db.Close)
		dispatcher = notify.NewOutboxDispatcher(notify.NewOutboxRepository(db), clock.Now)
		if svc.Relay, err = setupRelay(db, publisher, cfg); err != nil {
			svc.Close()
			return nil, err
		}
	} else {
		dispatcher = notify.NewAsyncDispatcher(publisher, notify.DefaultRetryConfig(), clock.Now)
	}

	svc.Connections = gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), clock)

	// Ledger
	svc.Ledger = clockevents.NewApp(st, dir, dispatcher, clock, cfg.policy.Location)
	svc.LedgerService = clockevents.NewService(svc.Ledger)

	// Tickets
	svc.Tickets = tickets.NewApp(st, dir, clock)
	svc.TicketService = tickets.NewService(svc.Tickets)

	// Timesheet
	svc.Timesheet = timesheet.NewApp(st, dir, clock, cfg.policy.Location, cfg.TicketURL)
	svc.TimesheetService = timesheet.NewService(svc.Timesheet)

	// Expiry
	svc.Monitor = expiry.NewMonitor(st, svc.Ledger, dispatcher, svc.Connections, clock, cfg.policy, cfg.MonitorInterval)
	svc.Advisor = expiry.NewAdvisor(st, svc.Monitor, dispatcher, svc.Connections, clock, cfg.policy, cfg.AdvisorTick)
	svc.Ledger.OnChange(svc.Advisor.Nudge)

	return svc, nil
}

func setupPublisher(ctx context.Context, cfg *Config, svc *Services) (notify.Publisher, error) {
	if cfg.NATSURL == "" {
		log.Warn().Msg("NATS_URL not set, notifications will only be logged")
		return notify.LogPublisher{}, nil
	}

	jsCfg := notify.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	publisher, err := notify.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification publisher: %w", err)
	}
	svc.closers = append(svc.closers, publisher.Close)
	return publisher, nil
}

func setupRelay(db *sql.DB, publisher notify.Publisher, cfg *Config) (*notify.Relay, error) {
	relayCfg := notify.DefaultRelayConfig()
	relayCfg.DatabaseURL = cfg.database.DSN()
	relay, err := notify.NewRelay(db, publisher, relayCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification relay: %w", err)
	}
	return relay, nil
}

// loadDirectory reads the team roster. Without a file nobody is a member,
// which refuses every mutation.
func loadDirectory(path string) (access.Directory, error) {
	dir, err := access.LoadDirectoryFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("team directory file not found, starting with an empty directory")
		return access.NewStaticDirectory(nil), nil
	}
	return dir, err
}
