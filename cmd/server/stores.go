package main

import (
	"context"
	"database/sql"
	"log/slog"

	contactService "agencyops/internal/contact/service"
	contactStorePkg "agencyops/internal/contact/store"
	contractService "agencyops/internal/contract/service"
	contractStore "agencyops/internal/contract/store"
	"agencyops/internal/history"
	historyStore "agencyops/internal/history/store"
	"agencyops/internal/platform/config"
	"agencyops/internal/platform/postgres"
	rtwService "agencyops/internal/rtw/service"
	rtwStore "agencyops/internal/rtw/store"
	timesheetService "agencyops/internal/timesheet/service"
	timesheetStore "agencyops/internal/timesheet/store"
	verificationService "agencyops/internal/verification/service"
	verificationStore "agencyops/internal/verification/store"
	"agencyops/pkg/platform/tx"
)

// contactStore is the union of what every workflow needs from contacts.
type contactStore interface {
	contactService.Store
	verificationService.ContactStore
	contractService.ContactStore
	rtwService.ContactStore
	timesheetService.ContactStore
}

type stores struct {
	contacts   contactStore
	codes      verificationService.CodeStore
	contracts  contractService.ContractStore
	checks     rtwService.CheckStore
	timesheets timesheetService.Store
	history    history.Store
	tx         tx.Runner
	health     func(ctx context.Context) error
	close      func() error
}

// openStores connects to Postgres when DATABASE_URL is set and falls back to
// in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		contacts := contactStorePkg.NewInMemory()
		return &stores{
			contacts:   contacts,
			codes:      verificationStore.NewInMemory(),
			contracts:  contractStore.NewInMemory(),
			checks:     rtwStore.NewInMemory(),
			timesheets: timesheetStore.NewInMemory(contacts),
			history:    historyStore.NewInMemory(),
			tx:         tx.NewLockRunner(cfg.StoreTimeout),
			health:     func(context.Context) error { return nil },
			close:      func() error { return nil },
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("connected to postgres", "max_open_conns", cfg.DBMaxOpenConns)
	return postgresStores(db, cfg), nil
}

func postgresStores(db *sql.DB, cfg config.Server) *stores {
	return &stores{
		contacts:   contactStorePkg.NewPostgres(db),
		codes:      verificationStore.NewPostgres(db),
		contracts:  contractStore.NewPostgres(db),
		checks:     rtwStore.NewPostgres(db),
		timesheets: timesheetStore.NewPostgres(db),
		history:    historyStore.NewPostgres(db),
		tx:         postgres.NewTxRunner(db, cfg.StoreTimeout),
		health:     db.PingContext,
		close:      db.Close,
	}
}
