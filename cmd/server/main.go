package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"agencyops/internal/bridge"
	bridgeHandler "agencyops/internal/bridge/handler"
	contactHandler "agencyops/internal/contact/handler"
	contactService "agencyops/internal/contact/service"
	contractHandler "agencyops/internal/contract/handler"
	contractService "agencyops/internal/contract/service"
	"agencyops/internal/history"
	"agencyops/internal/jobs"
	"agencyops/internal/platform/config"
	"agencyops/internal/platform/httpserver"
	"agencyops/internal/platform/kafka"
	"agencyops/internal/platform/logger"
	"agencyops/internal/platform/redis"
	rtwHandler "agencyops/internal/rtw/handler"
	rtwService "agencyops/internal/rtw/service"
	timesheetHandler "agencyops/internal/timesheet/handler"
	timesheetService "agencyops/internal/timesheet/service"
	httptransport "agencyops/internal/transport/http"
	"agencyops/internal/verification/cooldown"
	verificationHandler "agencyops/internal/verification/handler"
	"agencyops/internal/verification/notify"
	verificationService "agencyops/internal/verification/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until a signal arrives or a component
// fails.
func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	health := map[string]httptransport.HealthCheck{"store": st.health}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		health["redis"] = redisClient.Health
	}

	producer, err := kafka.New(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}

	recorderOpts := []history.Option{history.WithLogger(log), history.WithTimeout(cfg.StoreTimeout)}
	if producer != nil {
		recorderOpts = append(recorderOpts, history.WithPublisher(producer))
	}
	recorder := history.NewRecorder(st.history, recorderOpts...)

	contacts, err := contactService.New(st.contacts, contactService.WithLogger(log))
	if err != nil {
		return err
	}

	verificationOpts := []verificationService.Option{
		verificationService.WithLogger(log),
		verificationService.WithNotifier(notify.NewLogNotifier(log)),
		verificationService.WithTTL(cfg.Verification.CodeTTL),
		verificationService.WithDefaultPurpose(cfg.Verification.DefaultPurpose),
	}
	if redisClient != nil && cfg.Verification.ResendCooldown > 0 {
		verificationOpts = append(verificationOpts,
			verificationService.WithCooldown(cooldown.NewRedis(redisClient.Client, cfg.Verification.ResendCooldown)))
	}
	verification, err := verificationService.New(st.codes, st.contacts, verificationOpts...)
	if err != nil {
		return err
	}

	contracts, err := contractService.New(st.contracts, st.contacts, st.tx,
		contractService.WithLogger(log),
		contractService.WithHistory(recorder),
		contractService.WithExpireAfter(cfg.Contracts.ExpireAfter),
	)
	if err != nil {
		return err
	}

	checks, err := rtwService.New(st.checks, st.contacts, st.tx,
		rtwService.WithLogger(log),
		rtwService.WithHistory(recorder),
	)
	if err != nil {
		return err
	}

	timesheets, err := timesheetService.New(st.timesheets, st.contacts, st.tx,
		timesheetService.WithLogger(log),
		timesheetService.WithHistory(recorder),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(log, httptransport.Options{
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
		Health:         health,
	}, httptransport.Handlers{
		Contacts:     contactHandler.New(contacts, log),
		Verification: verificationHandler.New(verification, log),
		Contracts:    contractHandler.New(contracts, log),
		Rtw:          rtwHandler.New(checks, log),
		Timesheets:   timesheetHandler.New(timesheets, log),
		Bridge:       bridgeHandler.New(bridge.NewClient(cfg.Bridge, bridge.WithLogger(log)), log),
	})

	var expirer jobs.ContractExpirer
	if cfg.Contracts.ExpireAfter > 0 {
		expirer = contracts
	}
	scheduler := jobs.New(log)
	if err := scheduler.Register(cfg.Jobs, verification, expirer); err != nil {
		return err
	}

	srv := httpserver.New(cfg, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting agencyops", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if producer != nil {
			defer producer.Close(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
