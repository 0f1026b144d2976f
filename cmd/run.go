package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/application"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/config"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/database"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/events"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/infrastructure/observability"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/repository"

	log "github.com/sirupsen/logrus"
)

// Runtime holds the wired ledger and the resources behind it
type Runtime struct {
	Ledger *application.Ledger
	Store  interfaces.KeyedStore

	closers []func()
}

// Close releases every resource in reverse acquisition order
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// BuildLedger connects the configured store and audit publisher and wires the ledger
func BuildLedger(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}

	store, err := openStore(ctx, cfg, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Store = store

	publisher, err := openAuditPublisher(ctx, cfg, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(store, publisher)
	rt.Ledger = application.NewLedger(uowFactory, cfg.DefaultScope)

	return rt, nil
}

func openStore(ctx context.Context, cfg *config.Config, rt *Runtime) (interfaces.KeyedStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		log.Info("Database connection established successfully")
		return repository.NewPostgresStore(db), nil

	case config.StoreBackendRedis:
		log.WithField("addr", cfg.RedisAddr).Info("Connecting to redis...")
		client, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store := repository.NewRedisStore(client)
		rt.closers = append(rt.closers, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Error("Error closing redis store")
			}
		})
		log.Info("Redis connection established successfully")
		return store, nil

	case config.StoreBackendMemory:
		log.Warn("Using in-memory store, nothing will be persisted")
		return repository.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openAuditPublisher(ctx context.Context, cfg *config.Config, rt *Runtime) (interfaces.EventPublisher, error) {
	switch cfg.AuditPublisher {
	case config.AuditPublisherNATS:
		log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		rt.closers = append(rt.closers, func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS client")
			}
		})

		subjectMapper := infrastructure.NewEventSubjectMapper()
		if err := natsClient.EnsureLedgerStream(subjectMapper.GetAllSubjects()); err != nil {
			return nil, fmt.Errorf("failed to ensure ledger stream: %w", err)
		}
		log.Info("NATS connection established successfully")
		return infrastructure.NewNATSEventPublisher(natsClient, subjectMapper), nil

	case config.AuditPublisherBus:
		bus := events.NewBus()
		application.RegisterAuditSubscriptions(bus)
		return bus, nil

	case config.AuditPublisherNone:
		return infrastructure.NewNoopEventPublisher(), nil

	default:
		return nil, fmt.Errorf("unknown audit publisher %q", cfg.AuditPublisher)
	}
}

// Run wires the ledger and keeps it serving until ctx is cancelled
func Run(ctx context.Context) error {
	log.Info("Starting progression ledger...")

	cfg := config.Get()

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}

	rt, err := BuildLedger(ctx, cfg)
	if err != nil {
		return err
	}

	teams, err := rt.Ledger.Wagers.ListTeams(ctx)
	if err != nil {
		rt.Close()
		return fmt.Errorf("failed to count open teams: %w", err)
	}
	observability.GetMetrics().RecordOpenTeams(int64(len(teams)))

	log.WithFields(log.Fields{
		"environment":  cfg.Environment,
		"store":        cfg.StoreBackend,
		"audit":        cfg.AuditPublisher,
		"defaultScope": cfg.DefaultScope,
	}).Info("Ledger is running")
	<-ctx.Done()

	log.Info("Shutting down ledger...")
	rt.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}
