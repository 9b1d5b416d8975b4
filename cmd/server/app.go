package main

import (
	"context"
	"fmt"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/categorizer"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/config"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledger"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/storage/sqlite"
)

// store is what the commands need from a storage backend.
type store interface {
	interfaces.LedgerStore
	interfaces.AccountCreator
}

// app holds the wired components shared by the commands.
type app struct {
	cfg         *config.Config
	logger      logging.Logger
	store       store
	users       interfaces.UserDirectory
	categorizer *categorizer.Service
	queue       *categorizer.Queue
	publisher   *kafka.Publisher
	ledger      *ledger.Ledger

	closers []func() error
}

func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format), nil
}

// newApp builds the full component graph. async selects queued
// categorization; one-shot commands categorize inline.
func newApp(ctx context.Context, async bool) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	svc, err := newCategorizer(ctx, cfg, a.store, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.categorizer = svc

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithUserDirectory(a.users),
		ledger.WithCategorizer(svc),
	}
	if async {
		a.queue = categorizer.NewQueue(svc, cfg.Categorizer.Workers, cfg.Categorizer.QueueSize, logger)
		opts = append(opts, ledger.WithDispatcher(a.queue))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		a.closers = append(a.closers, a.publisher.Close)
		opts = append(opts, ledger.WithPublisher(a.publisher))
		logger.Info("Publishing committed transactions",
			logging.F(logging.FieldTopic, cfg.Kafka.Topic))
	}

	a.ledger = ledger.NewLedger(a.store, opts...)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	log := a.logger.WithField("driver", a.cfg.Storage.Driver)

	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(a.cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.store, a.users = s, s.Users()
		a.closers = append(a.closers, s.Close)
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		a.store, a.users = s, s.Users()
		a.closers = append(a.closers, s.Close)
	default:
		a.store, a.users = memory.NewMemoryLedgerStore(), memory.NewUserDirectory(nil)
		log.Warn("Using in-memory store, data is lost on exit")
	}

	log.Info("Store opened")
	return nil
}

// newCategorizer assembles the classifier chain: the HTTP endpoint first,
// then Gemini, then the keyword rules.
func newCategorizer(ctx context.Context, cfg *config.Config, writer categorizer.CategoryWriter, logger logging.Logger) (*categorizer.Service, error) {
	rules := categorizer.DefaultRuleSet()
	if cfg.Categorizer.RulesFile != "" {
		loaded, err := categorizer.LoadRules(cfg.Categorizer.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	opts := []categorizer.Option{
		categorizer.WithRules(rules),
		categorizer.WithTimeout(cfg.CategorizerTimeout()),
		categorizer.WithLogger(logger),
	}
	if cfg.Categorizer.Endpoint != "" {
		opts = append(opts, categorizer.WithClassifier(categorizer.NewHTTPClassifier(
			cfg.Categorizer.Endpoint, cfg.Categorizer.APIKey, nil, cfg.CategorizerTimeout())))
	}
	if cfg.Gemini.Enabled {
		gemini, err := categorizer.NewGeminiClassifier(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, rules.Categories())
		if err != nil {
			return nil, fmt.Errorf("create gemini classifier: %w", err)
		}
		opts = append(opts, categorizer.WithClassifier(gemini))
	}
	return categorizer.NewService(writer, opts...), nil
}

// close drains the categorization queue and releases the store and
// publisher, in that order.
func (a *app) close(ctx context.Context) {
	if a.queue != nil {
		if err := a.queue.Close(ctx); err != nil {
			a.logger.WithError(err).Warn("Categorization queue did not drain")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("Failed to close resource")
		}
	}
}
