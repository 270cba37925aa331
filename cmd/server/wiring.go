package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"securetransfer/internal/audit"
	"securetransfer/internal/content"
	jwttoken "securetransfer/internal/jwt_token"
	"securetransfer/internal/keystore"
	"securetransfer/internal/nonce"
	"securetransfer/internal/platform/config"
	"securetransfer/internal/platform/metrics"
	"securetransfer/internal/platform/postgres"
	"securetransfer/internal/platform/redis"
	"securetransfer/internal/ratelimit"
	"securetransfer/internal/transfer"
	"securetransfer/internal/transfer/store"
	httptransport "securetransfer/internal/transport/http"
	"securetransfer/pkg/platform/circuit"
)

type application struct {
	keys       *keystore.Store
	router     http.Handler
	dispatcher *transfer.Dispatcher
	auditor    *audit.Publisher
	sweeper    *nonce.Sweeper
	closers    []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			app.close()
		}
	}()
	var health []func(context.Context) error

	app.keys, err = keystore.Bootstrap(ctx, cfg.Identities...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap keys: %w", err)
	}
	m := metrics.New()

	files, err := content.NewFileStore(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	var db *postgres.DB
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		health = append(health, db.Health)
	}

	var transfers transfer.TransferStore = store.NewInMemoryStore()
	if db != nil {
		pg := store.NewPostgres(db.SQL)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		transfers = pg
	}

	var registry transfer.NonceRegistry
	switch cfg.Nonce.Backend {
	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		health = append(health, client.Health)
		registry = nonce.NewRedisRegistry(client.Client, nonce.WithValidity(cfg.Nonce.Validity))
	case "postgres":
		pg := nonce.NewPostgresRegistry(db.Pool, clock.New())
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		registry = pg
		app.sweeper = newSweeper(pg, cfg, log, m)
	default:
		mem := nonce.NewMemoryRegistry()
		registry = mem
		app.sweeper = newSweeper(mem, cfg, log, m)
	}

	var auditStore audit.Store = audit.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := audit.NewKafkaStore(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, kafka.Close)
		if err := kafka.EnsureTopic(ctx, 1, 1); err != nil {
			return nil, err
		}
		auditStore = audit.NewFallbackStore(kafka, audit.NewInMemoryStore(), circuit.New("audit-kafka"), log)
	}
	app.auditor = audit.NewPublisher(auditStore, audit.WithAsyncBuffer(1024), audit.WithLogger(log))

	protocol, err := transfer.NewProtocol(app.keys, registry,
		transfer.WithProtocolLogger(log),
		transfer.WithProtocolMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	engine, err := transfer.NewEngine(protocol, transfers, files,
		transfer.WithAuditor(app.auditor),
		transfer.WithMetrics(m),
		transfer.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	app.dispatcher = transfer.NewDispatcher(engine, log)
	service, err := transfer.NewService(transfers, files, app.dispatcher,
		transfer.WithServiceAuditor(app.auditor),
		transfer.WithServiceMetrics(m),
		transfer.WithServiceLogger(log),
	)
	if err != nil {
		return nil, err
	}

	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set JWT_SIGNING_KEY")
	}
	tokens, err := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if cfg.UploadsPerMin > 0 {
		limiter = ratelimit.NewLimiter(cfg.UploadsPerMin, time.Minute)
	}

	app.router = httptransport.NewRouter(
		httptransport.New(service, log, httptransport.WithMaxUploadBytes(cfg.MaxUploadBytes)),
		httptransport.RouterConfig{
			Validator:     jwttoken.NewIdentityValidator(tokens),
			Logger:        log,
			Metrics:       promhttp.Handler(),
			UploadLimiter: limiter,
			Ready: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				for _, check := range health {
					if err := check(ctx); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return app, nil
}

func newSweeper(target nonce.Sweepable, cfg config.Server, log *slog.Logger, m *metrics.Metrics) *nonce.Sweeper {
	return nonce.NewSweeper(target,
		nonce.WithInterval(cfg.Nonce.SweepInterval),
		nonce.WithWindow(cfg.Nonce.Validity),
		nonce.WithLogger(log),
		nonce.WithRecorder(m),
	)
}
