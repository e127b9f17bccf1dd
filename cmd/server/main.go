package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/config"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/analytics"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/catalog"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/users"
	dwallet "github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/alerts"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/db"
	httpx "github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/http"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/logger"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/payments"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/assign"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/referral"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store/pgxstore"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/example.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.LogLevel)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = db.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Error("redis connect failed", "err", err)
			return
		}
		defer func() { _ = rdb.Close() }()
		log.Info("redis connected")
	}

	var notifier *alerts.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = alerts.NewNotifier(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Warn("telegram alerts disabled", "err", err)
		}
	}

	timeout := cfg.Providers.Timeout
	cryptoClient := payments.NewCryptoClient(cfg.Providers.CryptoInvoice.BaseURL, cfg.Providers.CryptoInvoice.APIKey, timeout)
	paypalClient := payments.NewPayPalClient(cfg.Providers.PayPal.BaseURL, cfg.Providers.PayPal.ClientID, cfg.Providers.PayPal.Secret, timeout)
	razorpayClient := payments.NewRazorpayClient(cfg.Providers.Razorpay.BaseURL, cfg.Providers.Razorpay.KeyID, cfg.Providers.Razorpay.KeySecret, timeout)

	st := pgxstore.New(pool, log)
	analyticsRepo := analytics.NewRepo(pool)

	bundles := dwallet.NewBundles(bundleTable(cfg))
	processor := wallet.NewProcessor(st, bundles, wallet.Secrets{
		CryptoIPNSecret:       cfg.Providers.CryptoInvoice.IPNSecret,
		RazorpayWebhookSecret: cfg.Providers.Razorpay.WebhookSecret,
	}, cryptoClient, paypalClient, razorpayClient, rdb, analyticsRepo, notifier, log)

	awarder := referral.New(st, cfg.Referral.Credits, analyticsRepo, log)
	assignor := assign.New(st, cfg.Durations, analyticsRepo, awarder, log)

	srv := httpx.New(cfg.HTTP.Addr, cfg.App.Env, httpx.Deps{
		Log:            log,
		AdminToken:     cfg.HTTP.AdminToken,
		Assignor:       assignor,
		Wallet:         processor,
		Users:          users.NewRepo(pool),
		Subs:           subscriptions.NewRepo(pool),
		Catalog:        catalog.NewRepo(pool),
		Journal:        dwallet.NewJournalRepo(pool),
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

func bundleTable(cfg config.Config) map[string]dwallet.Bundle {
	if len(cfg.Bundles) == 0 {
		return dwallet.DefaultBundles()
	}
	out := make(map[string]dwallet.Bundle, len(cfg.Bundles))
	for id, b := range cfg.Bundles {
		out[id] = dwallet.Bundle{USD: b.USD, Credits: b.Credits}
	}
	return out
}
