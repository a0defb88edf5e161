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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tgwebhook"
	"github.com/dmitrymomot/tgwebhook/pkg/clientip"
	"github.com/dmitrymomot/tgwebhook/pkg/config"
	"github.com/dmitrymomot/tgwebhook/pkg/httpserver"
	"github.com/dmitrymomot/tgwebhook/pkg/logger"
	"github.com/dmitrymomot/tgwebhook/pkg/metrics"
	"github.com/dmitrymomot/tgwebhook/pkg/ratelimiter"
	"github.com/dmitrymomot/tgwebhook/pkg/redis"
	"github.com/dmitrymomot/tgwebhook/pkg/requestid"
)

type serveFlags struct {
	envFiles    []string
	botPath     string
	secretToken string
	healthPath  string
	metricsHost string
	metricsPort int

	telegramOnly bool
	allowNets    []string
	ipHeaders    []string

	dedupSize int
	dedupTTL  time.Duration
	rateLimit bool
}

func serveCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server with the echo bot",
		Long: `Run the webhook server and bind the echo bot to --path.

The server stops gracefully on SIGINT or SIGTERM. Prometheus metrics are
served on a separate port unless --metrics-port is 0. When REDIS_URL is
set, redeliveries are deduplicated in Redis instead of in memory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, f)
		},
	}

	cmd.Flags().StringSliceVar(&f.envFiles, "env-file", nil, "dotenv files to load (default .env if present)")
	cmd.Flags().StringVar(&f.botPath, "path", "/bot", "webhook path the echo bot is bound to")
	cmd.Flags().StringVar(&f.secretToken, "secret-token", os.Getenv("BOT_SECRET_TOKEN"), "expected X-Telegram-Bot-Api-Secret-Token value")
	cmd.Flags().StringVar(&f.healthPath, "health-path", "/healthz", "readiness probe path, empty to disable")
	cmd.Flags().StringVar(&f.metricsHost, "metrics-host", "", "metrics listen host")
	cmd.Flags().IntVar(&f.metricsPort, "metrics-port", 9090, "metrics listen port, 0 to disable")
	cmd.Flags().BoolVar(&f.telegramOnly, "telegram-only", false, "accept webhook requests from Telegram networks only")
	cmd.Flags().StringSliceVar(&f.allowNets, "allow-network", nil, "additional CIDR or address allowed to call the webhook")
	cmd.Flags().StringSliceVar(&f.ipHeaders, "client-ip-header", nil, "trusted proxy header carrying the client address, in priority order")
	cmd.Flags().IntVar(&f.dedupSize, "dedup-size", 10000, "number of recent update ids remembered to skip redeliveries, 0 to disable")
	cmd.Flags().DurationVar(&f.dedupTTL, "dedup-ttl", time.Hour, "how long an update id is remembered")
	cmd.Flags().BoolVar(&f.rateLimit, "rate-limit", false, "limit webhook requests per client address (tuned by RATE_LIMIT_* variables)")
	return cmd
}

func serve(ctx context.Context, f serveFlags) error {
	var loadOpts []config.Option
	if len(f.envFiles) > 0 {
		loadOpts = append(loadOpts, config.WithEnvFiles(f.envFiles...))
	}

	var logCfg logger.Config
	if err := config.Load(&logCfg, loadOpts...); err != nil {
		return fmt.Errorf("load logger config: %w", err)
	}
	log := logger.NewFromConfig(logCfg,
		logger.WithAttr(slog.String("version", version)),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	opts, err := tgwebhook.LoadOptions(loadOpts...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.New(metrics.WithRegistry(reg))
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	allowed, err := f.networks()
	if err != nil {
		return err
	}

	appOpts := append([]tgwebhook.Option{
		tgwebhook.WithLogger(log),
		tgwebhook.WithHealthCheck(f.healthPath),
		tgwebhook.WithClientIPHeaders(f.ipHeaders...),
		tgwebhook.WithAllowedNetworks(allowed),
		tgwebhook.WithDeduplication(f.dedupSize, f.dedupTTL),
	}, collector.Options()...)

	if f.rateLimit {
		var rlCfg ratelimiter.Config
		if err := config.Load(&rlCfg, loadOpts...); err != nil {
			return fmt.Errorf("load rate limit config: %w", err)
		}
		appOpts = append(appOpts, tgwebhook.WithRateLimit(rlCfg))
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg, loadOpts...); err != nil {
		return fmt.Errorf("load redis config: %w", err)
	}
	if redisCfg.ConnectionURL != "" {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		log.Info("deduplicating updates in redis", slog.String("prefix", redisCfg.KeyPrefix))

		appOpts = append(appOpts,
			tgwebhook.WithDedupStore(redis.NewDedupStore(client,
				redis.WithKeyPrefix(redisCfg.KeyPrefix),
				redis.WithTTL(redisCfg.DedupTTL),
			)),
			tgwebhook.WithReadinessCheck(redis.Healthcheck(client)),
		)
	}

	app, err := tgwebhook.New(opts, appOpts...)
	if err != nil {
		return err
	}
	defer app.Close()

	bot := echoBot{path: f.botPath, secret: f.secretToken, log: log}
	if err := app.RegisterBot(bot); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down webhook server")
		return app.Shutdown(context.WithoutCancel(ctx))
	})

	if f.metricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		msrv, err := httpserver.Listen(
			httpserver.Config{Host: f.metricsHost, Port: f.metricsPort},
			mux,
			httpserver.WithLogger(log.With(logger.Component("metrics"))),
		)
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		log.Info("metrics server listening", logger.Addr(msrv.Addr().String()))

		g.Go(func() error {
			select {
			case <-ctx.Done():
				return msrv.Shutdown(context.WithoutCancel(ctx))
			case <-msrv.Done():
				return msrv.Err()
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("tgwebhook exited with error", logger.Error(err))
		return err
	}
	log.Info("tgwebhook shut down complete")
	return nil
}

// networks returns the webhook allowlist, nil when unrestricted.
func (f serveFlags) networks() (clientip.Networks, error) {
	extra, err := clientip.ParseNetworks(f.allowNets...)
	if err != nil {
		return nil, err
	}
	if !f.telegramOnly {
		if len(extra) == 0 {
			return nil, nil
		}
		return extra, nil
	}
	return append(append(clientip.Networks{}, clientip.TelegramNetworks...), extra...), nil
}
