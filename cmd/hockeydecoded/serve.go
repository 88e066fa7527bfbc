package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/livegames"
	"github.com/dwiwad/hockeydecoded/logging"
	"github.com/dwiwad/hockeydecoded/nhlapi"
	"github.com/dwiwad/hockeydecoded/views"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	poll := fs.Bool("poll", false, "also poll live NHL scores and push them over websockets")
	static := fs.String("static", "", "directory served under /static (default STATIC_DIR or static)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := hockeydecoded.LoadConfig()
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	store, err := hockeydecoded.NewStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	if _, err := hockeydecoded.Seed(ctx, store, log); err != nil {
		return err
	}

	v, err := views.New(cfg)
	if err != nil {
		return err
	}
	opts := []hockeydecoded.Option{hockeydecoded.WithStore(store), hockeydecoded.WithLogger(log)}
	if *static != "" {
		opts = append(opts, hockeydecoded.WithStaticDir(*static))
	}

	var cache *livegames.RedisCache
	if cfg.RedisURL != "" {
		client, err := livegames.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = livegames.NewRedisCache(client, 0)
		opts = append(opts, hockeydecoded.WithLiveScores(cache))
	}

	if *poll {
		hub := livegames.NewHub(log)
		go hub.Run(ctx)
		opts = append(opts, hockeydecoded.WithLiveStream(hub))

		pollerOpts := []livegames.PollerOption{livegames.WithBroadcaster(hub)}
		if cache != nil {
			pollerOpts = append(pollerOpts, livegames.WithCache(cache))
		}
		poller := livegames.NewPoller(nhlapi.New(), store, log, pollerOpts...)
		go func() {
			if err := poller.Run(ctx, cfg.LivePollSpec); err != nil {
				log.WithError(err).Error("live poller stopped")
			}
		}()
	}

	app := hockeydecoded.New(cfg, v.Funcs(), opts...)
	defer app.Close()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

func runPoll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("poll", flag.ContinueOnError)
	once := fs.Bool("once", false, "poll a single time and exit")
	schedule := fs.String("schedule", "", "cron spec (default LIVE_POLL_SPEC or "+livegames.DefaultSchedule+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := loadEnv(); err != nil {
		return err
	}
	log := newLogger()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var opts []livegames.PollerOption
	if url := hockeydecoded.EnvOr("REDIS_URL", ""); url != "" {
		client, err := livegames.NewRedisClient(ctx, url)
		if err != nil {
			return err
		}
		defer closeRedis(client, log)
		opts = append(opts, livegames.WithCache(livegames.NewRedisCache(client, 0)))
	}
	poller := livegames.NewPoller(nhlapi.New(), store, log, opts...)

	if *once {
		res, err := poller.PollOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("games: %d saved, %d skipped, %d failed, %d closed, %d live\n", res.Saved, res.Skipped, res.Failed, res.Closed, len(res.Live))
		return nil
	}

	spec := *schedule
	if spec == "" {
		spec = hockeydecoded.EnvOr("LIVE_POLL_SPEC", livegames.DefaultSchedule)
	}
	if err := poller.Run(ctx, spec); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeRedis(client *redis.Client, log logrus.FieldLogger) {
	if err := client.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis client")
	}
}
