// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/the-line/internal/access"
	"github.com/the-line/internal/broadcast"
	"github.com/the-line/internal/config"
	"github.com/the-line/internal/database"
	"github.com/the-line/internal/engine"
	"github.com/the-line/internal/jobs"
	"github.com/the-line/internal/logger"
	"github.com/the-line/internal/metrics"
	"github.com/the-line/internal/notify"
	"github.com/the-line/internal/queue"
	"github.com/the-line/internal/reminder"
	"github.com/the-line/internal/server"
	"github.com/the-line/internal/worker"
)

var (
	configPath = flag.String("config", "./config/line.yaml", "Path to the YAML config file")
	httpPort   = flag.Int("http-port", 0, "HTTP server port, overrides server.http_port")
)

const (
	shutdownTimeout = 5 * time.Second
	drainTimeout    = 10 * time.Second
)

func main() {
	flag.Parse()

	cfg, v, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *httpPort > 0 {
		cfg.Server.HTTPPort = *httpPort
	}

	lg, err := logger.Init(cfg.Log.File, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer lg.Close()
	// route the infrastructure packages' standard log output into the stream
	log.SetFlags(0)
	log.SetOutput(lg)

	mode, err := engine.ParseMode(cfg.Queue.PersistenceMode)
	if err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	store, err := database.NewStore(ctx, db, cfg.Database.Driver)
	if err != nil {
		logger.Fatalf("failed to initialize schema: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if cfg.Jobs.Backend == "redis" {
				logger.Fatalf("failed to connect to Redis: %v", err)
			}
			logger.Warnf("failed to connect to Redis: %v, offline mailboxes disabled", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	jobQueue, err := newJobQueue(ctx, cfg.Jobs, redisClient)
	if err != nil {
		logger.Fatalf("failed to create job queue: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	pool := worker.Pool{
		Queue:       jobQueue,
		Handler:     jobs.Handler(store),
		Workers:     cfg.Jobs.Workers,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		Metrics:     m,
	}

	messenger, hub := newMessenger(cfg.Messenger.Kind, redisClient)
	dispatcher := notify.NewDispatcher(messenger, m)
	recorder := jobs.NewRecorder(jobQueue, m)

	sched := reminder.NewScheduler(cfg.Reminder.Delay, nil)
	eng := engine.New(store, engine.Options{
		Mode:      mode,
		Recorder:  recorder,
		Notifier:  dispatcher,
		Reminders: sched,
		Metrics:   m,
	})
	sched.SetCallback(eng.FireReminder)

	if err := eng.LoadAll(ctx); err != nil {
		logger.Fatalf("failed to load queues: %v", err)
	}
	if cfg.Server.APIToken == "" {
		logger.Warnf("server.api_token is empty, caller identity headers are trusted as sent")
	}

	srv := server.New(server.Deps{
		Engine:    eng,
		Directory: store,
		Access:    access.NewChecker(store),
		Broadcast: broadcast.NewService(recorder, eng, dispatcher),
		Hub:       hub,
		Gatherer:  reg,
		Ping:      db.PingContext,
		Token:     cfg.Server.APIToken,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	config.Watch(v, func(next *config.Config) {
		sched.SetDelay(next.Reminder.Delay)
		lg.SetLevel(logger.ParseLevel(next.Log.Level))
		logger.Printf("config reloaded: reminder.delay=%s log.level=%s", next.Reminder.Delay, next.Log.Level)
	})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Printf("Starting %d background workers (backend=%s)", cfg.Jobs.Workers, cfg.Jobs.Backend)
		return worker.StartWorkers(workerCtx, pool)
	})
	g.Go(func() error {
		logger.Printf("HTTP server listening on %d", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	<-gctx.Done()
	waitForShutdown(shutdownDeps{
		httpServer:      httpServer,
		scheduler:       sched,
		hub:             hub,
		engine:          eng,
		jobQueue:        jobQueue,
		workerCancel:    workerCancel,
		clearOnShutdown: cfg.Queue.ClearOnShutdown,
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server stopped with error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func newJobQueue(ctx context.Context, cfg config.JobsConfig, redisClient *redis.Client) (queue.Queue, error) {
	if cfg.Backend == "redis" {
		if redisClient == nil {
			return nil, errors.New("jobs.backend redis requires a Redis connection")
		}
		return queue.NewRedisQueue(ctx, redisClient, cfg.Key, cfg.Capacity)
	}
	return queue.NewMemoryQueue(cfg.Capacity), nil
}

// newMessenger returns the outbound transport. The hub is nil unless kind is
// websocket.
func newMessenger(kind string, redisClient *redis.Client) (notify.Messenger, *notify.WebSocketHub) {
	switch kind {
	case "desktop":
		return notify.DesktopMessenger{Title: "the-line"}, nil
	case "log":
		return notify.LogMessenger{}, nil
	default:
		hub := notify.NewWebSocketHub(redisClient)
		return hub, hub
	}
}

type shutdownDeps struct {
	httpServer      *http.Server
	scheduler       *reminder.Scheduler
	hub             *notify.WebSocketHub
	engine          *engine.Engine
	jobQueue        queue.Queue
	workerCancel    context.CancelFunc
	clearOnShutdown bool
}

func waitForShutdown(d shutdownDeps) {
	logger.Println("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}

	// no reminder may fire once the queues start going away
	d.scheduler.Stop()
	if d.hub != nil {
		d.hub.Stop()
	}

	if d.clearOnShutdown {
		res := d.engine.ClearAll(ctx)
		logger.Printf("Cleared %d queued users on shutdown", res.Count)
	}

	// closing the job queue lets workers drain what is left
	if err := d.jobQueue.Close(); err != nil {
		logger.Errorf("job queue close error: %v", err)
	}
	time.AfterFunc(drainTimeout, d.workerCancel)
}
