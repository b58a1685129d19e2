package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/StoreStation/chunkserver/internal/config"
	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/scheduler"
	"github.com/StoreStation/chunkserver/internal/services"
	"github.com/StoreStation/chunkserver/internal/transport"
	"github.com/StoreStation/chunkserver/internal/upstream"
)

// ConfigPath is the default location of the chunk server's YAML config,
// overridable via the CHUNKSERVER_CONFIG environment variable.
const ConfigPath = "config/chunkserver.yaml"

// ingressPopBatch bounds how many events one worker pulls off the ingress
// queue per PopBatch call — large enough to amortize the queue lock, small
// enough that one worker can't starve the others for long.
const ingressPopBatch = 64

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("CHUNKSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadChunkServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.Log.Level)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	log.Info("chunk server starting",
		"chunk_bind", cfg.ChunkServer.Host, "chunk_port", cfg.ChunkServer.Port,
		"game_server", fmt.Sprintf("%s:%d", cfg.GameServer.Host, cfg.GameServer.Port))

	clock := idgen.SystemClock{}
	svc := services.New(clock, services.QueueSizes{
		IngressClient:   cfg.Queues.IngressClientCapacity,
		IngressUpstream: cfg.Queues.IngressUpstreamCapacity,
		Ping:            cfg.Queues.PingCapacity,
	}, log)

	acceptor := transport.NewClientAcceptor(transport.AcceptorConfig{
		Host:          cfg.ChunkServer.Host,
		Port:          cfg.ChunkServer.Port,
		MaxClients:    cfg.ChunkServer.MaxClients,
		ReadTimeout:   cfg.ChunkServer.ReadTimeout,
		WriteTimeout:  cfg.ChunkServer.WriteTimeout,
		SendQueueSize: cfg.ChunkServer.SendQueueSize,
	}, svc.Clients, svc.Dispatcher, log)

	link := upstream.New(cfg.GameServer, cfg.ChunkServer, svc.Dispatcher, log)

	sched := scheduler.New(cfg.Scheduler, svc.Zones, svc.Mobs, svc.Loot,
		svc.Spawn, svc.Movement, svc.Skills, svc.HarvestEng, svc.Dispatcher, clock, log)

	workers := cfg.WorkerPool.Size
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			runIngressWorker(gctx, svc, log)
			return nil
		})
	}
	g.Go(func() error {
		runPingWorker(gctx, svc, log)
		return nil
	})

	g.Go(func() error {
		log.Info("starting scheduler")
		if err := sched.Run(gctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting upstream link", "address", fmt.Sprintf("%s:%d", cfg.GameServer.Host, cfg.GameServer.Port))
		if err := link.Run(gctx); err != nil {
			return fmt.Errorf("upstream link: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting client acceptor", "port", cfg.ChunkServer.Port, "workers", workers)
		if err := acceptor.Run(gctx); err != nil {
			return fmt.Errorf("client acceptor: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		svc.Ingress.Close()
		svc.Ping.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runIngressWorker drains the shared client/upstream/internal event queue
// and hands each event to Handler. Every registry and store Handler touches
// guards its own state with its own lock, so any number of these workers may
// run concurrently without a central single-threaded gate; ordering between
// two events for the same client/mob is only as strict as whichever worker
// happens to pop them first, which is acceptable for this simulation's
// eventually-consistent broadcast model.
func runIngressWorker(ctx context.Context, svc *services.GameServices, log *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		events, ok := svc.Ingress.PopBatch(ingressPopBatch)
		if !ok {
			return
		}
		for _, e := range events {
			svc.Handler.HandleEvent(e)
		}
	}
}

// runPingWorker drains the ping queue one event at a time on its own
// goroutine, kept separate from the ingress workers so a burst of simulation
// events never delays a ping reply.
func runPingWorker(ctx context.Context, svc *services.GameServices, log *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		e, ok := svc.Ping.Pop()
		if !ok {
			return
		}
		svc.Handler.HandleEvent(e)
	}
}

// parseLogLevel converts string log level to slog.Level. Defaults to Info
// if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
