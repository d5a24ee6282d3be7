package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/config"
	"github.com/danielpatrickdp/adaptive-signal/internal/controller"
	"github.com/danielpatrickdp/adaptive-signal/internal/httpapi"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
	"github.com/danielpatrickdp/adaptive-signal/internal/notify"
	"github.com/danielpatrickdp/adaptive-signal/internal/rpc"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// #region main
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("controller: %v", err)
	}
	log.Println("controller stopped")
}

// #endregion main

// #region run
func run(ctx context.Context, cfg config.Config) error {
	// Initialize state store
	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	for _, in := range cfg.Intersections {
		if err := store.EnsureIntersection(ctx, in.ID, len(in.Lanes), in.InitialGreen); err != nil {
			return err
		}
	}

	var greens controller.GreenStore = store
	if cfg.RedisAddr != "" {
		rs, client, err := state.NewRedisGreenStore(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		greens = rs
	}

	var publisher controller.Publisher = notify.Nop{}
	if cfg.NATSURL != "" {
		pub, err := notify.Connect(notify.DefaultConfig(cfg.NATSURL))
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = pub
	}

	ctrl := controller.New(arbiter.New(cfg.Engine), greens, logging.NewRecorder(store.DB()), publisher)
	runner := controller.NewRunner(ctrl, lanes.NewBoard(), lanes.NewWaitTracker(), cfg.Intersections, cfg.IdleInterval)
	// Redis keeps its green index across layout changes; SQLite was reset above.
	for _, in := range cfg.Intersections {
		if err := ctrl.Reconcile(ctx, in.ID); err != nil {
			return err
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.New(ctrl, runner, store).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(rpc.LogUnary()))
	rpc.Register(grpcSrv, rpc.NewServer(cfg.Engine))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	log.Println("Adaptive Signal Controller ready.")
	log.Printf("  DB: %s | HTTP: %s | gRPC: %s | intersections: %d", cfg.DBPath, cfg.HTTPAddr, cfg.GRPCAddr, len(cfg.Intersections))
	log.Printf("  beta=%.3f hysteresis=%.2f redis=%t nats=%t", cfg.Engine.Beta, cfg.Engine.Hysteresis, cfg.RedisAddr != "", cfg.NATSURL != "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// #endregion run
