package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/Swind/go-job-scheduler/asynclog"
	"github.com/Swind/go-job-scheduler/config"
	"github.com/Swind/go-job-scheduler/core"
	"github.com/Swind/go-job-scheduler/engine"
	promexporter "github.com/Swind/go-job-scheduler/observability/prometheus"
	"github.com/Swind/go-job-scheduler/observability/tracing"
)

const (
	snapshotInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// run wires the scheduler, async logger and engine, then drives the engine
// until ctx is done or the configured number of ticks ran. Async log lines go
// to out.
func run(ctx context.Context, cfg *config.Configuration, out io.Writer) error {
	zl, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := core.NewZapLogger(zl)
	logger.Info("starting", core.F("config", cfg.DebugMap()))

	descriptors, err := engine.PoolDescriptorFromThreads(cfg.Threads)
	if err != nil {
		return err
	}

	tp, err := newTracerProvider(cfg.TraceStdout)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer provider shutdown failed", core.F("error", err.Error()))
		}
	}()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exporter, err := promexporter.NewMetricsExporter("jobscheduler", reg, promexporter.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("metrics exporter: %w", err)
	}
	poller, err := promexporter.NewSnapshotPoller(reg, snapshotInterval)
	if err != nil {
		return fmt.Errorf("snapshot poller: %w", err)
	}

	scheduler := core.NewSchedulerWithConfig(descriptors, &core.SchedulerConfig{
		Name:            cfg.SchedulerName,
		Logger:          logger.Named("scheduler"),
		Metrics:         exporter,
		Interceptors:    []core.Interceptor{tracing.Interceptor()},
		HistoryCapacity: cfg.HistoryCapacity,
	})
	defer scheduler.Close()

	poller.AddScheduler(scheduler.ID(), scheduler)
	poller.Start(ctx)
	defer poller.Stop()

	logServer, logClient := asynclog.New(cfg.LogBufferSize, zapcore.AddSync(out))
	logDone := scheduler.PostTaskNamed(engine.Logger, "asynclog", logServer.Work)
	defer func() {
		logClient.Close()
		_, _ = logDone.Wait()
		if err := logServer.Err(); err != nil {
			logger.Warn("async log write failed", core.F("error", err.Error()))
		}
	}()

	scene := engine.NewScene()
	populateScene(scene, cfg.GameObjects)
	eng := engine.New(scheduler, logClient, scene, logger.Named("engine"))

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopRun := context.WithCancel(gctx)
	defer stopRun()

	g.Go(func() error {
		defer stopRun()
		err := eng.Run(runCtx, cfg.TickInterval, cfg.Ticks)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: shutdownTimeout,
		}

		g.Go(func() error {
			logger.Info("serving metrics", core.F("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("stopped",
		core.F("ticks", eng.Ticks()),
		core.F("failed_jobs", eng.FailedJobs()),
		core.F("stats", scheduler.Stats()))
	return err
}

// newLogger builds the process logger for the configured level and encoding.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = format
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zcfg.Build()
}

// newTracerProvider returns an SDK provider that prints spans to stderr when
// enabled and records nothing otherwise.
func newTracerProvider(stdout bool) (*sdktrace.TracerProvider, error) {
	if !stdout {
		return sdktrace.NewTracerProvider(), nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
}

// populateScene adds n spinning game objects. Each reports its angle on the
// first tick and every 60th tick after.
func populateScene(scene *engine.Scene, n int) {
	for i := range n {
		obj := scene.AddGameObject(fmt.Sprintf("object-%d", i))
		speed := 0.5 * float64(i+1)
		var angle float64
		obj.SetLogic(func(ctx *engine.Context, obj *engine.GameObject) {
			angle = math.Mod(angle+speed*ctx.Delta.Seconds(), 2*math.Pi)
			if ctx.Tick == 1 || ctx.Tick%60 == 0 {
				ctx.Log(asynclog.Info, fmt.Sprintf("%s tick=%d angle=%.3f", obj.Name(), ctx.Tick, angle))
			}
		})
	}
}
