package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	planapi "github.com/kilianp07/prodplan/api/plan"
	"github.com/kilianp07/prodplan/config"
	coremetrics "github.com/kilianp07/prodplan/core/metrics"
	coremon "github.com/kilianp07/prodplan/core/monitoring"
	"github.com/kilianp07/prodplan/core/planner"
	"github.com/kilianp07/prodplan/core/runlog"
	"github.com/kilianp07/prodplan/core/shipment"
	"github.com/kilianp07/prodplan/infra/logger"
	_ "github.com/kilianp07/prodplan/infra/metrics" // registers the built-in run sinks
	"github.com/kilianp07/prodplan/infra/milp"
	"github.com/kilianp07/prodplan/infra/monitoring"
	"github.com/kilianp07/prodplan/infra/mqtt"
	"github.com/kilianp07/prodplan/internal/eventbus"
)

const flushTimeout = 2 * time.Second

// Service wires the planner to its history, metric sinks, error monitor and
// event publisher.
type Service struct {
	Planner *planner.Planner
	Runner  *planner.Runner
	History runlog.Store

	cfg       *config.Config
	sink      coremetrics.RunSink
	publisher *mqtt.Publisher
	log       logger.Logger

	cancel    context.CancelFunc
	forwarder sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := NewLogger(cfg.Logging, "service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	history, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}
	sink, err := coremetrics.NewRunSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = history.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	solver := milp.New(cfg.Solver, NewLogger(cfg.Logging, "milp"))
	p := planner.New(shipment.NewScheduler(solver, NewLogger(cfg.Logging, "scheduler")), NewLogger(cfg.Logging, "planner"))
	p.SetMonitor(mon)
	p.SetSink(sink, cfg.Metrics.RecordDays)
	p.SetHistory(history)

	bus := eventbus.NewTyped[planner.Event]()
	runner := planner.NewRunner(p, bus)
	runner.SetRetention(cfg.HTTP.RetainedRuns)
	svc := &Service{
		Planner: p,
		Runner:  runner,
		History: history,
		cfg:     cfg,
		sink:    sink,
		log:     logg,
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(cfg.MQTT, NewLogger(cfg.Logging, "mqtt"))
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
		ctx, cancel := context.WithCancel(context.Background())
		svc.cancel = cancel
		events := svc.Runner.Subscribe()
		svc.forwarder.Add(1)
		go func() {
			defer svc.forwarder.Done()
			pub.Forward(ctx, events)
		}()
	}
	return svc, nil
}

// NewLogger returns a zerolog backed logger honouring the configured level
// and format.
func NewLogger(cfg config.LoggingConfig, component string) logger.Logger {
	var out io.Writer = os.Stdout
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return logger.NewWithWriter(out, component, strings.ToLower(cfg.Level))
}

// Plan runs req to completion through the runner so that its lifecycle
// events reach the publisher.
func (s *Service) Plan(ctx context.Context, req planner.Request) (*planner.Result, error) {
	return s.Runner.Run(ctx, req)
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	planapi.NewHandler(s.Runner, s.History, s.cfg.Plan, s.cfg.HTTP.Token, NewLogger(s.cfg.Logging, "api")).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run serves the HTTP API and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.HTTP.Address,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.HTTP.WriteTimeoutSeconds) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.HTTP.Address)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close waits for the running plans then releases every resource.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.Runner.Close()
		s.forwarder.Wait()
		if s.cancel != nil {
			s.cancel()
		}
		if s.publisher != nil {
			s.publisher.Disconnect()
		}
		closeSink(s.sink)
		if err := s.History.Close(); err != nil {
			errs = append(errs, fmt.Errorf("run history: %w", err))
		}
		coremon.Flush(flushTimeout)
	})
	return errors.Join(errs...)
}

func closeSink(s coremetrics.RunSink) {
	switch c := s.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range c.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		c.Close()
	}
}
