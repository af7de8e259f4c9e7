package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/cachekit/bootstrap"
	"github.com/kbukum/cachekit/client"
	"github.com/kbukum/cachekit/component"
	"github.com/kbukum/cachekit/errors"
	"github.com/kbukum/cachekit/logger"
	"github.com/kbukum/cachekit/observability"
	"github.com/kbukum/cachekit/validation"
	"github.com/kbukum/cachekit/version"
)

type simulateFlags struct {
	requests    int
	keys        int
	concurrency int
	failureRate float64
	latency     time.Duration
	shutdown    time.Duration
}

var simFlags simulateFlags

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive a client against a simulated flaky upstream",
	Long: `Run a number of lookups over a fixed key space through a configured
client. The upstream fails with the given probability and answers after a
random delay of up to --latency. Prints call outcomes and client stats.`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.IntVarP(&simFlags.requests, "requests", "n", 200, "number of lookups")
	f.IntVarP(&simFlags.keys, "keys", "k", 20, "size of the key space")
	f.IntVar(&simFlags.concurrency, "concurrency", 8, "concurrent callers")
	f.Float64Var(&simFlags.failureRate, "failure-rate", 0.3, "probability that an upstream call fails")
	f.DurationVar(&simFlags.latency, "latency", 5*time.Millisecond, "maximum upstream latency")
	f.DurationVar(&simFlags.shutdown, "shutdown-timeout", 15*time.Second, "time allowed for components to stop (0 keeps the default)")
	rootCmd.AddCommand(simulateCmd)
}

func (f simulateFlags) validate() error {
	return validation.New().
		Min("requests", f.requests, 0).
		Min("keys", f.keys, 1).
		Min("concurrency", f.concurrency, 1).
		Range("failure-rate", f.failureRate, 0, 1).
		NotNegative("latency", f.latency).
		NotNegative("shutdown-timeout", f.shutdown).
		Err()
}

// upstream is a dependency that fails at random.
type upstream struct {
	failureRate float64
	latency     time.Duration
	calls       atomic.Int64
}

func (u *upstream) fetch(ctx context.Context, key string) (string, error) {
	u.calls.Add(1)
	if u.latency > 0 {
		timer := time.NewTimer(rand.N(u.latency))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if rand.Float64() < u.failureRate {
		return "", errors.ConnectionFailed("upstream")
	}
	return "value-of-" + key, nil
}

type simulateReport struct {
	Requests      int              `yaml:"requests"`
	Succeeded     int64            `yaml:"succeeded"`
	Failed        int64            `yaml:"failed"`
	Errors        map[string]int   `yaml:"errors,omitempty"`
	UpstreamCalls int64            `yaml:"upstream_calls"`
	HitRatio      string           `yaml:"hit_ratio"`
	Elapsed       string           `yaml:"elapsed"`
	Client        client.Stats     `yaml:"client"`
	Health        component.Health `yaml:"health"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if err := simFlags.validate(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var appOpts []bootstrap.Option
	if simFlags.shutdown > 0 {
		appOpts = append(appOpts, bootstrap.WithGracefulTimeout(simFlags.shutdown))
	}
	app, err := bootstrap.NewApp(&cfg, appOpts...)
	if err != nil {
		return err
	}
	log := logger.WithComponent("simulate")

	if err := app.RegisterComponent(telemetry(cfg)); err != nil {
		return err
	}
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return err
	}
	c, err := client.New[string, string](cfg, client.WithMetrics(metrics))
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(c); err != nil {
		return err
	}

	var report simulateReport
	err = app.RunTask(cmd.Context(), func(ctx context.Context) error {
		report = simulate(ctx, c, log)
		return nil
	})
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(report)
}

// telemetry starts the OpenTelemetry exporters with the app and flushes them
// on shutdown.
func telemetry(cfg client.Config) component.Component {
	var shutdown observability.Shutdown
	return &component.Func{
		ComponentName: "telemetry",
		StartFn: func(ctx context.Context) error {
			var err error
			shutdown, err = observability.Setup(ctx, cfg.Observability, cfg.Name, version.GetShortVersion(), cfg.Environment)
			return err
		},
		StopFn: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	}
}

func simulate(ctx context.Context, c *client.Client[string, string], log *logger.Logger) simulateReport {
	up := &upstream{failureRate: simFlags.failureRate, latency: simFlags.latency}
	report := simulateReport{Requests: simFlags.requests, Errors: make(map[string]int)}
	var mu sync.Mutex
	var succeeded, failed atomic.Int64

	log.Info("simulation starting", logger.Fields(
		"requests", simFlags.requests,
		"keys", simFlags.keys,
		"failure_rate", simFlags.failureRate,
	))

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(simFlags.concurrency)
	for i := 0; i < simFlags.requests && ctx.Err() == nil; i++ {
		key := fmt.Sprintf("user-%d", rand.IntN(simFlags.keys))
		g.Go(func() error {
			_, err := c.Get(ctx, key, func(ctx context.Context) (string, error) {
				return up.fetch(ctx, key)
			})
			if err == nil {
				succeeded.Add(1)
				return nil
			}
			failed.Add(1)
			code := "OTHER"
			if appErr, ok := errors.AsAppError(err); ok {
				code = string(appErr.Code)
			}
			mu.Lock()
			report.Errors[code]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats := c.Stats()
	report.Succeeded = succeeded.Load()
	report.Failed = failed.Load()
	report.UpstreamCalls = up.calls.Load()
	report.HitRatio = fmt.Sprintf("%.2f", stats.Cache.HitRatio())
	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	report.Client = stats
	report.Health = c.Health(ctx)
	return report
}
