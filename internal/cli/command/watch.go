package command

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/cli/output"
	"github.com/yndnr/kvopts/internal/infra/shutdown"
	"github.com/yndnr/kvopts/internal/telemetry/metric"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/loader"
)

const shutdownTimeout = 5 * time.Second

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Reload an OPTIONS file whenever it changes",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (host:port)",
			},
		},
		Action: watch,
	}
}

// watchEvent is printed for every successful load.
type watchEvent struct {
	Time           time.Time `json:"time" yaml:"time"`
	Path           string    `json:"path" yaml:"path"`
	FormatVersion  string    `json:"format_version" yaml:"format_version"`
	ColumnFamilies []string  `json:"column_families" yaml:"column_families"`
}

func watch(c *cli.Context) error {
	a, err := args(c, "FILE")
	if err != nil {
		return err
	}
	cfg := configFrom(c)
	log := loggerFrom(c)

	addr := cfg.Metrics.Addr
	if c.IsSet("metrics-addr") {
		addr = c.String("metrics-addr")
	}

	ctx, stop := shutdown.WithSignals(c.Context)
	defer stop()
	h := shutdown.NewHandler(shutdownTimeout)

	reg := metric.NewRegistry()
	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		srv := &http.Server{Handler: reg.Handler(), ReadHeaderTimeout: shutdownTimeout}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		h.OnShutdown(srv.Shutdown)
		log.Info("serving metrics", "addr", ln.Addr().String())
	}

	bc, err := blockCache(cfg.Load.CacheSize)
	if err != nil {
		return err
	}
	defer bc.Release()

	var current *loader.Result
	h.OnShutdown(func(context.Context) error {
		if current != nil {
			current.Close()
		}
		return nil
	})

	ld := loader.New(
		loader.WithLogger(log),
		loader.WithMetrics(reg),
		loader.WithReloadInterval(cfg.Load.ReloadInterval),
	)
	err = ld.Watch(ctx, a[0], env.Default(), cfg.Load.IgnoreUnknownOptions, bc, func(res *loader.Result) {
		if current != nil {
			current.Close()
		}
		current = res
		printWatchEvent(c, watchEvent{
			Time:           time.Now(),
			Path:           a[0],
			FormatVersion:  res.FormatVersion,
			ColumnFamilies: res.Descriptors.Names(),
		})
	})
	return errors.Join(err, h.Shutdown())
}

func printWatchEvent(c *cli.Context, ev watchEvent) {
	var err error
	switch output.Format(configFrom(c).Output) {
	case output.FormatTable:
		output.Success(c.App.Writer, "%s %s: %d column families %v",
			ev.Time.Format(time.TimeOnly), ev.Path, len(ev.ColumnFamilies), ev.ColumnFamilies)
	case output.FormatJSON:
		err = (&output.JSONFormatter{Compact: true}).Format(c.App.Writer, ev)
	default:
		err = render(c, ev)
	}
	if err != nil {
		loggerFrom(c).Warn("write event", "error", err)
	}
}
