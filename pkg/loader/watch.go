package loader

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/yndnr/kvopts/internal/infra/confloader"
	"github.com/yndnr/kvopts/internal/telemetry/metric"
	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/env"
)

// Watch loads the file at path, hands the result to fn, and repeats every
// time the file changes until ctx is done.
//
// Changes arriving while a reload is pending are coalesced, and reloads are
// spaced at least the loader's reload interval apart. fn owns every Result it
// receives. A failed reload is logged and the previous result stays in use;
// only a failure of the first load is returned.
func (l *Loader) Watch(ctx context.Context, path string, e env.Env, ignoreUnknown bool, c cache.Handle, fn func(*Result)) error {
	first, err := l.Load(ctx, path, e, ignoreUnknown, c)
	if err != nil {
		return err
	}
	fn(first)

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(l.logger))
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Watch(path); err != nil {
		return err
	}

	pending := make(chan struct{}, 1)
	w.OnChange(func(string) {
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	w.StartAsync()

	limiter := rate.NewLimiter(rate.Every(l.reloadInterval), 1)
	log := l.logger.With("path", path)
	log.Info("watching options file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pending:
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		res, err := l.Load(ctx, path, e, ignoreUnknown, c)
		if err != nil {
			log.Error("options reload failed, keeping previous options", "error", err)
			l.recordReload(resultOf(err))
			continue
		}
		l.recordReload(metric.ResultOK)
		log.Info("options reloaded", "column_families", res.Descriptors.Len())
		fn(res)
	}
}

func (l *Loader) recordReload(result string) {
	if l.metrics != nil {
		l.metrics.RecordReload(result)
	}
}
