// Package shutdown ends long-running commands cleanly.
//
// WithSignals turns SIGINT and SIGTERM into context cancellation; a Handler
// then runs the registered cleanup hooks, newest first, under a timeout:
//
//	ctx, stop := shutdown.WithSignals(context.Background())
//	defer stop()
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
