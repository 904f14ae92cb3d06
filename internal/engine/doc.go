// Package engine supervises a locally launched grammar engine server.
//
// A Supervisor locates the java runtime and the engine archive, picks a
// candidate port from its own shuffled pool, launches the server and polls
// its health endpoint until it is ready. Launch failures that are specific
// to a port (already bound, exited early, never became ready) move on to the
// next candidate; once the pool is exhausted Start fails with
// ErrServerNotStarted.
//
// Liveness is checked on demand. Callers that see a transport failure call
// Restart with the generation they were using, so concurrent callers
// trigger at most one restart:
//
//	sup, err := engine.New(engine.Config{ServerConfig: cfg})
//	if err != nil {
//	    return err
//	}
//	if err := sup.Start(ctx); err != nil {
//	    return err
//	}
//	defer sup.Stop()
//
//	gen := sup.Generation()
//	if _, err := query(sup.URL()); err != nil {
//	    _ = sup.Restart(ctx, gen)
//	}
package engine
