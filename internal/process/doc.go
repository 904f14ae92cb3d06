// Package process manages a single child process and its descendants.
//
// It is used to run the grammar engine server. A Manager launches the
// process once in its own process group, optionally drains its output into
// the logger, and tears the whole tree down on Stop.
//
// Features:
//   - On-demand liveness check (Alive) and exit code reporting
//   - Ordered teardown: stop output drain, SIGTERM tree, SIGKILL on timeout
//   - Descendant discovery so grandchildren outside the group are killed too
//   - Registry of live processes for kill-at-exit
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:            "engine",
//	    Binary:          "/usr/bin/java",
//	    Args:            []string{"-cp", jar, "org.languagetool.server.HTTPServer", "-p", "8081"},
//	    GracefulTimeout: 5 * time.Second,
//	    Registry:        process.DefaultRegistry(),
//	})
//
//	if err := mgr.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
package process
