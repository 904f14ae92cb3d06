package enginetest

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

// Environment variables controlling the helper process.
const (
	// EnvMode selects the helper behaviour. When unset RunIfHelper returns.
	EnvMode = "LANGCHECK_FAKE_ENGINE"

	// EnvArgsFile, if set, receives a JSON Invocation describing the launch.
	EnvArgsFile = "LANGCHECK_FAKE_ENGINE_ARGS"
)

// Helper modes.
const (
	// ModeServe serves the fake engine on the -p port.
	ModeServe = "serve"

	// ModeIgnoreTerm serves but ignores SIGTERM.
	ModeIgnoreTerm = "ignore-term"

	// ModeHang never listens.
	ModeHang = "hang"

	// ModeExitPrefix ("exit:N") exits immediately with code N.
	ModeExitPrefix = "exit:"

	// ModeCrashAfterPrefix ("crash-after:N") serves N checks, then exits
	// abruptly while handling the next one.
	ModeCrashAfterPrefix = "crash-after:"
)

// Invocation is what a helper records about how it was launched.
type Invocation struct {
	Args   []string `json:"args"`
	Port   int      `json:"port"`
	Config string   `json:"config,omitempty"`
}

// Env returns the environment entries that make a re-executed test binary
// act as the engine in the given mode.
func Env(mode string) []string {
	return []string{EnvMode + "=" + mode}
}

// RunIfHelper turns the current process into a fake engine server when
// EnvMode is set, and never returns in that case. Call it first thing in
// TestMain so the test binary can stand in for the java runtime:
//
//	func TestMain(m *testing.M) {
//	    enginetest.RunIfHelper()
//	    os.Exit(m.Run())
//	}
func RunIfHelper() {
	mode := os.Getenv(EnvMode)
	if mode == "" {
		return
	}
	os.Exit(runHelper(mode, os.Args[1:]))
}

func runHelper(mode string, args []string) int {
	inv := parseArgs(args)
	if path := os.Getenv(EnvArgsFile); path != "" {
		if data, err := json.Marshal(inv); err == nil {
			_ = os.WriteFile(path, data, 0o600)
		}
	}

	switch {
	case strings.HasPrefix(mode, ModeExitPrefix):
		code, err := strconv.Atoi(strings.TrimPrefix(mode, ModeExitPrefix))
		if err != nil {
			return 2
		}
		return code
	case mode == ModeHang:
		for {
			time.Sleep(time.Hour)
		}
	}

	if inv.Port == 0 {
		fmt.Fprintln(os.Stderr, "fake engine: missing -p <port>")
		return 2
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(inv.Port)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fake engine: %v\n", err)
		return 1
	}

	if mode == ModeIgnoreTerm {
		signal.Ignore(syscall.SIGTERM)
	}

	engine := New()
	var handler http.Handler = engine
	if strings.HasPrefix(mode, ModeCrashAfterPrefix) {
		limit, err := strconv.Atoi(strings.TrimPrefix(mode, ModeCrashAfterPrefix))
		if err != nil {
			return 2
		}
		handler = crashAfter(engine, int64(limit))
	}

	fmt.Printf("Server started on port %d\n", inv.Port)
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.Serve(ln); err != nil {
		fmt.Fprintf(os.Stderr, "fake engine: %v\n", err)
		return 1
	}
	return 0
}

// crashAfter exits the process when more than limit checks arrive.
func crashAfter(next http.Handler, limit int64) http.Handler {
	var served atomic.Int64
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/check" && served.Add(1) > limit {
			os.Exit(3)
		}
		next.ServeHTTP(w, r)
	})
}

func parseArgs(args []string) Invocation {
	inv := Invocation{Args: args}
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-p", "--port":
			inv.Port, _ = strconv.Atoi(args[i+1])
		case "--config":
			if data, err := os.ReadFile(args[i+1]); err == nil {
				inv.Config = string(data)
			}
		}
	}
	return inv
}
