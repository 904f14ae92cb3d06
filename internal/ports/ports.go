package ports

import (
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
)

// Default candidate range for locally launched engines.
const (
	// DefaultMinPort is the first candidate port (inclusive).
	DefaultMinPort = 8081

	// DefaultMaxPort is the upper bound of the candidate range (exclusive).
	DefaultMaxPort = 8999
)

// Pool hands out candidate TCP ports from a range that was shuffled once
// when the pool was created.
//
// Every pool owns its own random source, so two clients created in the same
// process walk the range in different orders and do not race for the same
// first port.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Pool struct {
	mu         sync.Mutex
	candidates []int
	next       int
}

// NewPool creates a shuffled pool covering [minPort, maxPort).
// A non-positive range yields an empty (already exhausted) pool.
func NewPool(minPort, maxPort int) *Pool {
	if minPort <= 0 || maxPort <= minPort {
		return &Pool{}
	}

	candidates := make([]int, 0, maxPort-minPort)
	for p := minPort; p < maxPort; p++ {
		candidates = append(candidates, p)
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	return &Pool{candidates: candidates}
}

// NewDefaultPool creates a pool over DefaultMinPort..DefaultMaxPort.
func NewDefaultPool() *Pool {
	return NewPool(DefaultMinPort, DefaultMaxPort)
}

// Reserve returns the next unused candidate port.
// The second return value is false once the pool is exhausted.
func (p *Pool) Reserve() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.next >= len(p.candidates) {
		return 0, false
	}
	port := p.candidates[p.next]
	p.next++
	return port, true
}

// Exhausted reports whether every candidate has been handed out.
func (p *Pool) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next >= len(p.candidates)
}

// Remaining returns how many candidates have not been handed out yet.
func (p *Pool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.candidates) - p.next
}

// IsAvailable checks if a port is available for binding on host.
// Returns true if the port is available, false otherwise.
func IsAvailable(host string, port int) bool {
	return Check(host, port) == nil
}

// Check checks if a port is available on host and returns the bind error if not.
func Check(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return err
	}
	_ = ln.Close()
	return nil
}
