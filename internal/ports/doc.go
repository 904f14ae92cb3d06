// Package ports allocates candidate TCP ports for locally launched engines.
//
// A Pool is a per-client, pre-shuffled list of ports in a fixed range.
// The engine supervisor reserves one candidate at a time and moves on to
// the next when a launch on the current one fails; once the pool is
// exhausted the launch is abandoned for good.
//
//	pool := ports.NewDefaultPool() // 8081..8998
//	for {
//	    port, ok := pool.Reserve()
//	    if !ok {
//	        break
//	    }
//	    // try to launch on port
//	}
package ports
