// Package testsupport provides test utilities for the rebalancer library.
//
// It offers an embedded NATS server with JetStream for integration tests that
// exercise the gateway's CAS semantics against a real versioned KV store.
// A testing.T-backed Logger lives in internal/logger (logger.NewTest).
//
// Example usage:
//
//	import (
//	    "testing"
//	    "github.com/gyokketto/pinot/internal/testsupport"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := testsupport.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testsupport
