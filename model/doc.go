// Package model defines the capability set a local model supplies to a
// federated session, plus a self-contained reference implementation used by
// the CLI and the examples.
//
// The session engine is generic over Operations: bring your own model by
// implementing the four methods, or wrap any implementation with
// TracedOperations to get one span per invoked operation.
package model
