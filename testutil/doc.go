// Package testutil provides deterministic data generators and ground-truth
// helpers for tests and benchmarks.
package testutil
