// Package jobs provides the in-process background job runner: a bounded queue
// drained by worker goroutines, a registry rebuilding jobs from serialized
// envelopes, and the delay scheduler contract used for retries.
package jobs
