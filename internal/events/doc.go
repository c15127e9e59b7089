// Package events lets the request path ask for background work without
// depending on the job runner.
//
// Upload and reprocess flows emit a JobRequest per photo after their
// transaction commits; the jobs package registers a handler that turns each
// request into a first-attempt job.
package events
