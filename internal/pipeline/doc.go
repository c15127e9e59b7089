// Package pipeline processes uploaded photos asynchronously: it sends each
// photo to the vision service, stores the detected scale and the suggested
// measurements, and drives the photo through its processing states with a
// bounded number of retries.
//
// A photo moves uploaded → dispatched → succeeded, or through
// failed_retryable back to dispatched, until the attempt limit turns the
// failure into failed_terminal. Every transition is persisted before the
// next external call is made, so a crash never loses the state a photo was in.
package pipeline
