// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts the guest upload link, the measurement
// annotation UI and photo reprocessing to the service layer.
package api
