// Package http implements the JSON API handlers.
//
// Handlers stay thin: they parse and validate query or body input with
// go-playground/validator, resolve the caller from the identity middleware,
// call a service, and render either the success envelope
//
//	{"status": "success", "data": ..., "count": n}
//
// or an RFC 7807 problem through errors.ErrorHandler. Each handler exposes a
// Routes method returning a chi.Router that the application mounts.
package http
