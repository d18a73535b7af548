// Package errors maps failures to RFC 7807 problem responses.
//
// Handlers return one of three kinds of error:
//
//   - *APIError when the handler has already decided status and code
//   - *AppError when a service classified the failure (network, parsing,
//     storage, validation, not found, config)
//   - anything else, which becomes a generic 500
//
// ErrorHandler.HandleError logs the failure and renders the matching
// ProblemDetails, adding the request id as trace_id.
package errors
