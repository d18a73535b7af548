// Package services holds the application logic shared by the HTTP API and
// the CLI.
//
// CatalogService fetches company tables through a datasource.Source and runs
// the problem pipeline. ProgressService keeps one progress.Tracker per
// identity, is the trackers' observer, and pushes every change to that
// identity's websocket subscribers. AuthService signs users in with a mock
// profile. ExportService joins a view with completion state and hands it to
// the exporter. Browser is an interactive session with last-selection-wins
// loading, used by the CLI.
//
// Data-layer failures are classified into errors.AppError values so that
// transports render them consistently:
//
//	datasource.ErrDataUnavailable -> NETWORK  (502, "failed to load")
//	*problems.ParseError          -> PARSING  (502, "failed to load")
//	datasource.ErrInvalidCompany  -> VALIDATION (400)
//	progress store read failure   -> STORAGE (503)
package services
