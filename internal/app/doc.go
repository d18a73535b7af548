// Package app wires configuration, storage, data sources, services and the
// HTTP router into a runnable Application.
//
// # Initialization Flow
//
//  1. Load configuration (defaults, config.yaml, CW_* environment)
//  2. Initialize logging and OpenTelemetry
//  3. Open the progress store and assemble the data source
//  4. Create the token issuer, realtime hub and services
//  5. Build the chi router and the HTTP server
//
// # Usage
//
//	a, err := app.NewApplication(ctx)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// Command-line tools that never serve HTTP use New and Close directly and
// reach the services through Application.Services.
//
// The package never calls os.Exit; initialization errors are returned to
// the caller.
package app
