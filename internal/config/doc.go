// Package config loads the companywise configuration.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones
// overriding earlier ones:
//
//  1. Default values (Default)
//  2. A YAML file: $CW_CONFIG_FILE, ./config.yaml or ./configs/config.yaml
//  3. Environment variables with the CW_ prefix
//
// # Environment Variables
//
// Variables are named after the section and field:
//
//	CW_SERVER_PORT=8080
//	CW_DATA_SOURCE=auto
//	CW_DATA_DIR=./data
//	CW_STORAGE_BACKEND=sqlite
//	CW_STORAGE_STORE_PATH=./progress.db
//	CW_AUTH_JWT_SECRET=change-me-please-0123
//	CW_PROGRESS_TIMEZONE=Asia/Kolkata
//	CW_PROGRESS_MIGRATE_ON_SIGNIN=true
//
// Binaries load a .env file from the working directory before calling Load.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := cfg.ResolvePaths()
package config
