// Package exporter writes a problem view to CSV or XLSX.
//
// A Table is built from a filtered view plus a completion lookup; Write
// dispatches on Format. CSVWriter and the XLSX writer both stream to an
// io.Writer so HTTP handlers can write the response body directly, and
// CSVWriter.WriteFile writes into the configured exports directory for the CLI.
package exporter
