// Package shared holds code used across packages that belongs to no single
// domain. The testutil subpackage provides a capturing slog handler and
// problem table fixtures for tests.
package shared
