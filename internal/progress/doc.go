// Package progress tracks which problems an identity has completed, the
// days it practiced on and its daily visit streak.
//
// The transitions (EvaluateStreak, ToggleCompletion, Merge) are pure
// functions over State. Tracker wraps them with single-writer locking and
// persists the full state to a storage.Store after every change, keyed by
// identity. Unreadable or missing blobs load as the empty state.
package progress
