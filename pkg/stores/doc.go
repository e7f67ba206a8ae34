// Package stores persists hostprep run history: runs, per-package
// outcomes, and the status event stream, backed by SQLite with
// embedded schema migrations.
package stores
