// Package daemon runs the long-lived yoinkd process: it enforces
// single-instance execution with a lock file, owns the HTTP server that
// terminates Telegram webhook calls and serves the admin API, supervises
// the workflow manager, and schedules periodic queue and workspace
// maintenance.
package daemon
