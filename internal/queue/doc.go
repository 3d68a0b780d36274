// Package queue persists media jobs in SQLite and exposes the lifecycle
// operations the workflow manager drives: claiming the next pending job,
// heartbeats for in-flight work, reclaiming stale jobs after a crash, and
// retrying failures as fresh attempts.
package queue
