package stage

import (
	"context"

	"yoink/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}

// Health is a stage's readiness report. Detail explains an unready stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a stage as ready.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage as not ready with an explanation.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
