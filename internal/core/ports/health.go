package ports

import "context"

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	// Ping returns nil when the dependency answers.
	Ping(ctx context.Context) error
	// Name labels the dependency in the health report.
	Name() string
}
