package daemon

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/version"
)

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// PerformHealthChecks executes all health checks. The daemon is unhealthy
// when it is not running or its store is unreachable, and degraded while any
// project keeps failing to evaluate.
func (d *Daemon) PerformHealthChecks(ctx context.Context) *HealthResponse {
	checks := []HealthCheck{
		d.checkDaemonHealth(),
		d.checkStoreHealth(ctx),
		d.checkProjectsHealth(),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		switch {
		case c.Status == HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case c.Status == HealthStatusDegraded && overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	return &HealthResponse{
		Status:    overall,
		Timestamp: d.clock(),
		Uptime:    d.clock().Sub(d.GetStartTime()).Truncate(time.Second).String(),
		Version:   version.Version,
		Checks:    checks,
	}
}

func (d *Daemon) checkDaemonHealth() HealthCheck {
	check := HealthCheck{Name: "daemon_status"}
	switch status := d.GetStatus(); status {
	case StatusRunning:
		check.Status = HealthStatusHealthy
		check.Message = "Daemon is running normally"
	case StatusStarting:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is still starting up"
	default:
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("Daemon is %s", status)
	}
	return check
}

func (d *Daemon) checkStoreHealth(ctx context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{Name: "eventstore", Status: HealthStatusHealthy}
	if _, err := d.store.Latest(ctx); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = err.Error()
	}
	check.Duration = time.Since(start)
	return check
}

func (d *Daemon) checkProjectsHealth() HealthCheck {
	check := HealthCheck{Name: "projects", Status: HealthStatusHealthy}
	var failing []string
	for _, st := range d.projection.Snapshot() {
		if st.ConsecutiveErrors > 0 {
			failing = append(failing, st.Project)
		}
	}
	if len(failing) > 0 {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("Evaluations failing for %v", failing)
	}
	return check
}
