package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Pinger is anything that can report whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type Readiness struct {
	Ready  bool          `json:"ready"`
	Checks []CheckResult `json:"checks"`
}

type HealthService struct {
	checks map[string]Pinger
	order  []string
	now    func() time.Time
	log    *zap.SugaredLogger
}

func NewHealthService(log *zap.SugaredLogger) *HealthService {
	return &HealthService{
		checks: make(map[string]Pinger),
		now:    time.Now,
		log:    log,
	}
}

// AddCheck registers a dependency for the readiness check. Not safe for use
// after the server has started.
func (h *HealthService) AddCheck(name string, p Pinger) {
	if _, ok := h.checks[name]; !ok {
		h.order = append(h.order, name)
	}
	h.checks[name] = p
}

func (h *HealthService) Live() time.Time {
	return h.now().UTC()
}

func (h *HealthService) Ready(ctx context.Context) Readiness {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	res := Readiness{Ready: true, Checks: make([]CheckResult, 0, len(h.order))}
	for _, name := range h.order {
		check := CheckResult{Name: name, Status: "ok"}
		if err := h.checks[name].Ping(ctx); err != nil {
			check.Status = "unavailable"
			h.log.Warnw("readiness check failed", "check", name, "error", err)
			res.Ready = false
		}
		res.Checks = append(res.Checks, check)
	}
	return res
}
