// This file contains the CapabilityChecker, which does what it advertises on the
// packet. Each check runs its probe with a bounded timeout and the results are
// collected into availability records.

package capability

import (
	"context"
	"time"

	"github.com/frankk00/gaetools/internal/log"
)

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 5 * time.Second

// Check is a named availability probe. The probe returns nil when the service is
// usable.
type Check struct {
	Title string
	Probe func(ctx context.Context) error
}

// Availability is the result of running one check.
type Availability struct {
	Title     string        `json:"title"`
	Available bool          `json:"available"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

type Checker struct {
	checks  []Check
	timeout time.Duration
	logger  *log.Logger
}

func NewChecker(logger *log.Logger) *Checker {
	return &Checker{
		timeout: DefaultProbeTimeout,
		logger:  logger,
	}
}

// Add registers a check. Checks without a title or probe are ignored with a
// warning rather than failing the whole set.
func (c *Checker) Add(title string, probe func(ctx context.Context) error) {
	if title == "" || probe == nil {
		c.logger.Warnf("invalid capability check defined: title=%q", title)
		return
	}
	c.checks = append(c.checks, Check{Title: title, Probe: probe})
}

// Run executes all registered checks and returns their availability.
func (c *Checker) Run(ctx context.Context) []Availability {
	results := make([]Availability, 0, len(c.checks))

	for _, check := range c.checks {
		c.logger.Debugf("running the %s check", check.Title)

		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		started := time.Now()
		err := check.Probe(probeCtx)
		cancel()

		result := Availability{
			Title:     check.Title,
			Available: err == nil,
			Latency:   time.Since(started),
			CheckedAt: started.UTC(),
		}
		if err != nil {
			result.Error = err.Error()
			c.logger.Warnf("capability check %s failed: %v", check.Title, err)
		}

		results = append(results, result)
	}

	return results
}
