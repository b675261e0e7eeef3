package services

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/shared"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// newBreaker guards outgoing requests. Only transport failures and 5xx answers count against it;
// client errors such as 401 or 404 say nothing about provider health.
//
// Opens after five consecutive failures and lets one probe through once timeout has passed.
func newBreaker(name string, timeout time.Duration, logger *log.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, shared.ErrServiceUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
}
