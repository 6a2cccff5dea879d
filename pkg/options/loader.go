package options

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/source"
)

// Status is the load state of one option-backed field.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// State is a snapshot of a field's option load.
type State struct {
	Status   Status
	Set      Set
	Attempts int
	// Terminal is true once no further retry will happen.
	Terminal bool
	Err      error
	Message  string
}

// RetryPolicy bounds retries of transient failures. Delay is fixed between
// attempts.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy retries twice, half a second apart.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, Delay: 500 * time.Millisecond}

// Fetcher loads one complete option set.
type Fetcher func(ctx context.Context) (Set, error)

// Loader drives the Idle -> Loading -> Ready|Failed machine for one field.
type Loader struct {
	Name    string
	Fetch   Fetcher
	Policy  RetryPolicy
	Logger  *logrus.Entry
	OnState func(State)

	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Load runs attempts until success, a terminal failure or an exhausted retry
// budget, reporting every transition to OnState. The returned State is the
// final one.
func (l *Loader) Load(ctx context.Context) State {
	sleep := l.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	logger := l.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithField("field", l.Name)

	attempts := 0
	for {
		attempts++
		l.emit(State{Status: StatusLoading, Attempts: attempts})

		set, err := l.Fetch(ctx)
		if err == nil {
			final := State{Status: StatusReady, Set: set, Attempts: attempts, Terminal: true}
			l.emit(final)
			return final
		}

		retry := source.IsTransient(err) && attempts <= l.Policy.MaxRetries && ctx.Err() == nil
		state := State{
			Status:   StatusFailed,
			Attempts: attempts,
			Terminal: !retry,
			Err:      err,
			Message:  FailureMessage(err),
		}
		l.emit(state)

		entry := logger.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempts,
			"category": source.KindOf(err),
		})
		if !retry {
			entry.Warn("options: load failed")
			return state
		}
		entry.Info("options: transient load failure, retrying")

		if err := sleep(ctx, l.Policy.Delay); err != nil {
			state.Terminal = true
			state.Err = err
			l.emit(state)
			return state
		}
	}
}

func (l *Loader) emit(s State) {
	if l.OnState != nil {
		l.OnState(s)
	}
}

// FailureMessage returns the user-visible text for a failed option load.
func FailureMessage(err error) string {
	switch source.KindOf(err) {
	case source.KindUnauthorized:
		return "Your session has expired. Please sign in again."
	case source.KindNetwork:
		return "Could not load options. Check your connection and try again."
	default:
		return "Could not load options."
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
