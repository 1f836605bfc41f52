// Package verify confirms deployed contract source with a block explorer,
// retrying transient failures with a linear backoff.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/reward-bridge/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

var (
	// ErrAttemptsExhausted is returned when every attempt failed with a retryable error.
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")

	// ErrVerificationFailed is returned when the explorer rejected the request.
	ErrVerificationFailed = errors.New("verification failed")
)

// FailureError is a verification failure reported by the explorer itself.
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string { return e.Message }

// Request identifies the deployed contract and the source it was built from.
type Request struct {
	Address         common.Address
	ConstructorArgs []any
	// Source is the fully qualified contract name, e.g. "src/RewardToken.sol:RewardToken".
	Source string
}

// Service submits one verification request and reports the explorer's verdict.
// A nil error means the source was verified.
type Service interface {
	Verify(ctx context.Context, req Request) error
}

type Outcome int

const (
	Pending Outcome = iota
	Success
	AlreadyVerified
	RetryableFailure
	FatalFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AlreadyVerified:
		return "already_verified"
	case RetryableFailure:
		return "retryable_failure"
	case FatalFailure:
		return "fatal_failure"
	default:
		return "pending"
	}
}

// Attempt is one call to the verification service. Wait is the backoff taken
// after it; it is zero for terminal attempts.
type Attempt struct {
	Number  int
	Outcome Outcome
	Wait    time.Duration
	Err     error
}

// Result is the terminal state of a verification run with its attempt history.
type Result struct {
	Outcome  Outcome
	Attempts []Attempt
}

// Verified reports whether the contract source is confirmed on the explorer.
func (r Result) Verified() bool {
	return r.Outcome == Success || r.Outcome == AlreadyVerified
}

// Config tunes a Verifier. A zero MaxAttempts or BaseDelay takes
// DefaultMaxAttempts or DefaultBaseDelay.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logf        func(format string, a ...any)
}

// Verifier drives a Service through retries with linear backoff.
type Verifier struct {
	svc   Service
	cfg   Config
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Verifier. Zero config values take the package defaults.
func New(svc Service, cfg Config) *Verifier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	return &Verifier{svc: svc, cfg: cfg, sleep: sleepCtx}
}

func (v *Verifier) logf(format string, a ...any) {
	if v.cfg.Logf != nil {
		v.cfg.Logf(format, a...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Verify runs attempts until the explorer confirms the source, rejects it, or
// MaxAttempts retryable failures have been seen. After retryable attempt n it
// waits n*BaseDelay. The Result is returned on every path, including errors.
func (v *Verifier) Verify(ctx context.Context, req Request) (Result, error) {
	var res Result
	m := metrics.Verify()
	finish := func(o Outcome, err error) (Result, error) {
		res.Outcome = o
		m.ObserveRun(o.String())
		return res, err
	}

	for n := 1; n <= v.cfg.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return finish(FatalFailure, err)
		}
		v.logf("verification attempt %d/%d for %s", n, v.cfg.MaxAttempts, req.Address.Hex())

		err := v.svc.Verify(ctx, req)
		if err == nil {
			res.Attempts = append(res.Attempts, Attempt{Number: n, Outcome: Success})
			m.ObserveAttempt(Success.String())
			v.logf("contract %s verified", req.Address.Hex())
			return finish(Success, nil)
		}

		switch Classify(err.Error()) {
		case ClassAlreadyVerified:
			res.Attempts = append(res.Attempts, Attempt{Number: n, Outcome: AlreadyVerified, Err: err})
			m.ObserveAttempt(AlreadyVerified.String())
			v.logf("contract %s is already verified", req.Address.Hex())
			return finish(AlreadyVerified, nil)

		case ClassRetryable:
			if n == v.cfg.MaxAttempts {
				res.Attempts = append(res.Attempts, Attempt{Number: n, Outcome: FatalFailure, Err: err})
				m.ObserveAttempt(FatalFailure.String())
				v.logf("attempt %d failed: %v; no attempts left", n, err)
				return finish(FatalFailure, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, n, err))
			}
			wait := time.Duration(n) * v.cfg.BaseDelay
			res.Attempts = append(res.Attempts, Attempt{Number: n, Outcome: RetryableFailure, Wait: wait, Err: err})
			m.ObserveAttempt(RetryableFailure.String())
			v.logf("attempt %d failed: %v; retrying in %s", n, err, wait)
			if serr := v.sleep(ctx, wait); serr != nil {
				return finish(FatalFailure, serr)
			}

		default:
			res.Attempts = append(res.Attempts, Attempt{Number: n, Outcome: FatalFailure, Err: err})
			m.ObserveAttempt(FatalFailure.String())
			v.logf("verification failed: %v", err)
			return finish(FatalFailure, fmt.Errorf("%w: %w", ErrVerificationFailed, err))
		}
	}
	// Unreachable with MaxAttempts >= 1.
	return finish(FatalFailure, ErrAttemptsExhausted)
}
