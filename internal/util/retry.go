package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	InitialWait time.Duration // Initial wait duration (doubled each retry)
	MaxWait     time.Duration // Upper bound for the wait between attempts
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
	}
}

// ConnectRetryConfig returns the retry config used while bootstrapping a
// cluster session. A freshly started node can take several seconds before it
// accepts native protocol connections.
func ConnectRetryConfig(attempts int) *RetryConfig {
	if attempts <= 0 {
		attempts = 1
	}
	return &RetryConfig{
		MaxAttempts: attempts,
		InitialWait: time.Second,
		MaxWait:     10 * time.Second,
	}
}

// IsRetryableError checks if an error is worth retrying.
// Only transient network conditions qualify; statement errors never do.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN,
			syscall.ETIMEDOUT,
			syscall.ECONNRESET,
			syscall.ECONNABORTED,
			syscall.ECONNREFUSED,
			syscall.ENETDOWN,
			syscall.ENETUNREACH,
			syscall.EHOSTDOWN,
			syscall.EHOSTUNREACH:
			return true
		}
	}

	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"timed out",
		"connection reset",
		"connection refused",
		"no route to host",
		"network is unreachable",
		"no connections were made",
		"no hosts available",
		"unable to discover protocol version",
		"temporary failure",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// RetryWithBackoff executes operation with exponential backoff.
// Returns the result of the operation or the final error after all attempts.
func RetryWithBackoff[T any](ctx context.Context, cfg *RetryConfig, operation func() (T, error), operationName string) (T, error) {
	var result T
	var err error

	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	waitDuration := cfg.InitialWait

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			if attempt > 1 {
				DebugLog("Retry: %s succeeded on attempt %d/%d", operationName, attempt, cfg.MaxAttempts)
			}
			return result, nil
		}

		if !IsRetryableError(err) {
			DebugLog("Retry: %s failed with non-retryable error: %v", operationName, err)
			return result, err
		}

		if attempt == cfg.MaxAttempts {
			if cfg.MaxAttempts > 1 {
				WarnLog("Retry: %s failed after %d attempts: %v", operationName, cfg.MaxAttempts, err)
				return result, fmt.Errorf("max retries exceeded (%d attempts): %w", cfg.MaxAttempts, err)
			}
			return result, err
		}

		WarnLog("Retry: %s failed (attempt %d/%d), retrying in %v: %v",
			operationName, attempt, cfg.MaxAttempts, waitDuration, err)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(waitDuration):
		}

		waitDuration *= 2
		if waitDuration > cfg.MaxWait {
			waitDuration = cfg.MaxWait
		}
	}

	return result, fmt.Errorf("unexpected retry loop exit: %w", err)
}
