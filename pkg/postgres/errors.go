package postgres

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAcquireTimeout means no connection became available within the
	// configured acquire timeout. The pool is saturated, not broken;
	// callers may retry with backoff.
	ErrAcquireTimeout = errors.New("timed out waiting for a database connection")

	// ErrUnavailable means an operation kept hitting transient failures
	// after exhausting its retry budget.
	ErrUnavailable = errors.New("database unavailable")
)

// Failure classifies a database error for the retry policy.
type Failure int

const (
	// FailureNone means the error is nil.
	FailureNone Failure = iota

	// FailureRetryable marks transient faults where a fresh connection
	// has a real chance of succeeding: network resets, serialization
	// conflicts, deadlocks, a backend shut down by the administrator.
	FailureRetryable

	// FailureFatal marks faults a retry cannot fix: bad credentials,
	// missing database, malformed SQL, constraint violations.
	FailureFatal
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureRetryable:
		return "retryable"
	case FailureFatal:
		return "fatal"
	default:
		return "invalid"
	}
}

// Classify sorts a database error into the retry taxonomy. Only errors
// positively identified as transient come back FailureRetryable; anything
// the pool does not recognize is treated as fatal so retries never mask a
// real defect.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}

	// The caller's context is dead. A retry would run inside the same
	// dead context, so there is no point.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureFatal
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgCode(pgErr.Code)
	}

	// pgconn marks errors that occurred before the request reached the
	// wire, which means the server never saw the statement.
	if pgconn.SafeToRetry(err) {
		return FailureRetryable
	}

	// Socket-level failures: the server or the network dropped the
	// connection under us.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return FailureRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureRetryable
	}

	return FailureFatal
}

// classifyPgCode maps PostgreSQL server error codes to the retry taxonomy.
// Reference: https://www.postgresql.org/docs/current/errcodes-appendix.html
func classifyPgCode(code string) Failure {
	switch code {
	// 40001: serialization_failure (transaction conflict)
	case "40001":
		return FailureRetryable

	// 40P01: deadlock_detected
	case "40P01":
		return FailureRetryable

	// 57P01: admin_shutdown, 57P02: crash_shutdown,
	// 57P03: cannot_connect_now (server still starting up)
	case "57P01", "57P02", "57P03":
		return FailureRetryable

	// 08xxx: connection exceptions
	case "08000", "08001", "08003", "08004", "08006":
		return FailureRetryable

	// 53300: too_many_connections (transient capacity limit)
	case "53300":
		return FailureRetryable
	}

	// Everything else is fatal: authentication (28000, 28P01), unknown
	// database (3D000), malformed SQL and access violations (42xxx),
	// constraint and data errors. These fail identically on a fresh
	// connection.
	return FailureFatal
}
