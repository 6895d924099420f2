package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Failure
	}{
		{"nil error", nil, FailureNone},

		// Dead contexts cannot be fixed by retrying.
		{"context canceled", context.Canceled, FailureFatal},
		{"context deadline exceeded", context.DeadlineExceeded, FailureFatal},

		// Transient server-side conditions.
		{"serialization failure", &pgconn.PgError{Code: "40001"}, FailureRetryable},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, FailureRetryable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, FailureRetryable},
		{"crash shutdown", &pgconn.PgError{Code: "57P02"}, FailureRetryable},
		{"cannot connect now", &pgconn.PgError{Code: "57P03"}, FailureRetryable},
		{"connection failure", &pgconn.PgError{Code: "08006"}, FailureRetryable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, FailureRetryable},
		{"wrapped transient pg error", fmt.Errorf("exec widget update: %w", &pgconn.PgError{Code: "40001"}), FailureRetryable},

		// Configuration and code defects.
		{"invalid authorization", &pgconn.PgError{Code: "28000"}, FailureFatal},
		{"invalid password", &pgconn.PgError{Code: "28P01"}, FailureFatal},
		{"unknown database", &pgconn.PgError{Code: "3D000"}, FailureFatal},
		{"syntax error", &pgconn.PgError{Code: "42601"}, FailureFatal},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, FailureFatal},
		{"unique violation", &pgconn.PgError{Code: "23505"}, FailureFatal},

		// Socket-level failures.
		{"connection reset", fmt.Errorf("write failed: %w", syscall.ECONNRESET), FailureRetryable},
		{"connection refused", syscall.ECONNREFUSED, FailureRetryable},
		{"broken pipe", syscall.EPIPE, FailureRetryable},
		{"server hung up", io.EOF, FailureRetryable},
		{"truncated response", io.ErrUnexpectedEOF, FailureRetryable},
		{"net op error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("i/o timeout")}, FailureRetryable},

		// Unrecognized errors must not be retried.
		{"acquire timeout sentinel", ErrAcquireTimeout, FailureFatal},
		{"plain error", errors.New("spilled coffee on the keyboard"), FailureFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err), "Classify(%v)", tt.err)
		})
	}
}

func TestFailureString(t *testing.T) {
	assert.Equal(t, "none", FailureNone.String())
	assert.Equal(t, "retryable", FailureRetryable.String())
	assert.Equal(t, "fatal", FailureFatal.String())
	assert.Equal(t, "invalid", Failure(42).String())
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrAcquireTimeout, ErrUnavailable))
	assert.False(t, errors.Is(ErrUnavailable, ErrAcquireTimeout))

	wrapped := fmt.Errorf("lease widgets conn: %w", ErrAcquireTimeout)
	assert.True(t, errors.Is(wrapped, ErrAcquireTimeout))
}
