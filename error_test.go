package contestcrawl_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/contestcrawl"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := contestcrawl.Errorf(contestcrawl.ENOTFOUND, "selector %q not found", "h1")

	assert.Equal(t, contestcrawl.ENOTFOUND, contestcrawl.ErrorCode(err))
	assert.Equal(t, "selector \"h1\" not found", contestcrawl.ErrorMessage(err))
}

func TestWrapErrorf(t *testing.T) {
	t.Parallel()

	err := contestcrawl.WrapErrorf(context.DeadlineExceeded, contestcrawl.ETIMEOUT, "navigate %s", "https://example.com")

	assert.Equal(t, contestcrawl.ETIMEOUT, contestcrawl.ErrorCode(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, contestcrawl.ErrorCode(nil))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("page 3: %w", contestcrawl.Errorf(contestcrawl.ECRASHED, "target closed"))

	assert.Equal(t, contestcrawl.ECRASHED, contestcrawl.ErrorCode(err))
	assert.Equal(t, "target closed", contestcrawl.ErrorMessage(err))
}

func TestErrorCode_ForeignError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")

	assert.Equal(t, contestcrawl.EINTERNAL, contestcrawl.ErrorCode(err))
	assert.Equal(t, "Internal error.", contestcrawl.ErrorMessage(err))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, contestcrawl.ErrorMessage(nil))
}

func TestIsSessionFailure(t *testing.T) {
	t.Parallel()

	assert.True(t, contestcrawl.IsSessionFailure(contestcrawl.Errorf(contestcrawl.ETIMEOUT, "slow")))
	assert.True(t, contestcrawl.IsSessionFailure(contestcrawl.Errorf(contestcrawl.ECRASHED, "gone")))
	assert.False(t, contestcrawl.IsSessionFailure(contestcrawl.Errorf(contestcrawl.ENOTFOUND, "missing")))
	assert.False(t, contestcrawl.IsSessionFailure(errors.New("plain")))
	assert.False(t, contestcrawl.IsSessionFailure(nil))
}
