package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policy(attempts int, base time.Duration) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: base}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), policy(3, 10*time.Millisecond), "op", func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestDo_EventualSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), policy(5, time.Millisecond), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("temporary")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	base := 20 * time.Millisecond
	calls := 0
	errs := []error{errors.New("first"), errors.New("second"), errors.New("third")}

	start := time.Now()
	_, err := Do(context.Background(), policy(3, base), "embed", func(context.Context) (int, error) {
		e := errs[calls]
		calls++
		return 0, e
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errs[2])
	assert.NotErrorIs(t, err, errs[0])
	assert.GreaterOrEqual(t, elapsed, base*(1+2))
}

func TestDo_PermanentStopsEarly(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), policy(5, time.Millisecond), "op", func(context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, sentinel)
	var p *permanentError
	assert.False(t, errors.As(err, &p), "permanent marker must be stripped")
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, policy(5, 50*time.Millisecond), "op", func(context.Context) (int, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return 0, errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestDo_InvalidAttempts(t *testing.T) {
	_, err := Do(context.Background(), policy(0, time.Millisecond), "op", func(context.Context) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestDoErr(t *testing.T) {
	calls := 0
	err := DoErr(context.Background(), policy(2, time.Millisecond), "op", func(context.Context) error {
		calls++
		return errors.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	var p *permanentError
	assert.ErrorAs(t, Permanent(errors.New("x")), &p)
}
