package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), 3, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), 2, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentIsNotRetried(t *testing.T) {
	notFound := errors.New("not found")
	calls := 0
	_, err := Do(context.Background(), 5, func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(notFound)
	})

	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, 1, calls)
}

func TestDo_RespectsContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Do(ctx, 100, func(ctx context.Context) (int, error) {
		return 0, errTransient
	})

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
