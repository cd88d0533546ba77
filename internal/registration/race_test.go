package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func ignoreCacheJanitor() goleak.Option {
	return goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run")
}

func blockUntilDone(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestFirstOf_FirstWinsAndCancelsTheRest(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor())

	cancelled := make(chan struct{})
	idx, v, err := firstOf(context.Background(),
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			close(cancelled)
			return "", ctx.Err()
		},
		func(ctx context.Context) (string, error) { return "fast", nil },
	)

	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.Equal(t, "fast", v)
	select {
	case <-cancelled:
	default:
		require.Fail(t, "loser was not cancelled before return")
	}
}

func TestFirstOf_Deadline(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	idx, _, err := firstOf(ctx, blockUntilDone, blockUntilDone)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, -1, idx)
}

func TestFirstOf_FailureDoesNotWin(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor())

	boom := errors.New("boom")
	idx, v, err := firstOf(context.Background(),
		func(ctx context.Context) (string, error) { return "", boom },
		func(ctx context.Context) (string, error) {
			time.Sleep(10 * time.Millisecond)
			return "late", nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.Equal(t, "late", v)

	_, _, err = firstOf(context.Background(),
		func(ctx context.Context) (string, error) { return "", boom },
	)
	require.ErrorIs(t, err, boom)
}
