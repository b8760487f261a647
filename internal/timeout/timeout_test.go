package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutLiteralMessage(t *testing.T) {
	_, err := Run(context.Background(), 50*time.Millisecond, "slow-op", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.Error(t, err)
	assert.Equal(t, "slow-op timed out after 50ms", err.Error())
	var de *DeadlineError
	assert.ErrorAs(t, err, &de)
}

func TestCompletesBeforeDeadline(t *testing.T) {
	got, err := Run(context.Background(), time.Second, "fast-op", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestPropagatesOperationError(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := Run(context.Background(), time.Second, "op", func(ctx context.Context) (int, error) {
		return 0, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
