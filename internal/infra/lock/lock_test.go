package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	release, err := Noop{}.Acquire(context.Background(), "org:1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
}
