package clock

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/logger"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHeaders struct {
	times []uint64
	calls int
	err   error
}

func (f *fakeHeaders) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if f.err != nil {
		return nil, f.err
	}
	ts := f.times[f.calls]
	if f.calls < len(f.times)-1 {
		f.calls++
	}
	return &types.Header{Number: big.NewInt(int64(f.calls)), Time: ts}, nil
}

func TestSystemClock(t *testing.T) {
	before := uint64(time.Now().Unix())
	now, err := SystemClock{}.Now(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, now, before)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(1000)
	ctx := context.Background()

	now, _ := c.Now(ctx)
	assert.Equal(t, uint64(1000), now)

	assert.Equal(t, uint64(1100), c.Advance(100))
	c.Set(5)
	now, _ = c.Now(ctx)
	assert.Equal(t, uint64(5), now)
}

func TestRPCClock_Throttled(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	headers := &fakeHeaders{times: []uint64{100, 200}}
	c := NewRPCClock(headers, time.Hour, testLogger)

	now, err := c.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), now)

	// second call inside the interval reuses the cached value
	now, err = c.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), now)
	assert.Equal(t, 1, headers.calls)
}

func TestRPCClock_Monotonic(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	headers := &fakeHeaders{times: []uint64{200, 150}}
	c := NewRPCClock(headers, time.Nanosecond, testLogger)

	first, err := c.Now(context.Background())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := c.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRPCClock_Errors(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	headers := &fakeHeaders{err: errors.New("connection refused")}
	c := NewRPCClock(headers, time.Nanosecond, testLogger)

	_, err := c.Now(context.Background())
	require.ErrorContains(t, err, "connection refused")

	c.last = 42
	time.Sleep(time.Millisecond)
	now, err := c.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), now)
}
