package device

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testBlockSize = 64

func block(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, testBlockSize)
}

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(testBlockSize, 16)

	p := block(0xff)
	require.NoError(t, m.ReadBlock(ctx, 1, 3, p))
	require.Equal(t, block(0), p, "unwritten blocks read as zeros")

	require.NoError(t, m.WriteBlock(ctx, 1, 3, block(7)))
	require.NoError(t, m.WriteBlock(ctx, 2, 3, block(9)))
	require.NoError(t, m.ReadBlock(ctx, 1, 3, p))
	require.Equal(t, block(7), p)
	require.NoError(t, m.ReadBlock(ctx, 2, 3, p))
	require.Equal(t, block(9), p)
	require.Equal(t, 2, m.Written())

	// the device keeps its own copy.
	w := block(1)
	require.NoError(t, m.WriteBlock(ctx, 1, 4, w))
	w[0] = 2
	require.NoError(t, m.ReadBlock(ctx, 1, 4, p))
	require.Equal(t, block(1), p)
}

func TestMemory_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(testBlockSize, 16)

	require.ErrorIs(t, m.ReadBlock(ctx, 0, 16, block(0)), ErrOutOfRange)
	require.ErrorIs(t, m.WriteBlock(ctx, 0, 100, block(0)), ErrOutOfRange)
	require.ErrorIs(t, m.ReadBlock(ctx, 0, 0, make([]byte, 10)), ErrBlockSize)
	require.ErrorIs(t, m.WriteBlock(ctx, 0, 0, make([]byte, 100)), ErrBlockSize)
}

func TestFaulty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFaulty(NewMemory(testBlockSize, 0))
	boom := errors.New("boom")

	f.FailReads(0, 1, nil)
	f.FailWrites(0, 2, boom)

	require.ErrorIs(t, f.ReadBlock(ctx, 0, 1, block(0)), ErrInjected)
	require.NoError(t, f.WriteBlock(ctx, 0, 1, block(1)))
	require.NoError(t, f.ReadBlock(ctx, 0, 2, block(0)))
	require.ErrorIs(t, f.WriteBlock(ctx, 0, 2, block(2)), boom)

	f.Heal(0, 1)
	p := block(0)
	require.NoError(t, f.ReadBlock(ctx, 0, 1, p))
	require.Equal(t, block(1), p)

	f.Reset()
	require.NoError(t, f.WriteBlock(ctx, 0, 2, block(2)))

	f.FailAfter(2, nil)
	require.NoError(t, f.ReadBlock(ctx, 0, 7, p))
	require.NoError(t, f.WriteBlock(ctx, 0, 7, p))
	require.ErrorIs(t, f.ReadBlock(ctx, 0, 7, p), ErrInjected)
	require.ErrorIs(t, f.WriteBlock(ctx, 0, 8, p), ErrInjected)

	f.FailAfter(-1, nil)
	require.NoError(t, f.ReadBlock(ctx, 0, 7, p))
}

func TestThrottled(t *testing.T) {
	t.Parallel()

	th := NewThrottled(NewMemory(testBlockSize, 0), 1, 1)
	p := block(0)
	require.NoError(t, th.WriteBlock(context.Background(), 0, 0, p))

	// the only token is spent, so the next operation has to wait and the context expires first.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, th.ReadBlock(ctx, 0, 0, p))
}

func TestChecksummed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := NewMemory(testBlockSize, 0)
	c := NewChecksummed(mem)

	p := block(0)
	require.NoError(t, c.ReadBlock(ctx, 0, 1, p), "blocks never written are not verified")

	require.NoError(t, c.WriteBlock(ctx, 0, 1, block(3)))
	require.Equal(t, 1, c.Verified())
	require.NoError(t, c.ReadBlock(ctx, 0, 1, p))
	require.Equal(t, block(3), p)

	// corrupt the block behind the wrapper's back.
	require.NoError(t, mem.WriteBlock(ctx, 0, 1, block(4)))
	require.ErrorIs(t, c.ReadBlock(ctx, 0, 1, p), ErrChecksum)
}
