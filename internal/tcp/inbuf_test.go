package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arrowhead-io/aio/internal/allocator"
	"github.com/arrowhead-io/aio/internal/errkind"
)

func TestInputBufferRepackReclaimsConsumedSpace(t *testing.T) {
	pages := allocator.NewPageAllocator()
	in := newInputBuffer(pages)
	defer in.Release()

	n := copy(in.cursor.WriteSlice(), []byte("hello"))
	in.cursor.WriteV(n)

	var scratch [3]byte
	in.cursor.Read(scratch[:])

	require.True(t, in.Repack())
}

func TestInputBufferRepackFailsOnlyWhenFull(t *testing.T) {
	pages := allocator.NewPageAllocator()
	in := newInputBuffer(pages)
	defer in.Release()

	full := in.cursor.WriteSlice()
	in.cursor.WriteV(len(full))

	require.False(t, in.Repack())
}

func TestConnDetachInBufferTransfersOwnershipAndAllocatesFresh(t *testing.T) {
	ft := &fakeConnTransport{}
	c := newTestConn(t, ft, ConnObserver{OnRead: func(any, *InputBuffer, *errkind.Error) {}})

	require.NoError(t, c.Open(Addr{}))
	require.NoError(t, c.Connect(Addr{}))
	require.NoError(t, c.ReadStart())

	original := c.InBuffer()
	require.NotNil(t, original)

	detached := c.DetachInBuffer()
	require.Same(t, original, detached)

	fresh := c.InBuffer()
	require.NotSame(t, original, fresh)
	require.NotNil(t, fresh)

	detached.Release()
}

func TestConnDetachInBufferBeforeReadStartReturnsNil(t *testing.T) {
	ft := &fakeConnTransport{}
	c := newTestConn(t, ft, ConnObserver{})

	require.Nil(t, c.DetachInBuffer())
}
