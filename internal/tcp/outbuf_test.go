package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arrowhead-io/aio/internal/errkind"
)

func TestOutputBufferWriteInvokesOnWriteWithSameBuffer(t *testing.T) {
	ft := &fakeConnTransport{}

	var got *OutputBuffer
	observer := ConnObserver{OnWrite: func(ctx any, out *OutputBuffer, err *errkind.Error) { got = out }}

	c := newTestConn(t, ft, observer)
	require.NoError(t, c.Open(Addr{}))
	require.NoError(t, c.Connect(Addr{}))

	out := NewOutputBuffer([]byte("Hello, Arrowhead!\x00"))
	require.NoError(t, c.Write(out))

	require.Same(t, out, got)
	require.Same(t, c, out.Conn())
}

func TestOutputBufferSurfacesWriteError(t *testing.T) {
	writeErr := errkind.New("write", errkind.ConnectionReset)
	ft := &fakeConnTransport{writeErr: writeErr}

	var gotErr *errkind.Error
	observer := ConnObserver{OnWrite: func(ctx any, out *OutputBuffer, err *errkind.Error) { gotErr = err }}

	c := newTestConn(t, ft, observer)
	require.NoError(t, c.Open(Addr{}))
	require.NoError(t, c.Connect(Addr{}))

	require.NoError(t, c.Write(NewOutputBuffer([]byte("x"))))
	require.Equal(t, writeErr, gotErr)
}
