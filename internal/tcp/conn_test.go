package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arrowhead-io/aio/internal/allocator"
	"github.com/arrowhead-io/aio/internal/errkind"
	"github.com/arrowhead-io/aio/internal/loop"
)

// fakeConnTransport drives the connection state machine deterministically,
// without a real loop or socket, so the sequencing invariants can be
// asserted directly.
type fakeConnTransport struct {
	connectErr *errkind.Error
	writeErr   *errkind.Error
	openErr    *errkind.Error

	readStartCalls int
	readStopCalls  int
	shutdownFlags  ShutFlags
	closed         bool
}

func (f *fakeConnTransport) Init(c *Conn) error { return nil }

func (f *fakeConnTransport) Open(c *Conn, local Addr) *errkind.Error { return f.openErr }

func (f *fakeConnTransport) Connect(c *Conn, remote Addr, done func(*errkind.Error)) *errkind.Error {
	done(f.connectErr)

	return nil
}

func (f *fakeConnTransport) ReadStart(c *Conn) *errkind.Error {
	f.readStartCalls++

	return nil
}

func (f *fakeConnTransport) ReadStop(c *Conn) *errkind.Error {
	f.readStopCalls++

	return nil
}

func (f *fakeConnTransport) Write(c *Conn, out *OutputBuffer, done func(*errkind.Error)) *errkind.Error {
	done(f.writeErr)

	return nil
}

func (f *fakeConnTransport) Shutdown(c *Conn, flags ShutFlags) *errkind.Error {
	f.shutdownFlags |= flags

	return nil
}

func (f *fakeConnTransport) Close(c *Conn, done func(*errkind.Error)) {
	f.closed = true
	done(nil)
}

func (f *fakeConnTransport) Term(c *Conn) {}

func (f *fakeConnTransport) LocalAddr(c *Conn) Addr  { return Addr{} }
func (f *fakeConnTransport) RemoteAddr(c *Conn) Addr { return Addr{} }

func (f *fakeConnTransport) SetKeepAlive(c *Conn, enable bool) *errkind.Error { return nil }
func (f *fakeConnTransport) SetNoDelay(c *Conn, enable bool) *errkind.Error   { return nil }

func newTestConn(t *testing.T, ft *fakeConnTransport, observer ConnObserver) *Conn {
	t.Helper()

	transport := &Transport{Conn: ft}

	c, err := NewConn(transport, observer, allocator.NewPageAllocator())
	require.NoError(t, err)
	require.Equal(t, ConnInitialised, c.State())

	return c
}

func TestConnValidTransitionSequenceFiresCallbacksInOrder(t *testing.T) {
	ft := &fakeConnTransport{}

	var events []string

	observer := ConnObserver{
		OnOpen:    func(ctx any, err *errkind.Error) { events = append(events, "open") },
		OnConnect: func(ctx any, err *errkind.Error) { events = append(events, "connect") },
		OnRead: func(ctx any, in *InputBuffer, err *errkind.Error) {
			events = append(events, "read")
		},
		OnWrite: func(ctx any, out *OutputBuffer, err *errkind.Error) { events = append(events, "write") },
		OnClose: func(ctx any, err *errkind.Error) { events = append(events, "close") },
	}

	c := newTestConn(t, ft, observer)

	require.NoError(t, c.Open(Addr{}))

	require.NoError(t, c.Connect(Addr{}))
	require.Equal(t, ConnConnected, c.State())

	require.NoError(t, c.ReadStart())
	require.Equal(t, ConnReading, c.State())

	c.readRec = &loop.EventRecord{} // a real transport would have armed this on read_start

	c.Close()
	require.Equal(t, ConnClosed, c.State())

	c.Term()

	require.Equal(t, []string{"open", "connect", "read"}, events[:3])
	require.Equal(t, "close", events[len(events)-1])
	require.Equal(t, ConnTerminated, c.State())
}

func TestConnWriteInWrongStateReturnsBadState(t *testing.T) {
	ft := &fakeConnTransport{}

	writeFired := false
	observer := ConnObserver{OnWrite: func(ctx any, out *OutputBuffer, err *errkind.Error) { writeFired = true }}

	c := newTestConn(t, ft, observer)
	require.NoError(t, c.Open(Addr{}))

	err := c.Write(NewOutputBuffer(make([]byte, 8)))
	require.NotNil(t, err)
	require.Equal(t, errkind.BadState, err.Kind)
	require.False(t, writeFired)
}

func TestConnWriteAfterShutdownReturnsBadState(t *testing.T) {
	ft := &fakeConnTransport{}
	observer := ConnObserver{OnRead: func(any, *InputBuffer, *errkind.Error) {}, OnWrite: func(any, *OutputBuffer, *errkind.Error) {}}

	c := newTestConn(t, ft, observer)
	require.NoError(t, c.Open(Addr{}))
	require.NoError(t, c.Connect(Addr{}))
	require.Equal(t, ConnConnected, c.State())

	require.NoError(t, c.Shutdown(ShutWrite))

	err := c.Write(NewOutputBuffer(make([]byte, 8)))
	require.NotNil(t, err)
	require.Equal(t, errkind.BadState, err.Kind)
}

func TestConnConnectInfersShutdownWhenBothCallbacksNil(t *testing.T) {
	ft := &fakeConnTransport{}
	c := newTestConn(t, ft, ConnObserver{})

	require.NoError(t, c.Open(Addr{}))
	require.NoError(t, c.Connect(Addr{}))

	require.Equal(t, ShutRead|ShutWrite, ft.shutdownFlags)
}

func TestConnConnectFailureRevertsToOpen(t *testing.T) {
	ft := &fakeConnTransport{connectErr: errkind.New("connect", errkind.ConnectionRefused)}
	c := newTestConn(t, ft, ConnObserver{OnRead: func(any, *InputBuffer, *errkind.Error) {}, OnWrite: func(any, *OutputBuffer, *errkind.Error) {}})

	require.NoError(t, c.Open(Addr{}))
	require.NoError(t, c.Connect(Addr{}))

	require.Equal(t, ConnOpen, c.State())
}

func TestConnCloseIsIdempotentAndFiresOnCloseOnce(t *testing.T) {
	ft := &fakeConnTransport{}

	closeCount := 0
	observer := ConnObserver{OnClose: func(ctx any, err *errkind.Error) { closeCount++ }}

	c := newTestConn(t, ft, observer)
	require.NoError(t, c.Open(Addr{}))

	c.Close()
	c.Close()

	require.Equal(t, 1, closeCount)
	require.True(t, ft.closed)
}

func TestConnCloseDeliversCancelledToPendingReadBeforeOnClose(t *testing.T) {
	ft := &fakeConnTransport{}

	var events []string
	observer := ConnObserver{
		OnRead: func(ctx any, in *InputBuffer, err *errkind.Error) {
			events = append(events, "read:"+err.Kind.String())
		},
		OnClose: func(ctx any, err *errkind.Error) { events = append(events, "close") },
	}

	c := newTestConn(t, ft, observer)
	require.NoError(t, c.Open(Addr{}))
	require.NoError(t, c.Connect(Addr{}))
	require.NoError(t, c.ReadStart())

	c.readRec = &loop.EventRecord{} // simulate a read registration in flight

	c.Close()

	require.Equal(t, []string{"read:cancelled", "close"}, events)
}
