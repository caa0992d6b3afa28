package tcp

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arrowhead-io/aio/internal/errkind"
)

// MetricsConnTransport wraps an inner ConnTransport, counting reads,
// writes, and their error outcomes before forwarding every operation
// unchanged. Grounded on the teacher's TLSDial/TLSServer — "strengthen
// defaults, then delegate to the wrapped implementation" — except here
// the wrapping observes rather than mutates behaviour.
type MetricsConnTransport struct {
	Inner ConnTransport

	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter
	ReadErrors   prometheus.Counter
	WriteErrors  prometheus.Counter
}

func (m *MetricsConnTransport) Init(c *Conn) error { return m.Inner.Init(c) }

func (m *MetricsConnTransport) Open(c *Conn, local Addr) *errkind.Error {
	return m.Inner.Open(c, local)
}

func (m *MetricsConnTransport) Connect(c *Conn, remote Addr, done func(*errkind.Error)) *errkind.Error {
	return m.Inner.Connect(c, remote, done)
}

func (m *MetricsConnTransport) ReadStart(c *Conn) *errkind.Error {
	observer := c.Observer
	wrapped := observer.OnRead

	observer.OnRead = func(ctx any, in *InputBuffer, err *errkind.Error) {
		if err != nil {
			if m.ReadErrors != nil {
				m.ReadErrors.Inc()
			}
		} else if m.BytesRead != nil && in != nil {
			m.BytesRead.Add(float64(in.Cursor().Len()))
		}

		if wrapped != nil {
			wrapped(ctx, in, err)
		}
	}

	c.Observer = observer

	return m.Inner.ReadStart(c)
}

func (m *MetricsConnTransport) ReadStop(c *Conn) *errkind.Error { return m.Inner.ReadStop(c) }

func (m *MetricsConnTransport) Write(c *Conn, out *OutputBuffer, done func(*errkind.Error)) *errkind.Error {
	n := out.Cursor().Len()

	return m.Inner.Write(c, out, func(err *errkind.Error) {
		if err != nil {
			if m.WriteErrors != nil {
				m.WriteErrors.Inc()
			}
		} else if m.BytesWritten != nil {
			m.BytesWritten.Add(float64(n))
		}

		done(err)
	})
}

func (m *MetricsConnTransport) Shutdown(c *Conn, flags ShutFlags) *errkind.Error {
	return m.Inner.Shutdown(c, flags)
}

func (m *MetricsConnTransport) Close(c *Conn, done func(*errkind.Error)) { m.Inner.Close(c, done) }
func (m *MetricsConnTransport) Term(c *Conn)                             { m.Inner.Term(c) }

func (m *MetricsConnTransport) LocalAddr(c *Conn) Addr  { return m.Inner.LocalAddr(c) }
func (m *MetricsConnTransport) RemoteAddr(c *Conn) Addr { return m.Inner.RemoteAddr(c) }

func (m *MetricsConnTransport) SetKeepAlive(c *Conn, enable bool) *errkind.Error {
	return m.Inner.SetKeepAlive(c, enable)
}

func (m *MetricsConnTransport) SetNoDelay(c *Conn, enable bool) *errkind.Error {
	return m.Inner.SetNoDelay(c, enable)
}

// MetricsListenerTransport wraps an inner ListenerTransport, counting
// accepted connections and attaching a MetricsConnTransport to each one
// via PrepareConnTransport — the spec's listener_prepare hook.
type MetricsListenerTransport struct {
	Inner ListenerTransport

	Accepts      prometheus.Counter
	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter
	ReadErrors   prometheus.Counter
	WriteErrors  prometheus.Counter
}

func (m *MetricsListenerTransport) Init(l *Listener) error { return m.Inner.Init(l) }

func (m *MetricsListenerTransport) Open(l *Listener, local Addr) *errkind.Error {
	return m.Inner.Open(l, local)
}

func (m *MetricsListenerTransport) Listen(l *Listener, backlog int) *errkind.Error {
	return m.Inner.Listen(l, backlog)
}

func (m *MetricsListenerTransport) Close(l *Listener, done func(*errkind.Error)) {
	m.Inner.Close(l, done)
}

func (m *MetricsListenerTransport) Term(l *Listener) { m.Inner.Term(l) }

func (m *MetricsListenerTransport) SetReuseAddr(l *Listener, enable bool) *errkind.Error {
	return m.Inner.SetReuseAddr(l, enable)
}

func (m *MetricsListenerTransport) PrepareConnTransport(l *Listener) ConnTransport {
	if m.Accepts != nil {
		m.Accepts.Inc()
	}

	return &MetricsConnTransport{
		Inner:        m.Inner.PrepareConnTransport(l),
		BytesRead:    m.BytesRead,
		BytesWritten: m.BytesWritten,
		ReadErrors:   m.ReadErrors,
		WriteErrors:  m.WriteErrors,
	}
}
