// Command aio-echo runs a small TCP echo server over the library's
// default OS transport, wrapped in the metrics-collecting stacked
// transport, driven by the event loop's run-until function.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/arrowhead-io/aio/internal/addr"
	"github.com/arrowhead-io/aio/internal/allocator"
	"github.com/arrowhead-io/aio/internal/errkind"
	"github.com/arrowhead-io/aio/internal/loop"
	"github.com/arrowhead-io/aio/internal/tcp"
)

func main() {
	var (
		listenAddr string
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "aio-echo",
		Short: "accept-and-echo TCP server built on the event loop",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "listen and echo every payload back to its sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := hclog.New(&hclog.LoggerOptions{
				Name:  "aio-echo",
				Level: hclog.LevelFromString(logLevel),
			})

			return run(listenAddr, log)
		},
	}

	serve.Flags().StringVar(&listenAddr, "addr", "127.0.0.1:0", "address to listen on")
	serve.Flags().StringVar(&logLevel, "log-level", "info", "hclog level")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(listenAddr string, log hclog.Logger) error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	lp, err := loop.New(loop.WithLogger(log))
	if err != nil {
		return fmt.Errorf("construct loop: %w", err)
	}

	metrics := registerMetrics()

	baseTransport := tcp.NewDefaultTransport(lp)
	listenerTransport := &tcp.MetricsListenerTransport{
		Inner:        baseTransport.Listener,
		Accepts:      metrics.accepts,
		BytesRead:    metrics.bytesRead,
		BytesWritten: metrics.bytesWritten,
		ReadErrors:   metrics.readErrors,
		WriteErrors:  metrics.writeErrors,
	}

	observer := tcp.ListenerObserver{
		OnListen: func(ctx any, err *errkind.Error) {
			if err != nil {
				log.Error("listen failed", "err", err)

				return
			}

			log.Info("listening", "addr", listenAddr)
		},
		OnAccept: onAccept(log),
	}

	l, lerr := tcp.NewListener(&tcp.Transport{Loop: lp, Listener: listenerTransport}, observer, allocator.NewPageAllocator(), 4096)
	if lerr != nil {
		return fmt.Errorf("construct listener: %w", lerr)
	}

	if lerr := l.Open(addr.FromTCPAddr(tcpAddr)); lerr != nil {
		return fmt.Errorf("open listener: %w", lerr)
	}

	if lerr := l.Listen(0); lerr != nil {
		return fmt.Errorf("listen: %w", lerr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		log.Info("shutting down")

		if err := lp.Terminate(); err != nil {
			log.Error("terminate", "err", err)
		}
	}()

	return lp.RunUntil(false, 0)
}

func onAccept(log hclog.Logger) func(ctx any, acc *tcp.Acceptance, err *errkind.Error) {
	return func(ctx any, acc *tcp.Acceptance, err *errkind.Error) {
		if err != nil {
			log.Warn("accept redelivered", "err", err)

			return
		}

		acc.SetObserver(tcp.ConnObserver{
			OnClose: func(ctx any, err *errkind.Error) {
				log.Debug("connection closed", "err", err)
			},
			OnRead: func(ctx any, in *tcp.InputBuffer, err *errkind.Error) {
				if err != nil {
					acc.Conn.Close()

					return
				}

				payload := make([]byte, in.Cursor().Len())
				in.Cursor().Read(payload)

				out := tcp.NewOutputBuffer(payload)

				if werr := acc.Conn.Write(out); werr != nil {
					log.Error("write", "err", werr)
					acc.Conn.Close()
				}
			},
			OnWrite: func(ctx any, out *tcp.OutputBuffer, err *errkind.Error) {
				if err != nil {
					log.Error("write completion", "err", err)
					acc.Conn.Close()
				}
			},
		})

		if rerr := acc.Conn.ReadStart(); rerr != nil {
			log.Error("read_start", "err", rerr)
			acc.Conn.Close()
		}
	}
}

type metricSet struct {
	accepts      prometheus.Counter
	bytesRead    prometheus.Counter
	bytesWritten prometheus.Counter
	readErrors   prometheus.Counter
	writeErrors  prometheus.Counter
}

func registerMetrics() metricSet {
	m := metricSet{
		accepts:      prometheus.NewCounter(prometheus.CounterOpts{Name: "aio_echo_accepts_total"}),
		bytesRead:    prometheus.NewCounter(prometheus.CounterOpts{Name: "aio_echo_bytes_read_total"}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{Name: "aio_echo_bytes_written_total"}),
		readErrors:   prometheus.NewCounter(prometheus.CounterOpts{Name: "aio_echo_read_errors_total"}),
		writeErrors:  prometheus.NewCounter(prometheus.CounterOpts{Name: "aio_echo_write_errors_total"}),
	}

	prometheus.MustRegister(m.accepts, m.bytesRead, m.bytesWritten, m.readErrors, m.writeErrors)

	return m
}
