package capture

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/sirupsen/logrus"
)

// DefaultWebSocketPath is where WebSocketSource accepts connections.
const DefaultWebSocketPath = "/events"

// WebSocketSource listens on Addr and accepts websocket connections at Path.
// Every text message is one JSON event.
type WebSocketSource struct {
	Addr string
	Path string
	// StopOnDisconnect ends Run once the first connected client goes away.
	StopOnDisconnect bool
	// OnListen, when set, receives the bound address before serving starts.
	OnListen func(addr string)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	// the collector runs inside arbitrary application origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Run implements Source.
func (s *WebSocketSource) Run(ctx context.Context, out chan<- Event) error {
	path := s.Path
	if path == "" {
		path = DefaultWebSocketPath
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Transient("listen for events", err).WithDetail("addr", s.Addr)
	}
	if s.OnListen != nil {
		s.OnListen(ln.Addr().String())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Shutdown does not wait for hijacked connections, so handlers are
	// tracked here: out must not be written once Run has returned.
	var (
		handlers sync.WaitGroup
		mu       sync.Mutex
		closed   bool
	)
	h := s.Handler(ctx, out, cancel)
	mux := http.NewServeMux()
	mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if closed {
			mu.Unlock()
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		handlers.Add(1)
		mu.Unlock()
		defer handlers.Done()
		h.ServeHTTP(w, r)
	}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ln) }()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			runErr = errors.Transient("serve events", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	server.Shutdown(shutdownCtx)

	// cancel closes the remaining connections, ending their read loops.
	cancel()
	mu.Lock()
	closed = true
	mu.Unlock()
	handlers.Wait()
	return runErr
}

// Handler returns the upgrade handler writing into out. When the source was
// configured with StopOnDisconnect, disconnect is called after the first
// client leaves.
func (s *WebSocketSource) Handler(ctx context.Context, out chan<- Event, disconnect func()) http.Handler {
	logger := logging.NewLogger("capture")
	var once sync.Once

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Debug("Websocket upgrade failed")
			return
		}
		defer conn.Close()
		logger.WithField("remote", r.RemoteAddr).Info("Collector connected")

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-done:
				return
			case <-ctx.Done():
			}
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		}()

		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
					logger.WithError(err).Debug("Collector connection ended")
				}
				break
			}
			if kind != websocket.TextMessage {
				continue
			}
			ev, err := DecodeEvent(msg)
			if err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"remote": r.RemoteAddr,
					"bytes":  len(msg),
				}).Warn("Skipping malformed event")
				continue
			}
			if !send(ctx, out, ev) {
				break
			}
		}

		if s.StopOnDisconnect && disconnect != nil {
			once.Do(disconnect)
		}
	})
}
