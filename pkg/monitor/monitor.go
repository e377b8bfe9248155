// Package monitor exposes per-block suppressor reports over a WebSocket so a
// browser or script can watch the gate live while the echoback demo runs. It
// sits strictly outside the audio path: Publish never blocks, and slow
// subscribers lose reports rather than stalling the block pipeline.
package monitor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/mines-audio/echogate/pkg/suppressor"
)

// subBuffer is the per-subscriber report backlog. Reports arrive every 10 ms;
// a full buffer means the subscriber is more than half a second behind.
const subBuffer = 64

// Server is a fan-out hub for suppressor reports.
type Server struct {
	addr string

	mu   sync.Mutex
	subs map[chan suppressor.Report]struct{}
}

// NewServer creates a monitor hub that Run will bind to addr.
func NewServer(addr string) *Server {
	return &Server{
		addr: addr,
		subs: make(map[chan suppressor.Report]struct{}),
	}
}

// Publish fans a report out to all current subscribers, dropping it for any
// subscriber whose buffer is full.
func (s *Server) Publish(r suppressor.Report) {
	s.mu.Lock()
	for ch := range s.subs {
		select {
		case ch <- r:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Server) subscribe() chan suppressor.Report {
	ch := make(chan suppressor.Report, subBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan suppressor.Report) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// Handler returns the WebSocket upgrade handler. Exposed separately so tests
// can mount it on an httptest server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "closing")

		ch := s.subscribe()
		defer s.unsubscribe(ch)

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case rep := <-ch:
				if err := wsjson.Write(ctx, conn, rep); err != nil {
					return
				}
			}
		}
	})
}

// Run serves the hub on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("monitor: listen %s: %w", s.addr, err)
	}

	srv := &http.Server{Handler: s.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return fmt.Errorf("monitor: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}
