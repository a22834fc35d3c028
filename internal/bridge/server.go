package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/ratelimit"
)

// RequestHandler processes one validated, normalized request and
// returns its result or a provider error.
type RequestHandler interface {
	Handle(ctx context.Context, req model.NormalizedRequest) (json.RawMessage, error)
}

// Server is the websocket transport of the bridge. Each page holds one
// connection; the connection's verified Origin header is the origin of
// record for every envelope it carries.
type Server struct {
	handler    RequestHandler
	correlator *Correlator
	upgrader   websocket.Upgrader
	limiter    *ratelimit.Limiter

	mu    sync.Mutex
	conns map[*pageConn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter bounds per-origin request throughput.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

type pageConn struct {
	ws     *websocket.Conn
	origin string

	// gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

// NewServer builds a bridge server around a request handler.
func NewServer(handler RequestHandler, opts ...Option) *Server {
	s := &Server{
		handler:    handler,
		correlator: NewCorrelator(),
		conns:      map[*pageConn]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin enforcement happens per-envelope against the
			// header value; the handshake accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Correlator exposes the correlation table for the sweeper.
func (s *Server) Correlator() *Correlator { return s.correlator }

// ServeHTTP upgrades a page connection and runs its read loop.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		http.Error(w, "missing origin", http.StatusForbidden)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridge: upgrade failed for %s: %v\n", origin, err)
		return
	}

	conn := &pageConn{ws: ws, origin: origin}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		ws.Close()
	}()

	s.readLoop(r.Context(), conn)
}

func (s *Server) readLoop(ctx context.Context, conn *pageConn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Not even an envelope; nothing to correlate a reply to.
			fmt.Fprintf(os.Stderr, "bridge: dropped unparseable message from %s\n", conn.origin)
			continue
		}
		if err := Validate(&env, conn.origin); err != nil {
			// Boundary rule: validation failures are dropped, not
			// answered, so a prober learns nothing.
			fmt.Fprintf(os.Stderr, "bridge: dropped envelope from %s: %v\n", conn.origin, err)
			continue
		}

		if s.limiter != nil {
			if ok, reason := s.limiter.Allow(conn.origin); !ok {
				s.respond(conn, env.ID, model.ResponsePayload{
					Error: model.NewProviderError(model.CodeLimitExceeded, reason),
				})
				continue
			}
		}

		var payload model.RequestPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.Method == "" {
			s.respond(conn, env.ID, model.ResponsePayload{
				Error: model.NewProviderError(model.CodeInvalidRequest, ""),
			})
			continue
		}

		nonce := model.NewNonce()
		s.correlator.Add(env.ID, nonce, func(resp model.ResponsePayload) {
			s.respond(conn, env.ID, resp)
		})

		norm := model.NormalizedRequest{
			ChainKind: env.ChainKind,
			Method:    payload.Method,
			Params:    payload.Params,
			Origin:    conn.origin,
			TabRef:    payload.TabRef,
			Title:     payload.Title,
			Favicon:   payload.Favicon,
			Nonce:     nonce,
		}

		go s.dispatch(ctx, env.ID, norm)
	}
}

func (s *Server) dispatch(ctx context.Context, id string, req model.NormalizedRequest) {
	result, err := s.handler.Handle(ctx, req)
	resp := model.ResponsePayload{Result: result}
	if err != nil {
		resp = model.ResponsePayload{Error: model.AsProviderError(err)}
	}
	if !s.correlator.Resolve(id, req.Nonce, resp) {
		fmt.Fprintf(os.Stderr, "bridge: no in-flight entry for %s, response dropped\n", id)
	}
}

func (s *Server) respond(conn *pageConn, id string, resp model.ResponsePayload) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	env := model.Envelope{
		ID:        id,
		Source:    model.SourceBridge,
		Kind:      model.MsgResponse,
		Payload:   payload,
		Origin:    conn.origin,
		Timestamp: time.Now().UnixMilli(),
	}
	s.write(conn, env)
}

// Broadcast relays a host event to every connection of the given
// origin. An empty origin reaches all connections.
func (s *Server) Broadcast(origin, event string, data json.RawMessage) {
	payload, err := json.Marshal(model.EventPayload{Event: event, Data: data})
	if err != nil {
		return
	}

	s.mu.Lock()
	targets := make([]*pageConn, 0, len(s.conns))
	for conn := range s.conns {
		if origin == "" || conn.origin == origin {
			targets = append(targets, conn)
		}
	}
	s.mu.Unlock()

	for _, conn := range targets {
		env := model.Envelope{
			ID:        model.NewID("evt"),
			Source:    model.SourceHost,
			Kind:      model.MsgEvent,
			Payload:   payload,
			Origin:    conn.origin,
			Timestamp: time.Now().UnixMilli(),
		}
		s.write(conn, env)
	}
}

func (s *Server) write(conn *pageConn, env model.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	conn.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		fmt.Fprintf(os.Stderr, "bridge: write to %s failed: %v\n", conn.origin, err)
	}
}

// RunSweeper answers stale correlation entries until ctx is cancelled.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.correlator.Sweep(); n > 0 {
				fmt.Fprintf(os.Stderr, "bridge: swept %d stale entries\n", n)
			}
		}
	}
}
