package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/discovery"
	"github.com/danmuck/framectl/internal/protocol"
)

const wsWriteQueue = 64

// WebsocketHost is the host-context transport. It accepts guest connections
// on an HTTP upgrade endpoint; the most recent connection is the live guest,
// and its connection id feeds the host's discovery signal.
type WebsocketHost struct {
	upgrader websocket.Upgrader
	signal   *discovery.Manual

	mu       sync.Mutex
	listener Listener
	current  *wsConn
	closed   bool
}

// NewWebsocketHost builds a host transport. allowedOrigins restricts the
// HTTP handshake Origin header by prefix; empty means any.
func NewWebsocketHost(allowedOrigins []string) *WebsocketHost {
	h := &WebsocketHost{signal: discovery.NewManual()}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowedOrigins) == 0 || origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if strings.HasPrefix(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
	return h
}

var _ Transport = (*WebsocketHost)(nil)

// Signal exposes guest availability for host-mode target acquisition.
func (h *WebsocketHost) Signal() discovery.Signal {
	return h.signal
}

// Handle upgrades one HTTP request into the live guest connection,
// displacing any previous guest.
func (h *WebsocketHost) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	origin := protocol.UnverifiableOrigin()
	if raw := r.Header.Get("Origin"); raw != "" {
		origin = protocol.VerifiedOrigin(raw)
	}
	wc := newWSConn(conn, origin)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		wc.close()
		return
	}
	old := h.current
	h.current = wc
	h.mu.Unlock()

	if old != nil {
		old.close()
	}
	h.signal.Set(wc.id)
	log.Info().Str("conn", wc.id).Str("origin", origin.Value).Msg("guest connected")

	go wc.writeLoop()
	wc.readLoop(h.deliver)

	h.mu.Lock()
	still := h.current == wc
	if still {
		h.current = nil
	}
	h.mu.Unlock()
	wc.close()
	if still {
		h.signal.Clear()
		log.Info().Str("conn", wc.id).Msg("guest disconnected")
	}
}

func (h *WebsocketHost) Send(msg Outbound) error {
	h.mu.Lock()
	wc := h.current
	closed := h.closed
	h.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if wc == nil {
		return ErrUnknownTarget
	}
	if msg.Target != "" && msg.Target != wc.id {
		return ErrUnknownTarget
	}
	if !originHintAdmits(msg.OriginHint, wc.origin) {
		log.Debug().Str("origin_hint", msg.OriginHint).Msg("host send dropped by origin hint")
		return nil
	}
	return wc.enqueue(msg.Data)
}

func (h *WebsocketHost) SetListener(fn Listener) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.listener != nil {
		return ErrListenerInstalled
	}
	h.listener = fn
	return nil
}

func (h *WebsocketHost) ClearListener() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = nil
}

// Close drops the live guest and refuses further connections.
func (h *WebsocketHost) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.listener = nil
	wc := h.current
	h.current = nil
	h.mu.Unlock()

	if wc != nil {
		wc.close()
		h.signal.Clear()
	}
}

func (h *WebsocketHost) deliver(msg Inbound) {
	h.mu.Lock()
	fn := h.listener
	h.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// wsConn wraps one websocket connection with an ordered write queue.
type wsConn struct {
	id     string
	conn   *websocket.Conn
	origin protocol.Origin

	outbound  chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(conn *websocket.Conn, origin protocol.Origin) *wsConn {
	return &wsConn{
		id:       "conn." + uuid.NewString(),
		conn:     conn,
		origin:   origin,
		outbound: make(chan []byte, wsWriteQueue),
		done:     make(chan struct{}),
	}
}

func (c *wsConn) enqueue(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case c.outbound <- buf:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case data := <-c.outbound:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) readLoop(deliver func(Inbound)) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		deliver(Inbound{Data: data, Origin: c.origin, Source: c.id})
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// WebsocketGuest is the guest-context transport: a single dialed connection
// whose peer is the embedding host.
type WebsocketGuest struct {
	conn   *wsConn
	hostID string
	origin protocol.Origin

	mu       sync.Mutex
	listener Listener
	closed   bool
}

var _ Transport = (*WebsocketGuest)(nil)

// DialWebsocket connects to the host bridge endpoint. declaredOrigin is sent
// as the handshake Origin header so the host can apply its origin filter.
func DialWebsocket(ctx context.Context, rawURL, declaredOrigin string) (*WebsocketGuest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if declaredOrigin != "" {
		header.Set("Origin", declaredOrigin)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}

	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	hostOrigin := protocol.VerifiedOrigin(scheme + "://" + u.Host)

	g := &WebsocketGuest{
		conn:   newWSConn(conn, hostOrigin),
		hostID: "host." + u.Host,
		origin: hostOrigin,
	}
	go g.conn.writeLoop()
	go g.readLoop()
	return g, nil
}

// HostID returns the transport identity of the embedding host.
func (g *WebsocketGuest) HostID() string {
	return g.hostID
}

func (g *WebsocketGuest) Send(msg Outbound) error {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if msg.Target != "" && msg.Target != g.hostID {
		return ErrUnknownTarget
	}
	if !originHintAdmits(msg.OriginHint, g.origin) {
		log.Debug().Str("origin_hint", msg.OriginHint).Msg("guest send dropped by origin hint")
		return nil
	}
	return g.conn.enqueue(msg.Data)
}

func (g *WebsocketGuest) SetListener(fn Listener) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if g.listener != nil {
		return ErrListenerInstalled
	}
	g.listener = fn
	return nil
}

func (g *WebsocketGuest) ClearListener() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listener = nil
}

func (g *WebsocketGuest) Close() {
	g.mu.Lock()
	g.closed = true
	g.listener = nil
	g.mu.Unlock()
	g.conn.close()
}

func (g *WebsocketGuest) readLoop() {
	for {
		_, data, err := g.conn.conn.ReadMessage()
		if err != nil {
			return
		}
		g.mu.Lock()
		fn := g.listener
		g.mu.Unlock()
		if fn != nil {
			fn(Inbound{Data: data, Origin: g.origin, Source: g.hostID})
		}
	}
}
