package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultRemoteTimeout bounds a single remote exchange.
const DefaultRemoteTimeout = 5 * time.Second

// ResetHeader is set in the handshake response when the server can reset
// the device behind it.
const ResetHeader = "Morse-Reset"

// Remote carries command frames to a morsectl server over a websocket.
// Each binary message is one bridge frame, the same framing the serial
// bridge uses, so the server answers with a status-coded frame.
type Remote struct {
	Pool

	url     string
	dialer  *websocket.Dialer
	header  http.Header
	timeout time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	canReset bool
}

// RemoteOption configures a Remote transport.
type RemoteOption func(*Remote)

// WithRemoteTimeout sets the per-exchange deadline. A non-positive d keeps
// DefaultRemoteTimeout.
func WithRemoteTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) RemoteOption {
	return func(r *Remote) {
		r.dialer = d
	}
}

// WithHeader adds headers to the websocket handshake.
func WithHeader(h http.Header) RemoteOption {
	return func(r *Remote) {
		r.header = h
	}
}

// NewRemote returns a closed remote transport for the ws:// or wss:// url.
func NewRemote(url string, opts ...RemoteOption) *Remote {
	r := &Remote{
		url:     url,
		dialer:  websocket.DefaultDialer,
		timeout: DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) Kind() Kind { return KindRemote }

func (r *Remote) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}
	conn, resp, err := r.dialer.DialContext(ctx, r.url, r.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.url, err)
	}
	r.conn = conn
	r.canReset = resp != nil && resp.Header.Get(ResetHeader) == "1"
	return nil
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := r.conn.Close()
	r.conn = nil
	r.canReset = false
	return err
}

func (r *Remote) Send(ctx context.Context, req, resp *Buffer) error {
	if err := checkBuffers(req, resp); err != nil {
		return err
	}
	reply, err := r.exchange(ctx, FrameCommand, req.Frame())
	if err != nil {
		return err
	}
	resp.Fill(reply)
	return nil
}

// SupportsReset reports whether the server advertised device reset when
// the link was opened.
func (r *Remote) SupportsReset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canReset
}

func (r *Remote) DirectChip() bool { return false }

// ResetDevice asks the server to reset the device behind it.
func (r *Remote) ResetDevice(ctx context.Context) error {
	_, err := r.exchange(ctx, FrameReset, nil)
	return err
}

func (r *Remote) exchange(ctx context.Context, typ byte, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil, ErrNotOpen
	}

	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	frame, err := EncodeFrame(typ, data)
	if err != nil {
		return nil, err
	}
	r.conn.SetWriteDeadline(deadline)
	if err := r.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		r.drop()
		return nil, fmt.Errorf("write message: %w", err)
	}

	r.conn.SetReadDeadline(deadline)
	msgType, msg, err := r.conn.ReadMessage()
	if err != nil {
		r.drop()
		return nil, fmt.Errorf("read message: %w", err)
	}
	if msgType != websocket.BinaryMessage {
		return nil, fmt.Errorf("unexpected websocket message type %d", msgType)
	}

	status, reply, err := DecodeFrame(msg)
	if err != nil {
		return nil, err
	}
	if status != BridgeOK {
		return nil, &BridgeError{Status: status}
	}
	return reply, nil
}

// drop discards a connection gorilla/websocket can no longer use after a
// failed read or write. Open redials. r.mu must be held.
func (r *Remote) drop() {
	r.conn.Close()
	r.conn = nil
	r.canReset = false
}

// Server exposes a Handler to Remote clients. Reset requests reach the
// handler when it implements Resetter.
type Server struct {
	Handler Handler

	// ErrorLog receives failures that cannot be reported to the client
	ErrorLog func(msg string, err error)

	upgrader websocket.Upgrader
}

// NewServer returns a websocket server for h.
func NewServer(h Handler) *Server {
	return &Server{
		Handler: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var hdr http.Header
	if _, ok := s.Handler.(Resetter); ok {
		hdr = http.Header{ResetHeader: []string{"1"}}
	}
	conn, err := s.upgrader.Upgrade(w, r, hdr)
	if err != nil {
		s.logError("upgrade", err)
		return
	}
	defer conn.Close()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logError("read", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		status, data := s.handle(r.Context(), msg)
		reply, err := EncodeFrame(status, data)
		if err != nil {
			reply, _ = EncodeFrame(BridgeBadLength, nil)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, reply); err != nil {
			s.logError("write", err)
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, msg []byte) (byte, []byte) {
	typ, data, err := DecodeFrame(msg)
	if err != nil {
		return BridgeBadChecksum, nil
	}

	switch typ {
	case FrameCommand:
		reply, err := s.Handler.HandleFrame(ctx, data)
		if err != nil {
			s.logError("handle frame", err)
			return BridgeChipTimeout, nil
		}
		return BridgeOK, reply
	case FrameReset:
		rs, ok := s.Handler.(Resetter)
		if !ok {
			return BridgeUnknownType, nil
		}
		if err := rs.ResetDevice(ctx); err != nil {
			s.logError("reset", err)
			return BridgeBusError, nil
		}
		return BridgeOK, nil
	default:
		return BridgeUnknownType, nil
	}
}

func (s *Server) logError(msg string, err error) {
	if s.ErrorLog != nil {
		s.ErrorLog(msg, err)
	}
}
