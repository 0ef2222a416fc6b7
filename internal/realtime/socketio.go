package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/martinsuchenak/hometier/internal/log"
)

// Engine.IO packet types
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO packet types, carried inside an Engine.IO message
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	writeTimeout        = 10 * time.Second
)

// Message is one inbound event frame
type Message struct {
	Name string
	Data json.RawMessage
}

// Conn is an established realtime channel
type Conn interface {
	// Emit sends a named event; a nil payload sends the name only.
	Emit(name string, payload any) error
	// Next blocks until the next event arrives. io.EOF means the server closed the channel.
	Next() (Message, error)
	Close() error
}

// Dialer opens a Conn and completes the handshake
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// SocketIODialer connects to a Socket.IO v5 server over a WebSocket
type SocketIODialer struct {
	ServerURL string
	Token     string
	Header    http.Header
	Dialer    *websocket.Dialer
}

// NewSocketIODialer returns a dialer for the server at serverURL (http or https)
func NewSocketIODialer(serverURL, token string) *SocketIODialer {
	return &SocketIODialer{
		ServerURL: serverURL,
		Token:     token,
		Dialer:    websocket.DefaultDialer,
	}
}

// Endpoint converts the HTTP server URL into the Socket.IO WebSocket endpoint
func Endpoint(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}

// Dial opens the WebSocket, reads the Engine.IO open packet and joins the default
// namespace. A refused namespace connect returns an error wrapping ErrHandshake.
func (d *SocketIODialer) Dial(ctx context.Context) (Conn, error) {
	endpoint, err := Endpoint(d.ServerURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	for k, v := range d.Header {
		header[k] = v
	}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	log.Debug("dialing realtime server", "url", endpoint)
	ws, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &socketConn{
		ws:           ws,
		pingInterval: defaultPingInterval,
		pingTimeout:  defaultPingTimeout,
	}

	// The handshake reads only end at the read deadline, so cancelling ctx closes ws
	release := context.AfterFunc(ctx, func() { ws.Close() })
	err = c.handshake(d.Token)
	if !release() {
		ws.Close()
		return nil, fmt.Errorf("handshake cancelled: %w", ctx.Err())
	}
	if err != nil {
		ws.Close()
		return nil, err
	}
	return c, nil
}

type socketConn struct {
	ws           *websocket.Conn
	writeMu      sync.Mutex
	closeOnce    sync.Once
	pingInterval time.Duration
	pingTimeout  time.Duration
	sid          string
}

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

func (c *socketConn) handshake(token string) error {
	packet, err := c.read()
	if err != nil {
		return fmt.Errorf("reading open packet: %w", err)
	}
	if len(packet) == 0 || packet[0] != engineOpen {
		return fmt.Errorf("%w: unexpected open packet %q", ErrHandshake, packet)
	}

	var open openPacket
	if err := json.Unmarshal([]byte(packet[1:]), &open); err != nil {
		return fmt.Errorf("%w: bad open packet: %v", ErrHandshake, err)
	}
	if open.PingInterval > 0 {
		c.pingInterval = time.Duration(open.PingInterval) * time.Millisecond
	}
	if open.PingTimeout > 0 {
		c.pingTimeout = time.Duration(open.PingTimeout) * time.Millisecond
	}

	connect := string([]byte{engineMessage, socketConnect})
	if token != "" {
		auth, _ := json.Marshal(map[string]string{"token": token})
		connect += string(auth)
	}
	if err := c.write(connect); err != nil {
		return fmt.Errorf("sending connect: %w", err)
	}

	for {
		packet, err := c.read()
		if err != nil {
			return fmt.Errorf("awaiting connect ack: %w", err)
		}
		if len(packet) == 0 {
			continue
		}
		switch packet[0] {
		case enginePing:
			if err := c.write(string(enginePong)); err != nil {
				return err
			}
			continue
		case engineClose:
			return fmt.Errorf("%w: server closed during handshake", ErrHandshake)
		case engineMessage:
		default:
			continue
		}

		if len(packet) < 2 {
			continue
		}
		switch packet[1] {
		case socketConnect:
			var ack struct {
				SID string `json:"sid"`
			}
			if len(packet) > 2 {
				json.Unmarshal([]byte(packet[2:]), &ack)
			}
			c.sid = ack.SID
			log.Debug("realtime namespace connected", "sid", c.sid)
			return nil
		case socketConnectError:
			var refusal struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal([]byte(packet[2:]), &refusal); err != nil || refusal.Message == "" {
				refusal.Message = strings.TrimSpace(packet[2:])
			}
			return fmt.Errorf("%w: %s", ErrHandshake, refusal.Message)
		}
	}
}

func (c *socketConn) read() (string, error) {
	c.ws.SetReadDeadline(time.Now().Add(c.pingInterval + c.pingTimeout))
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return "", err
		}
		if kind == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (c *socketConn) write(packet string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(packet))
}

func (c *socketConn) Emit(name string, payload any) error {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return c.write(string([]byte{engineMessage, socketEvent}) + string(data))
}

func (c *socketConn) Next() (Message, error) {
	for {
		packet, err := c.read()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return Message{}, io.EOF
			}
			return Message{}, err
		}
		if len(packet) == 0 {
			continue
		}

		switch packet[0] {
		case enginePing:
			if err := c.write(string(enginePong)); err != nil {
				return Message{}, err
			}
			continue
		case engineClose:
			return Message{}, io.EOF
		case engineNoop:
			continue
		case engineMessage:
		default:
			continue
		}

		if len(packet) < 2 {
			continue
		}
		switch packet[1] {
		case socketEvent:
			msg, err := parseEvent(packet[2:])
			if err != nil {
				log.Warn("dropping malformed realtime frame", "error", err)
				continue
			}
			return msg, nil
		case socketDisconnect:
			return Message{}, io.EOF
		case socketConnectError:
			return Message{}, fmt.Errorf("%w: %s", ErrHandshake, packet[2:])
		}
	}
}

// parseEvent decodes `[ackID]["name",data]` from the default namespace
func parseEvent(body string) (Message, error) {
	if i := strings.IndexByte(body, '['); i > 0 {
		body = body[i:]
	}

	var args []json.RawMessage
	if err := json.Unmarshal([]byte(body), &args); err != nil {
		return Message{}, err
	}
	if len(args) == 0 {
		return Message{}, errors.New("empty event")
	}

	var msg Message
	if err := json.Unmarshal(args[0], &msg.Name); err != nil {
		return Message{}, fmt.Errorf("event name: %w", err)
	}
	if len(args) > 1 {
		msg.Data = args[1]
	}
	return msg, nil
}

// Close leaves the namespace and closes the socket
func (c *socketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.write(string([]byte{engineMessage, socketDisconnect}))
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
