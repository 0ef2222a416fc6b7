package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	in     chan Message
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	emitted []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan Message, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) Emit(name string, payload any) error {
	select {
	case <-f.closed:
		return errors.New("use of closed connection")
	default:
	}
	f.mu.Lock()
	f.emitted = append(f.emitted, name)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Next() (Message, error) {
	select {
	case m, ok := <-f.in:
		if !ok {
			return Message{}, io.EOF
		}
		return m, nil
	case <-f.closed:
		return Message{}, io.EOF
	}
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.emitted {
		if e == name {
			n++
		}
	}
	return n
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
	err   error
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) > 0 {
		c := d.conns[0]
		d.conns = d.conns[1:]
		return c, nil
	}
	if d.err != nil {
		return nil, d.err
	}
	return nil, errors.New("connection refused")
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	states []State
	panics bool
}

func (r *recorder) HandleEvent(ctx context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	panics := r.panics
	r.mu.Unlock()
	if _, ok := ev.(ScanError); ok && panics {
		panic("handler failure")
	}
}

func (r *recorder) ConnectionChanged(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) lastState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return -1
	}
	return r.states[len(r.states)-1]
}

type delays struct {
	mu  sync.Mutex
	got []time.Duration
}

func (d *delays) wait(ctx context.Context, delay time.Duration) error {
	d.mu.Lock()
	d.got = append(d.got, delay)
	d.mu.Unlock()
	return ctx.Err()
}

func (d *delays) list() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.got...)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func runAsync(c *Client, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func TestClient_ReconnectExhaustion(t *testing.T) {
	dialer := &fakeDialer{}
	rec := &recorder{}
	d := &delays{}

	c := New(dialer, rec, Options{BaseDelay: time.Second, MaxAttempts: 5})
	c.wait = d.wait

	err := c.Run(context.Background())
	if !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("Expected ErrReconnectExhausted, got %v", err)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	got := d.list()
	if len(got) != len(want) {
		t.Fatalf("Expected %d delays, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Delay %d: expected %v, got %v", i+1, want[i], got[i])
		}
	}
	if dialer.dialCount() != 6 {
		t.Errorf("Expected 6 dials (initial + 5 retries), got %d", dialer.dialCount())
	}
	if c.State() != StateError {
		t.Errorf("Expected error state, got %s", c.State())
	}
	if rec.lastState() != StateError {
		t.Errorf("Expected handler to see error state, got %s", rec.lastState())
	}
}

func TestClient_BackoffResetsOnConnect(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	close(first.in)
	dialer := &fakeDialer{conns: []*fakeConn{first, second}}
	d := &delays{}

	c := New(dialer, &recorder{}, Options{BaseDelay: time.Second, MaxAttempts: 3})
	c.wait = d.wait
	done := runAsync(c, context.Background())

	eventually(t, "second connection", func() bool { return second.count(EmitRequestDeviceStatus) == 1 })
	close(second.in)

	select {
	case err := <-done:
		if !errors.Is(err, ErrReconnectExhausted) {
			t.Fatalf("Expected ErrReconnectExhausted, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	want := []time.Duration{time.Second, time.Second, 2 * time.Second, 4 * time.Second}
	got := d.list()
	if len(got) != len(want) {
		t.Fatalf("Expected delays %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Delay %d: expected %v, got %v", i+1, want[i], got[i])
		}
	}
}

func TestClient_DisconnectStopsEverything(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	rec := &recorder{}

	c := New(dialer, rec, Options{HeartbeatInterval: 10 * time.Millisecond})
	done := runAsync(c, context.Background())

	eventually(t, "connected", func() bool { return c.State() == StateConnected })
	if conn.count(EmitRequestDeviceStatus) != 1 {
		t.Errorf("Expected one request_device_status, got %d", conn.count(EmitRequestDeviceStatus))
	}
	eventually(t, "heartbeat", func() bool { return conn.count(EmitPing) >= 2 })

	c.Disconnect()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected nil error after Disconnect, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Disconnect")
	}

	if !conn.isClosed() {
		t.Error("Expected connection to be closed")
	}
	pings := conn.count(EmitPing)
	time.Sleep(50 * time.Millisecond)
	if conn.count(EmitPing) != pings {
		t.Error("Expected heartbeat to stop after Disconnect")
	}
	if dialer.dialCount() != 1 {
		t.Errorf("Expected no reconnect after Disconnect, got %d dials", dialer.dialCount())
	}
	if err := c.Emit("anything", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected after Disconnect, got %v", err)
	}
}

func TestClient_DisconnectDuringReconnectWait(t *testing.T) {
	dialer := &fakeDialer{}
	c := New(dialer, &recorder{}, Options{BaseDelay: time.Hour})
	done := runAsync(c, context.Background())

	eventually(t, "first dial", func() bool { return dialer.dialCount() == 1 })
	c.Disconnect()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending reconnect was not cancelled")
	}
	if dialer.dialCount() != 1 {
		t.Errorf("Expected 1 dial, got %d", dialer.dialCount())
	}
}

func TestClient_DispatchesEventsInOrder(t *testing.T) {
	conn := newFakeConn()
	conn.in <- Message{Name: "totally_unknown", Data: []byte(`{}`)}
	conn.in <- Message{Name: EventScanProgress, Data: []byte(`{"progress": "half"}`)}
	conn.in <- Message{Name: EventScanStarted}
	conn.in <- Message{Name: EventScanError, Data: []byte(`{"message":"boom"}`)}
	conn.in <- Message{Name: EventScanProgress, Data: []byte(`{"progress": 40}`)}
	conn.in <- Message{Name: EventScanComplete, Data: []byte(`{"devices_found": 7}`)}

	rec := &recorder{panics: true}
	c := New(&fakeDialer{conns: []*fakeConn{conn}}, rec, Options{})
	done := runAsync(c, context.Background())

	eventually(t, "events", func() bool { return rec.eventCount() == 4 })
	c.Disconnect()
	<-done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, ok := rec.events[0].(ScanStarted); !ok {
		t.Errorf("Expected ScanStarted first, got %T", rec.events[0])
	}
	if _, ok := rec.events[1].(ScanError); !ok {
		t.Errorf("Expected ScanError second, got %T", rec.events[1])
	}
	if p, ok := rec.events[2].(ScanProgress); !ok || p.Progress != 40 {
		t.Errorf("Expected ScanProgress 40 third, got %#v", rec.events[2])
	}
	if sc, ok := rec.events[3].(ScanCompleted); !ok || sc.DevicesFound != 7 {
		t.Errorf("Expected ScanCompleted with 7 devices, got %#v", rec.events[3])
	}
}

type fakeFallback struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeFallback) TriggerScan(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return "Network scan started", nil
}

func TestClient_RequestScan(t *testing.T) {
	fallback := &fakeFallback{}
	conn := newFakeConn()
	c := New(&fakeDialer{conns: []*fakeConn{conn}}, &recorder{}, Options{Fallback: fallback})

	used, err := c.RequestScan(context.Background())
	if err != nil {
		t.Fatalf("Expected fallback scan to succeed, got %v", err)
	}
	if !used || fallback.calls != 1 {
		t.Errorf("Expected HTTP fallback while disconnected, used=%v calls=%d", used, fallback.calls)
	}

	done := runAsync(c, context.Background())
	eventually(t, "connected", func() bool { return c.State() == StateConnected })

	used, err = c.RequestScan(context.Background())
	if err != nil || used {
		t.Errorf("Expected realtime scan request, used=%v err=%v", used, err)
	}
	if conn.count(EmitStartNetworkScan) != 1 {
		t.Errorf("Expected start_network_scan emitted once, got %d", conn.count(EmitStartNetworkScan))
	}
	if fallback.calls != 1 {
		t.Errorf("Expected fallback untouched while connected, got %d calls", fallback.calls)
	}

	c.Disconnect()
	<-done
}

func TestClient_RequestScanWithoutFallback(t *testing.T) {
	c := New(&fakeDialer{}, &recorder{}, Options{})
	if _, err := c.RequestScan(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestClient_ContextCancel(t *testing.T) {
	conn := newFakeConn()
	c := New(&fakeDialer{conns: []*fakeConn{conn}}, &recorder{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(c, ctx)

	eventually(t, "connected", func() bool { return c.State() == StateConnected })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
	if !conn.isClosed() {
		t.Error("Expected connection closed on cancel")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateDisconnected: "disconnected",
		StateError:        "error",
		State(42):         "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("Expected %s, got %s", want, s.String())
		}
	}
}
