package reconnect

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/rps-client/internal/bus"
	"github.com/rickgao/rps-client/internal/protocol"
)

type fakeConnector struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	err         error
	onConnect   func()
}

func (f *fakeConnector) Connect(ctx context.Context, host string, port int) error {
	f.mu.Lock()
	f.connects++
	err := f.err
	hook := f.onConnect
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeConnector) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakeConnector) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeSender struct {
	mu     sync.Mutex
	tokens []string
}

func (f *fakeSender) SendReconnect(token string) error {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

type harness struct {
	o      *Orchestrator
	bus    *protocol.Bus
	conn   *fakeConnector
	sender *fakeSender

	reconnected atomic.Int32
	failed      atomic.Int32
	session     atomic.Pointer[protocol.ResumedSession]
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		bus:    bus.New[protocol.Event](bus.DefaultConfig(), nil),
		conn:   &fakeConnector{},
		sender: &fakeSender{},
	}
	h.o = New(cfg, h.conn, h.sender, h.bus, nil)
	h.o.OnReconnected(func(s protocol.ResumedSession) {
		h.session.Store(&s)
		h.reconnected.Add(1)
	})
	h.o.OnFailed(func() { h.failed.Add(1) })
	if err := h.o.SetConnectionInfo("127.0.0.1", 4000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.o.Shutdown)
	return h
}

func (h *harness) publish(t *testing.T, raw string) {
	t.Helper()
	ev, err := protocol.ParseLine(raw, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	h.bus.Publish(ev)
}

func waitFor(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:               "idle",
		StateAutoReconnecting:   "auto",
		StateManualReconnecting: "manual",
		State(9):                "State(9)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int32(s), s.String(), want)
		}
	}
}

func TestOrchestrator_RequiresConnectionInfo(t *testing.T) {
	o := New(DefaultConfig(), &fakeConnector{}, &fakeSender{}, bus.New[protocol.Event](bus.DefaultConfig(), nil), nil)
	defer o.Shutdown()

	if err := o.StartAutoReconnect("tok"); !errors.Is(err, ErrIllegalState) {
		t.Errorf("StartAutoReconnect error = %v, want ErrIllegalState", err)
	}
	if err := o.ManualReconnect(context.Background(), "tok"); !errors.Is(err, ErrIllegalState) {
		t.Errorf("ManualReconnect error = %v, want ErrIllegalState", err)
	}
	if o.State() != StateIdle {
		t.Errorf("State() = %v", o.State())
	}
}

func TestOrchestrator_InvalidArguments(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	if err := h.o.SetConnectionInfo("", 4000); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank host error = %v", err)
	}
	if err := h.o.SetConnectionInfo("host", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad port error = %v", err)
	}
	if err := h.o.StartAutoReconnect(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty token error = %v", err)
	}
	if err := h.o.ManualReconnect(context.Background(), "a b"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("token with space error = %v", err)
	}
}

func TestOrchestrator_AutoFirstAttemptImmediate(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Hour, Window: time.Hour})

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	if h.o.State() != StateAutoReconnecting {
		t.Errorf("State() = %v, want auto", h.o.State())
	}

	waitFor(t, time.Second, "first RECONNECT", func() bool { return h.sender.count() == 1 })
	if h.o.Token() != "tok" {
		t.Errorf("Token() = %q", h.o.Token())
	}

	h.conn.mu.Lock()
	defer h.conn.mu.Unlock()
	if h.conn.disconnects != 1 || h.conn.connects != 1 {
		t.Errorf("disconnects=%d connects=%d, want 1 each", h.conn.disconnects, h.conn.connects)
	}
}

func TestOrchestrator_DoubleStartRunsOneLoop(t *testing.T) {
	h := newHarness(t, Config{Interval: 50 * time.Millisecond, Window: time.Hour})
	h.conn.setErr(errors.New("refused"))

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(180 * time.Millisecond)
	h.o.AbortAutoReconnect()

	// One loop makes at most four attempts in 180ms at a 50ms interval.
	if n := h.o.Attempts(); n < 1 || n > 5 {
		t.Errorf("Attempts() = %d, want a single loop's worth", n)
	}
	if h.o.State() != StateIdle {
		t.Errorf("State() = %v after abort", h.o.State())
	}
}

func TestOrchestrator_WindowExpiryFailsOnce(t *testing.T) {
	h := newHarness(t, Config{Interval: 10 * time.Millisecond, Window: 60 * time.Millisecond})
	h.conn.setErr(errors.New("refused"))

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, "failure callback", func() bool { return h.failed.Load() == 1 })
	time.Sleep(50 * time.Millisecond)

	if h.failed.Load() != 1 {
		t.Errorf("failed = %d, want 1", h.failed.Load())
	}
	if h.reconnected.Load() != 0 {
		t.Errorf("reconnected = %d, want 0", h.reconnected.Load())
	}
	if h.o.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.o.State())
	}
	if h.o.Attempts() < 2 {
		t.Errorf("Attempts() = %d, want retries within the window", h.o.Attempts())
	}
}

func TestOrchestrator_ReconnectOKStopsLoop(t *testing.T) {
	h := newHarness(t, Config{Interval: 10 * time.Millisecond, Window: time.Hour})

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first attempt", func() bool { return h.sender.count() >= 1 })

	h.publish(t, "RECONNECT_OK GAME 2 1 3 X")

	if h.o.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.o.State())
	}
	if h.reconnected.Load() != 1 {
		t.Fatalf("reconnected = %d, want 1", h.reconnected.Load())
	}
	s := h.session.Load()
	if s.Kind != protocol.ResumeGame || s.Score1 != 2 || s.Round != 3 || s.MoveSent {
		t.Errorf("session = %+v", *s)
	}

	sent := h.sender.count()
	time.Sleep(60 * time.Millisecond)
	if h.sender.count() != sent {
		t.Errorf("attempts continued after RECONNECT_OK: %d -> %d", sent, h.sender.count())
	}
	if h.failed.Load() != 0 {
		t.Errorf("failed = %d, want 0", h.failed.Load())
	}
}

func TestOrchestrator_InvalidTokenDuringAuto(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Hour, Window: time.Hour})

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "first attempt", func() bool { return h.sender.count() == 1 })

	h.publish(t, "ERR 110 INVALID_TOKEN")

	if h.o.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.o.State())
	}
	if h.failed.Load() != 1 {
		t.Errorf("failed = %d, want 1", h.failed.Load())
	}
}

func TestOrchestrator_OtherErrorsIgnored(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Hour, Window: time.Hour})

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	h.publish(t, "ERR 104 UNKNOWN_ROOM")

	if h.o.State() != StateAutoReconnecting {
		t.Errorf("State() = %v, want auto", h.o.State())
	}
	if h.failed.Load() != 0 {
		t.Errorf("failed = %d, want 0", h.failed.Load())
	}
}

func TestOrchestrator_ManualReconnect(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Hour, Window: time.Hour})

	if err := h.o.ManualReconnect(context.Background(), "tok"); err != nil {
		t.Fatalf("ManualReconnect failed: %v", err)
	}
	if h.o.State() != StateManualReconnecting {
		t.Errorf("State() = %v, want manual", h.o.State())
	}
	if h.sender.count() != 1 {
		t.Errorf("sent %d RECONNECT lines, want 1", h.sender.count())
	}

	// A rejected token in manual mode returns to idle without the
	// failure callback.
	h.publish(t, "ERR 110 INVALID_TOKEN")
	if h.o.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.o.State())
	}
	if h.failed.Load() != 0 {
		t.Errorf("failed = %d, want 0 for manual", h.failed.Load())
	}
}

func TestOrchestrator_ManualReconnectError(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Hour, Window: time.Hour})
	dialErr := errors.New("refused")
	h.conn.setErr(dialErr)

	err := h.o.ManualReconnect(context.Background(), "tok")
	if !errors.Is(err, dialErr) {
		t.Errorf("error = %v, want dial error", err)
	}
	if h.o.State() != StateIdle {
		t.Errorf("State() = %v, want idle after failed manual attempt", h.o.State())
	}
	if h.sender.count() != 0 {
		t.Error("RECONNECT sent despite connect failure")
	}
}

func TestOrchestrator_ManualCancelsAuto(t *testing.T) {
	h := newHarness(t, Config{Interval: 10 * time.Millisecond, Window: time.Hour})
	h.conn.setErr(errors.New("refused"))

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "auto attempts", func() bool { return h.o.Attempts() >= 2 })

	h.conn.setErr(nil)
	if err := h.o.ManualReconnect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	if h.o.State() != StateManualReconnecting {
		t.Errorf("State() = %v, want manual", h.o.State())
	}

	sent := h.sender.count()
	time.Sleep(60 * time.Millisecond)
	if h.sender.count() != sent {
		t.Errorf("auto loop still running after manual reconnect")
	}
}

func TestOrchestrator_AbortSkipsCallbacks(t *testing.T) {
	h := newHarness(t, Config{Interval: 10 * time.Millisecond, Window: 50 * time.Millisecond})
	h.conn.setErr(errors.New("refused"))

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	h.o.AbortAutoReconnect()
	h.o.AbortAutoReconnect()

	time.Sleep(120 * time.Millisecond)
	if h.failed.Load() != 0 || h.reconnected.Load() != 0 {
		t.Errorf("callbacks fired after abort: failed=%d reconnected=%d", h.failed.Load(), h.reconnected.Load())
	}
	if h.o.State() != StateIdle {
		t.Errorf("State() = %v", h.o.State())
	}
}

func TestOrchestrator_Shutdown(t *testing.T) {
	h := newHarness(t, Config{Interval: 10 * time.Millisecond, Window: time.Hour})

	h.o.Shutdown()
	if err := h.o.StartAutoReconnect("tok"); !errors.Is(err, ErrIllegalState) {
		t.Errorf("StartAutoReconnect after Shutdown error = %v", err)
	}

	h.publish(t, "RECONNECT_OK LOBBY")
	if h.reconnected.Load() != 0 {
		t.Error("success callback fired after Shutdown")
	}
}

func TestOrchestrator_ConnectionLostEndsManual(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Hour, Window: time.Hour})

	if h.o.ConnectionLost() {
		t.Error("ConnectionLost() = true while idle")
	}

	if err := h.o.ManualReconnect(context.Background(), "tok"); err != nil {
		t.Fatalf("ManualReconnect failed: %v", err)
	}
	// The server answers a stale token with a non-token error and hangs up.
	h.publish(t, "ERR 110 cannot_reconnect_now")
	if h.o.State() != StateManualReconnecting {
		t.Fatalf("State() = %v, want manual until the connection drops", h.o.State())
	}

	if !h.o.ConnectionLost() {
		t.Error("ConnectionLost() = false with a manual attempt pending")
	}
	if h.o.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.o.State())
	}
	if h.o.ConnectionLost() {
		t.Error("second ConnectionLost() = true")
	}
	if h.failed.Load() != 0 {
		t.Errorf("failed = %d, want 0", h.failed.Load())
	}
}

func TestOrchestrator_ConnectionLostLeavesAuto(t *testing.T) {
	h := newHarness(t, Config{Interval: time.Hour, Window: time.Hour})

	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	if h.o.ConnectionLost() {
		t.Error("ConnectionLost() = true during auto reconnect")
	}
	if h.o.State() != StateAutoReconnecting {
		t.Errorf("State() = %v, want auto", h.o.State())
	}
}

func TestOrchestrator_SetToken(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	if h.o.Token() != "" {
		t.Fatalf("Token() = %q before any token", h.o.Token())
	}
	if err := h.o.SetToken("abc123"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if h.o.Token() != "abc123" {
		t.Errorf("Token() = %q, want abc123", h.o.Token())
	}

	for _, bad := range []string{"", " ", "a b"} {
		if err := h.o.SetToken(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetToken(%q) error = %v, want ErrInvalidArgument", bad, err)
		}
	}
	if h.o.Token() != "abc123" {
		t.Errorf("Token() = %q after rejected tokens", h.o.Token())
	}
}

func TestOrchestrator_ZeroConfigUsesDefaults(t *testing.T) {
	h := newHarness(t, Config{})

	if h.o.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want %+v", h.o.cfg, DefaultConfig())
	}
	if err := h.o.StartAutoReconnect("tok"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, "first attempt", func() bool { return h.sender.count() == 1 })
	h.o.AbortAutoReconnect()
}
