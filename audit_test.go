package admsession

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/imoveisdeluxo/admsession/authapi"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func buildAuditTestConsole(t *testing.T, sink AuditSink, auth authapi.Authenticator) *Console {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	c, err := New().WithConfig(cfg).WithAuditSink(sink).WithAuthenticator(auth).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func collect(t *testing.T, events <-chan AuditEvent, n int) []AuditEvent {
	t.Helper()
	out := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-events:
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("expected %d audit events, got %d", n, len(out))
		}
	}
	return out
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	c, err := New().WithAuditSink(sink).WithAuthenticator(respondWith("abc", `{"type":"adm"}`)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	c.Start(context.Background())
	if _, err := c.SignIn(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	c.SignOut(context.Background())
	_ = c.Close()

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no audit events when disabled, got %d", got)
	}
}

func TestAuditSignInLifecycle(t *testing.T) {
	sink := NewChannelSink(32)
	c := buildAuditTestConsole(t, sink, respondWith("abc", `{"type":"adm","id":1,"email":"a@b.com"}`))
	c.Start(context.Background())

	if _, err := c.SignIn(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	c.SignOut(context.Background())

	events := collect(t, sink.Events(), 2)
	if events[0].EventType != AuditSignInSuccess || !events[0].Success || events[0].UserID != "1" || events[0].Role != "adm" {
		t.Fatalf("unexpected sign-in event %+v", events[0])
	}
	if events[1].EventType != AuditSignOut || events[1].UserID != "1" {
		t.Fatalf("unexpected sign-out event %+v", events[1])
	}
}

func TestAuditDeniedSignIn(t *testing.T) {
	sink := NewChannelSink(32)
	c := buildAuditTestConsole(t, sink, respondWith("abc", `{"type":"user","id":9}`))
	c.Start(context.Background())

	_, _ = c.SignIn(context.Background(), "a@b.com", "secret")

	ev := collect(t, sink.Events(), 1)[0]
	if ev.EventType != AuditSignInDenied || ev.Success || ev.Role != "user" || ev.Email != "a@b.com" {
		t.Fatalf("unexpected denial event %+v", ev)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, zerolog.Nop())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, zerolog.Nop())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: AuditSignInSuccess,
		UserID:    "u1",
		Success:   true,
	})

	if !buf.Contains("sign_in_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains(`"user_id":"u1"`) {
		t.Fatal("expected JSON log line to contain user id")
	}
}

func TestAuditLogSinkWritesStructuredLine(t *testing.T) {
	var buf syncBuffer
	sink := NewLogSink(zerolog.New(&buf))
	sink.Emit(context.Background(), AuditEvent{
		EventType: AuditSignInDenied,
		Role:      "user",
		Error:     AuditSignInDenied,
	})

	if !buf.Contains(`"level":"warn"`) || !buf.Contains(`"audit":"sign_in_denied"`) || !buf.Contains(`"role":"user"`) {
		t.Fatalf("unexpected log line %s", buf.String())
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{}, zerolog.Nop())

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	const password = "correct-password-123"
	const token = "eyJ.secret.token"

	sink := NewChannelSink(32)
	var logs syncBuffer
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	c, err := New().
		WithConfig(cfg).
		WithAuditSink(sink).
		WithLogger(zerolog.New(&logs)).
		WithAuthenticator(respondWith(token, `{"type":"adm","id":1}`)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()
	c.Start(context.Background())

	if _, err := c.SignIn(context.Background(), "a@b.com", password); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	_, _ = c.SignIn(context.Background(), "a@b.com", "short")
	c.SignOut(context.Background())

	var all bytes.Buffer
	for _, ev := range collect(t, sink.Events(), 3) {
		all.WriteString(ev.Error)
		for k, v := range ev.Metadata {
			all.WriteString(k + v)
		}
		all.WriteString(ev.Email + ev.UserID)
	}
	all.WriteString(logs.String())

	for _, needle := range []string{password, token} {
		if bytes.Contains(all.Bytes(), []byte(needle)) {
			t.Fatalf("sensitive value leaked: %q", needle)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	return bytes.Contains([]byte(b.String()), []byte(v))
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

type panicSink struct {
	countingSink
}

func (s *panicSink) Emit(ctx context.Context, event AuditEvent) {
	s.countingSink.Emit(ctx, event)
	if event.EventType == "boom" {
		panic("sink failure")
	}
}

func TestAuditDispatcherSurvivesPanickingSink(t *testing.T) {
	var logs syncBuffer
	sink := &panicSink{}
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink, zerolog.New(&logs))

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "boom"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: AuditSignOut})
	dispatcher.Close()

	if got := sink.count.Load(); got != 2 {
		t.Fatalf("expected both events delivered, got %d", got)
	}
	if !logs.Contains("audit sink panicked") {
		t.Fatalf("expected panic to be logged, got %s", logs.String())
	}
}

func TestAuditDispatcherLogsDrops(t *testing.T) {
	var logs syncBuffer
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, zerolog.New(&logs))
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	for i := 0; i < 5; i++ {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: AuditSignInFailure})
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected drops")
	}
	if !logs.Contains("audit queue full") {
		t.Fatalf("expected drop warning, got %s", logs.String())
	}
}
