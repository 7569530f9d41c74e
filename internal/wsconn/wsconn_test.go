package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/swap-router/internal/apperror"
)

// unreachable has nothing listening on it.
const unreachable = "ws://127.0.0.1:1"

// serve starts a websocket server running handler per connection and returns
// its ws:// URL.
func serve(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		handler(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// connect dials url with pings off, after applying tweak.
func connect(t *testing.T, url string, tweak func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	if tweak != nil {
		tweak(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}

func drain(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{Name: "x"}); apperror.GetCode(err) != apperror.CodeConfigurationError {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestConnect_StateSequence(t *testing.T) {
	url := serve(t, drain)

	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	var mu sync.Mutex
	var states []State
	c.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("state = %s", c.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Errorf("states = %v, want [connecting connected ...]", states)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	c, _ := New(DefaultConfig(unreachable, "test"))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	if apperror.GetCode(err) != apperror.CodeWebSocketConnectionError {
		t.Fatalf("expected WEBSOCKET_CONNECTION_ERROR, got %v", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", c.State())
	}
}

func TestSubscribeRoundTrip(t *testing.T) {
	// answers a signatureSubscribe with a subscription id, then a notification
	url := serve(t, func(ctx context.Context, conn *websocket.Conn) {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
		}
		if json.Unmarshal(data, &req) != nil || req.Method != "signatureSubscribe" {
			return
		}
		conn.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","result":7,"id":1}`))
		conn.Write(ctx, websocket.MessageText, []byte(`{"jsonrpc":"2.0","method":"signatureNotification","params":{"subscription":7}}`))
		drain(ctx, conn)
	})

	got := make(chan string, 2)
	c := connect(t, url, nil)
	c.OnMessage(func(_ context.Context, msg []byte) { got <- string(msg) })

	err := c.SendJSON(context.Background(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "signatureSubscribe",
		"params":  []any{"5sig", map[string]string{"commitment": "confirmed"}},
	})
	if err != nil {
		t.Fatalf("SendJSON: %v", err)
	}

	for _, want := range []string{`"result":7`, `"signatureNotification"`} {
		select {
		case msg := <-got:
			if !strings.Contains(msg, want) {
				t.Errorf("message %s does not contain %s", msg, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestSend_ConcurrentWritesAreSerialized(t *testing.T) {
	var received atomic.Int32
	url := serve(t, func(ctx context.Context, conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
			received.Add(1)
		}
	})
	c := connect(t, url, nil)

	const senders, each = 8, 6
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				if err := c.SendJSON(context.Background(), map[string]int{"sender": i, "n": j}); err != nil {
					t.Errorf("SendJSON: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for received.Load() < senders*each && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := received.Load(); got != senders*each {
		t.Errorf("server received %d frames, want %d", got, senders*each)
	}
}

func TestOversizedFrameDropsConnection(t *testing.T) {
	url := serve(t, func(ctx context.Context, conn *websocket.Conn) {
		conn.Write(ctx, websocket.MessageText, []byte(strings.Repeat("A", 4096)))
		drain(ctx, conn)
	})

	dropped := make(chan error, 1)
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	cfg.MaxMessageSize = 100
	c, _ := New(cfg)
	defer c.Close()
	c.OnStateChange(func(s State, err error) {
		if s == StateDisconnected {
			select {
			case dropped <- err:
			default:
			}
		}
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case err := <-dropped:
		if apperror.GetCode(err) != apperror.CodeWebSocketClosed {
			t.Errorf("expected WEBSOCKET_CLOSED cause, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not dropped")
	}
	if err := c.Send(context.Background(), []byte("x")); apperror.GetCode(err) != apperror.CodeWebSocketSendError {
		t.Errorf("expected WEBSOCKET_SEND_ERROR after drop, got %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	c := connect(t, serve(t, drain), nil)

	for i := 0; i < 2; i++ {
		if err := c.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}
	if c.State() != StateClosed {
		t.Errorf("state = %s, want closed", c.State())
	}
	if err := c.Connect(context.Background()); apperror.GetCode(err) != apperror.CodeWebSocketClosed {
		t.Errorf("expected WEBSOCKET_CLOSED after Close, got %v", err)
	}
}

func TestConnectWithRetry(t *testing.T) {
	tests := []struct {
		name          string
		maxReconnects int
		wantWaits     int
	}{
		{"three attempts", 3, 2},
		{"single attempt", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(unreachable, "test")
			cfg.InitialBackoff = 5 * time.Millisecond
			cfg.MaxReconnects = tt.maxReconnects
			c, _ := New(cfg)
			defer c.Close()

			var waits atomic.Int32
			c.OnStateChange(func(s State, _ error) {
				if s == StateReconnecting {
					waits.Add(1)
				}
			})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.ConnectWithRetry(ctx); err == nil {
				t.Fatal("expected failure")
			}
			if got := int(waits.Load()); got != tt.wantWaits {
				t.Errorf("reconnect waits = %d, want %d", got, tt.wantWaits)
			}
		})
	}
}

func TestConnectWithRetry_ContextCancelled(t *testing.T) {
	cfg := DefaultConfig(unreachable, "test")
	cfg.InitialBackoff = time.Hour
	c, _ := New(cfg)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.ConnectWithRetry(ctx)
	if apperror.GetCode(err) != apperror.CodeWebSocketConnectionError {
		t.Errorf("expected WEBSOCKET_CONNECTION_ERROR, got %v", err)
	}
}
