package solana

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/fd1az/swap-router/business/blockchain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/wsconn"
)

// DefaultWSURL is the public mainnet PubSub endpoint.
const DefaultWSURL = "wss://api.mainnet-beta.solana.com"

type wsMessage struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Err json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

type outcome struct {
	status *domain.SignatureStatus
	err    error
}

type waiter struct {
	signature string
	done      chan outcome
}

func (w *waiter) resolve(o outcome) {
	select {
	case w.done <- o:
	default:
	}
}

// Watcher waits for signatures through signatureSubscribe. A single
// connection is shared by all waits and dialed on first use.
type Watcher struct {
	cfg    wsconn.Config
	logger logger.LoggerInterface

	connMu sync.Mutex
	conn   *wsconn.Client

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[int64]*waiter // by request id
	subs    map[int64]*waiter // by subscription id
}

// NewWatcher creates a watcher for the PubSub endpoint url.
func NewWatcher(url string, maxReconnects int, log logger.LoggerInterface) *Watcher {
	if url == "" {
		url = DefaultWSURL
	}
	cfg := wsconn.DefaultConfig(url, "solana-ws")
	cfg.MaxReconnects = maxReconnects

	return &Watcher{
		cfg:     cfg,
		logger:  log,
		pending: make(map[int64]*waiter),
		subs:    make(map[int64]*waiter),
	}
}

// Wait blocks until signature reaches commitment, ctx is done or the
// connection drops. A transaction that landed with an error is returned as a
// status with Err set, not as an error.
func (w *Watcher) Wait(ctx context.Context, signature string, commitment domain.Commitment) (*domain.SignatureStatus, error) {
	conn, err := w.connection(ctx)
	if err != nil {
		return nil, err
	}

	id := w.nextID.Add(1)
	wt := &waiter{signature: signature, done: make(chan outcome, 1)}

	w.mu.Lock()
	w.pending[id] = wt
	w.mu.Unlock()

	defer w.forget(ctx, id, wt)

	err = conn.SendJSON(ctx, rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "signatureSubscribe",
		Params:  []any{signature, map[string]any{"commitment": commitment}},
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, apperror.New(apperror.CodeServiceTimeout,
			apperror.WithCause(ctx.Err()),
			apperror.WithContext("signature "+signature))
	case o := <-wt.done:
		if o.status != nil {
			o.status.ConfirmationStatus = commitment
		}
		return o.status, o.err
	}
}

func (w *Watcher) connection(ctx context.Context) (*wsconn.Client, error) {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	if w.conn != nil && w.conn.IsConnected() {
		return w.conn, nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}

	conn, err := wsconn.New(w.cfg)
	if err != nil {
		return nil, err
	}
	conn.OnMessage(w.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if state == wsconn.StateDisconnected && err != nil {
			w.failAll(err)
		}
	})

	if err := conn.ConnectWithRetry(ctx); err != nil {
		return nil, err
	}
	w.conn = conn
	return conn, nil
}

func (w *Watcher) handleMessage(ctx context.Context, data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		w.logger.Debug(ctx, "unparseable pubsub message", "error", err)
		return
	}

	switch {
	case msg.ID != nil:
		w.mu.Lock()
		wt, ok := w.pending[*msg.ID]
		if ok && msg.Error == nil {
			var sub int64
			if err := json.Unmarshal(msg.Result, &sub); err == nil {
				w.subs[sub] = wt
			}
		}
		w.mu.Unlock()

		if ok && msg.Error != nil {
			wt.resolve(outcome{err: apperror.New(apperror.CodeSolanaRPCError,
				apperror.WithMessage(msg.Error.Message),
				apperror.WithContext("signatureSubscribe"))})
		}

	case msg.Method == "signatureNotification" && msg.Params != nil:
		w.mu.Lock()
		wt, ok := w.subs[msg.Params.Subscription]
		// the server drops the subscription after one notification
		delete(w.subs, msg.Params.Subscription)
		w.mu.Unlock()

		if ok {
			wt.resolve(outcome{status: &domain.SignatureStatus{
				Slot: msg.Params.Result.Context.Slot,
				Err:  msg.Params.Result.Value.Err,
			}})
		}
	}
}

// forget drops the waiter and unsubscribes when a notification never came.
func (w *Watcher) forget(ctx context.Context, id int64, wt *waiter) {
	w.mu.Lock()
	delete(w.pending, id)
	var sub int64 = -1
	for s, v := range w.subs {
		if v == wt {
			sub = s
			delete(w.subs, s)
		}
	}
	w.mu.Unlock()

	if sub < 0 {
		return
	}
	w.connMu.Lock()
	conn := w.conn
	w.connMu.Unlock()
	if conn != nil && conn.IsConnected() {
		_ = conn.SendJSON(context.WithoutCancel(ctx), rpcRequest{
			JSONRPC: "2.0",
			ID:      w.nextID.Add(1),
			Method:  "signatureUnsubscribe",
			Params:  []any{sub},
		})
	}
}

func (w *Watcher) failAll(cause error) {
	w.mu.Lock()
	waiters := make([]*waiter, 0, len(w.pending))
	for _, wt := range w.pending {
		waiters = append(waiters, wt)
	}
	w.mu.Unlock()

	for _, wt := range waiters {
		wt.resolve(outcome{err: cause})
	}
}

// Close drops the shared connection.
func (w *Watcher) Close() error {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
