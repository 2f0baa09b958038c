package clearnode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"splitchain/internal/domain/entity"
	"splitchain/pkg/logger"
)

const (
	handshakeTimeout = 15 * time.Second

	// reconnect backoff: attempt n sleeps n*reconnectDelay.
	reconnectDelay       = 2 * time.Second
	maxReconnectAttempts = 5

	stateRequestTimeout = 5 * time.Second
)

// ErrNotConnected is returned by every operation attempted before Connect
// or after Close. Mirroring is best-effort: callers log this and move on.
var ErrNotConnected = errors.New("clearnode: not connected")

// Config holds the clearnode endpoint settings.
type Config struct {
	WSURL   string
	Network string // "mainnet" or "sandbox"
}

// Client is the state-channel network connection for low-latency mirroring
// of expense and payment events. It is constructed explicitly and its
// Connect/Close lifecycle belongs to the composition root; nothing connects
// as an import side effect. Signatures supplied by callers are forwarded
// verbatim, never inspected.
type Client struct {
	cfg Config

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	attempts  int

	handlerMu sync.Mutex
	handlers  map[string]func(messageEnvelope)
}

type messageEnvelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	State     json.RawMessage `json:"state"`
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		handlers: make(map[string]func(messageEnvelope)),
	}
}

// Connect dials the clearnode and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrNotConnected
	}
	if c.connected {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.WSURL, nil)
	if err != nil {
		return fmt.Errorf("clearnode: connect: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.attempts = 0
	logger.Info("Connected to clearnode: %s (%s)", c.cfg.WSURL, c.cfg.Network)

	go c.readLoop(conn)
	return nil
}

// Close shuts the connection down for good; no reconnect is attempted.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.connected = false
			c.mu.Unlock()

			if !closed {
				logger.Warn("Clearnode connection lost: %v", err)
				c.attemptReconnect()
			}
			return
		}

		var envelope messageEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			logger.Debug("Clearnode sent non-JSON payload, ignoring")
			continue
		}

		c.handlerMu.Lock()
		for _, handler := range c.handlers {
			handler(envelope)
		}
		c.handlerMu.Unlock()
	}
}

func (c *Client) attemptReconnect() {
	c.mu.Lock()
	if c.closed || c.attempts >= maxReconnectAttempts {
		if c.attempts >= maxReconnectAttempts {
			logger.Error("Clearnode: max reconnection attempts reached")
		}
		c.mu.Unlock()
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	logger.Info("Reconnecting to clearnode, attempt %d/%d", attempt, maxReconnectAttempts)
	time.Sleep(time.Duration(attempt) * reconnectDelay)

	if err := c.Connect(context.Background()); err != nil {
		logger.Warn("Clearnode reconnection failed: %v", err)
		c.attemptReconnect()
	}
}

func (c *Client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(v)
}

// CreateSession opens a state channel for a group and returns the session
// id (the channel protocol name). The creator locks the initial amount;
// other participants join with zero.
func (c *Client) CreateSession(ctx context.Context, groupName, creator string, participants []string, signature string) (string, error) {
	all := append([]string{creator}, participants...)
	weights := make([]float64, len(all))
	for i := range weights {
		weights[i] = 100 / float64(len(all))
	}

	definition := AppDefinition{
		Protocol:     fmt.Sprintf("splitchain-%s-v1", groupName),
		Participants: all,
		Weights:      weights,
		Quorum:       100,
		Challenge:    0,
		Nonce:        time.Now().UnixMilli(),
	}

	allocations := make([]Allocation, 0, len(all))
	allocations = append(allocations, Allocation{Participant: creator, Asset: "usdc", Amount: defaultLockAmount})
	for _, p := range participants {
		allocations = append(allocations, Allocation{Participant: p, Asset: "usdc", Amount: "0"})
	}

	msg := createSessionMessage{
		Type:        MessageTypeCreateSession,
		Definition:  definition,
		Allocations: allocations,
		Timestamp:   time.Now().UnixMilli(),
		Signature:   signature,
		Sender:      creator,
	}
	if err := c.send(msg); err != nil {
		return "", err
	}
	return definition.Protocol, nil
}

// JoinSession announces a participant joining an existing session.
func (c *Client) JoinSession(ctx context.Context, sessionID, participant, signature string) error {
	return c.send(joinMessage{
		Type:        MessageTypeJoin,
		SessionID:   sessionID,
		Participant: participant,
		LockAmount:  defaultLockAmount,
		Timestamp:   time.Now().UnixMilli(),
		Signature:   signature,
	})
}

// PublishExpense mirrors an appended expense into the session channel.
func (c *Client) PublishExpense(ctx context.Context, sessionID string, expense entity.Expense, signature string) error {
	return c.send(paymentMessage{
		Type:      MessageTypeExpense,
		Amount:    strconv.FormatFloat(expense.Amount, 'f', -1, 64),
		Recipient: sessionID,
		Timestamp: expense.Timestamp,
		Metadata: map[string]interface{}{
			"id":          expense.ID,
			"description": expense.Description,
			"paidBy":      expense.PaidBy,
			"splitAmong":  expense.SplitAmong,
			"currency":    expense.Currency,
		},
		Signature: signature,
		Sender:    expense.PaidBy,
	})
}

// SendPayment pushes an instant off-chain payment through the channel.
func (c *Client) SendPayment(ctx context.Context, amount, recipient, sender, signature string) error {
	return c.send(paymentMessage{
		Type:      MessageTypePayment,
		Amount:    amount,
		Recipient: recipient,
		Timestamp: time.Now().UnixMilli(),
		Signature: signature,
		Sender:    sender,
	})
}

// RequestSessionState asks the clearnode for its view of a session. When no
// response arrives within the timeout an empty state is returned rather
// than an error; the store remains the source of truth.
func (c *Client) RequestSessionState(ctx context.Context, sessionID string) (SessionState, error) {
	result := make(chan SessionState, 1)

	key := fmt.Sprintf("state-%s-%d", sessionID, time.Now().UnixNano())
	c.handlerMu.Lock()
	c.handlers[key] = func(envelope messageEnvelope) {
		if envelope.Type != MessageTypeStateResponse || envelope.SessionID != sessionID {
			return
		}
		var state SessionState
		if err := json.Unmarshal(envelope.State, &state); err != nil {
			return
		}
		state.SessionID = sessionID
		select {
		case result <- state:
		default:
		}
	}
	c.handlerMu.Unlock()

	defer func() {
		c.handlerMu.Lock()
		delete(c.handlers, key)
		c.handlerMu.Unlock()
	}()

	if err := c.send(getStateMessage{
		Type:      MessageTypeGetState,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		return SessionState{}, err
	}

	select {
	case state := <-result:
		return state, nil
	case <-time.After(stateRequestTimeout):
		return SessionState{SessionID: sessionID, Balances: map[string]float64{}}, nil
	case <-ctx.Done():
		return SessionState{}, ctx.Err()
	}
}

// CloseSession closes a session ahead of settlement.
func (c *Client) CloseSession(ctx context.Context, sessionID, signature string) error {
	return c.send(closeSessionMessage{
		Type:      MessageTypeCloseSession,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		Signature: signature,
	})
}
