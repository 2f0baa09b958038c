package clearnode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitchain/internal/domain/entity"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// fakeClearnode accepts one websocket connection and records every JSON
// message it receives. It can answer get_state requests.
type fakeClearnode struct {
	server   *httptest.Server
	received chan map[string]interface{}
}

func newFakeClearnode(t *testing.T, answerState bool) *fakeClearnode {
	t.Helper()
	f := &fakeClearnode{received: make(chan map[string]interface{}, 16)}
	upgrader := websocket.Upgrader{}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			f.received <- msg

			if answerState && msg["type"] == MessageTypeGetState {
				conn.WriteJSON(map[string]interface{}{
					"type":      MessageTypeStateResponse,
					"sessionId": msg["sessionId"],
					"state": map[string]interface{}{
						"participants": []string{addrA, addrB},
						"balances":     map[string]float64{addrA: 30, addrB: -30},
					},
				})
			}
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeClearnode) wsURL() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fakeClearnode) next(t *testing.T) map[string]interface{} {
	t.Helper()
	select {
	case msg := <-f.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestCreateSessionMessage(t *testing.T) {
	fake := newFakeClearnode(t, false)
	client := NewClient(Config{WSURL: fake.wsURL(), Network: "sandbox"})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	sessionID, err := client.CreateSession(context.Background(), "trip", addrA, []string{addrB}, "0xsig")
	require.NoError(t, err)
	assert.Equal(t, "splitchain-trip-v1", sessionID)

	msg := fake.next(t)
	assert.Equal(t, MessageTypeCreateSession, msg["type"])
	assert.Equal(t, "0xsig", msg["signature"])
	assert.Equal(t, addrA, msg["sender"])

	definition := msg["definition"].(map[string]interface{})
	assert.Equal(t, "splitchain-trip-v1", definition["protocol"])
	assert.Equal(t, float64(100), definition["quorum"])

	allocations := msg["allocations"].([]interface{})
	require.Len(t, allocations, 2)
	first := allocations[0].(map[string]interface{})
	assert.Equal(t, addrA, first["participant"])
	assert.Equal(t, "1000000", first["amount"])
}

func TestPublishExpense(t *testing.T) {
	fake := newFakeClearnode(t, false)
	client := NewClient(Config{WSURL: fake.wsURL()})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	expense := entity.Expense{
		ID:          "e1",
		Amount:      42.5,
		Description: "dinner",
		PaidBy:      addrA,
		SplitAmong:  []string{addrA, addrB},
		Currency:    "USDC",
		Timestamp:   1700000000000,
	}
	require.NoError(t, client.PublishExpense(context.Background(), "session-1", expense, "0xsig"))

	msg := fake.next(t)
	assert.Equal(t, MessageTypeExpense, msg["type"])
	assert.Equal(t, "42.5", msg["amount"])
	assert.Equal(t, "session-1", msg["recipient"])

	metadata := msg["metadata"].(map[string]interface{})
	assert.Equal(t, "dinner", metadata["description"])
	assert.Equal(t, addrA, metadata["paidBy"])
}

func TestRequestSessionState(t *testing.T) {
	fake := newFakeClearnode(t, true)
	client := NewClient(Config{WSURL: fake.wsURL()})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	state, err := client.RequestSessionState(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", state.SessionID)
	assert.InDelta(t, 30, state.Balances[addrA], 1e-9)
}

func TestOperationsRequireConnection(t *testing.T) {
	client := NewClient(Config{WSURL: "ws://127.0.0.1:1"})

	_, err := client.CreateSession(context.Background(), "trip", addrA, nil, "")
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.JoinSession(context.Background(), "s", addrA, "")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestEnvelopeParsing(t *testing.T) {
	var envelope messageEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"state_response","sessionId":"s1","state":{"balances":{}}}`), &envelope))
	assert.Equal(t, MessageTypeStateResponse, envelope.Type)
	assert.Equal(t, "s1", envelope.SessionID)
}
