package clearnode

// Message types exchanged with the clearnode.
const (
	MessageTypeCreateSession = "create_session"
	MessageTypeJoin          = "join"
	MessageTypeExpense       = "expense"
	MessageTypePayment       = "payment"
	MessageTypeGetState      = "get_state"
	MessageTypeStateResponse = "state_response"
	MessageTypeCloseSession  = "close_session"
)

// defaultLockAmount is 1 USDC in 6-decimal units.
const defaultLockAmount = "1000000"

// AppDefinition describes the state-channel application for one group:
// every participant carries equal weight and the quorum requires all of
// them.
type AppDefinition struct {
	Protocol     string    `json:"protocol"`
	Participants []string  `json:"participants"`
	Weights      []float64 `json:"weights"`
	Quorum       int       `json:"quorum"`
	Challenge    int       `json:"challenge"`
	Nonce        int64     `json:"nonce"`
}

// Allocation is one participant's locked stake in a session.
type Allocation struct {
	Participant string `json:"participant"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
}

type createSessionMessage struct {
	Type        string        `json:"type"`
	Definition  AppDefinition `json:"definition"`
	Allocations []Allocation  `json:"allocations"`
	Timestamp   int64         `json:"timestamp"`
	Signature   string        `json:"signature,omitempty"`
	Sender      string        `json:"sender,omitempty"`
}

type joinMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	Participant string `json:"participant"`
	LockAmount  string `json:"lockAmount"`
	Timestamp   int64  `json:"timestamp"`
	Signature   string `json:"signature,omitempty"`
}

// paymentMessage mirrors an expense or a direct payment into the channel.
type paymentMessage struct {
	Type      string                 `json:"type"`
	Amount    string                 `json:"amount"`
	Recipient string                 `json:"recipient"`
	Timestamp int64                  `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Signature string                 `json:"signature,omitempty"`
	Sender    string                 `json:"sender,omitempty"`
}

type getStateMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

type closeSessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature,omitempty"`
}

// SessionState is the clearnode's view of a session ledger.
type SessionState struct {
	SessionID    string             `json:"sessionId"`
	Participants []string           `json:"participants"`
	Expenses     []interface{}      `json:"expenses"`
	Balances     map[string]float64 `json:"balances"`
}
