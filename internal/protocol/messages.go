package protocol

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeRegister     MessageType = "register"
	TypeCreateTable  MessageType = "createTable"
	TypeJoinTable    MessageType = "joinTable"
	TypeStartTable   MessageType = "startTable"
	TypeAction       MessageType = "action"
	TypeLeaveTable   MessageType = "leaveTable"
	TypeRequestState MessageType = "requestState"
	TypeReconnect    MessageType = "reconnect"

	// Server -> Client, public
	TypeRegistered   MessageType = "registered"
	TypeTableCreated MessageType = "tableCreated"
	TypeTableState   MessageType = "tableState"
	TypeHandStarted  MessageType = "handStarted"
	TypeStreetDealt  MessageType = "streetDealt"
	TypeTurnChanged  MessageType = "turnChanged"
	TypeActionTaken  MessageType = "actionTaken"
	TypeHandResult   MessageType = "handResult"
	TypeTableEnded   MessageType = "tableEnded"
	TypeError        MessageType = "error"

	// Server -> Client, private to one seat
	TypeHoleCards MessageType = "holeCards"
	TypeYourTurn  MessageType = "yourTurn"
)

func (t MessageType) String() string { return string(t) }

// Message is the wire envelope for every frame in either direction.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// ErrorCode is a stable machine-readable failure kind carried in error
// frames alongside the human-readable message.
type ErrorCode string

const (
	CodeInvalidMessage   ErrorCode = "invalid_message"
	CodeNotAuthenticated ErrorCode = "not_authenticated"
	CodeAuthFailed       ErrorCode = "auth_failed"
	CodeUnknownTable     ErrorCode = "unknown_table"
	CodeTableFull        ErrorCode = "table_full"
	CodeNotYourTurn      ErrorCode = "not_your_turn"
	CodeIllegalAction    ErrorCode = "illegal_action"
	CodeNotCreator       ErrorCode = "not_creator"
	CodeAlreadySeated    ErrorCode = "already_seated"
	CodeNotSeated        ErrorCode = "not_seated"
	CodeBadPhase         ErrorCode = "bad_phase"
	CodeInsufficient     ErrorCode = "insufficient_balance"
	CodeInternal         ErrorCode = "internal"
)

// Client -> Server payloads

type RegisterData struct {
	PlayerID  string `json:"playerId"`
	AuthToken string `json:"authToken,omitempty"`
	Name      string `json:"name,omitempty"`
}

type CreateTableData struct {
	// Empty; table parameters come from server defaults.
}

type JoinTableData struct {
	TableID string `json:"tableId"`
	BuyIn   int    `json:"buyIn,omitempty"`
}

type StartTableData struct {
	TableID string `json:"tableId"`
}

type ActionData struct {
	TableID string `json:"tableId"`
	Kind    string `json:"kind"` // fold, check, call, bet, raise, allIn
	Amount  int    `json:"amount,omitempty"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type RequestStateData struct {
	TableID string `json:"tableId"`
}

type ReconnectData struct {
	TableID string `json:"tableId"`
}

// Server -> Client payloads

type RegisteredData struct {
	PlayerID  string `json:"playerId"`
	SessionID string `json:"sessionId"`
}

type TableCreatedData struct {
	TableID string `json:"tableId"`
}

type ErrorData struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SeatView is the sanitized public view of one seat. Hole cards never appear
// here; HasCards only says whether the seat still holds a live hand.
type SeatView struct {
	Seat       int    `json:"seat"`
	Name       string `json:"name"`
	Stack      int    `json:"stack"`
	Committed  int    `json:"committed"`
	RoundBet   int    `json:"roundBet"`
	Folded     bool   `json:"folded"`
	AllIn      bool   `json:"allIn"`
	SittingOut bool   `json:"sittingOut"`
	HasCards   bool   `json:"hasCards"`
}

// PotView is a single pot layer as shown to clients.
type PotView struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible,omitempty"`
}

// TableStateData is the full sanitized snapshot of a table.
type TableStateData struct {
	TableID      string     `json:"tableId"`
	Seq          uint64     `json:"seq"`
	Phase        string     `json:"phase"`
	HandNumber   uint64     `json:"handNumber"`
	Button       int        `json:"button"`
	SmallBlind   int        `json:"smallBlind"`
	BigBlind     int        `json:"bigBlind"`
	Community    []string   `json:"community"`
	Pot          int        `json:"pot"`
	Pots         []PotView  `json:"pots,omitempty"`
	Seats        []SeatView `json:"seats"`
	CurrentActor int        `json:"currentActor"` // -1 when nobody is to act
	CurrentBet   int        `json:"currentBet"`
	MinRaise     int        `json:"minRaise"`
	Deadline     *time.Time `json:"deadline,omitempty"`

	// Recent holds the tail of the table's action log, newest last.
	Recent []ActionTakenData `json:"recent,omitempty"`
}

type HandStartedData struct {
	TableID    string     `json:"tableId"`
	Seq        uint64     `json:"seq"`
	HandNumber uint64     `json:"handNumber"`
	Button     int        `json:"button"`
	SmallBlind int        `json:"smallBlind"`
	BigBlind   int        `json:"bigBlind"`
	Seats      []SeatView `json:"seats"`
}

type StreetDealtData struct {
	TableID   string   `json:"tableId"`
	Seq       uint64   `json:"seq"`
	Street    string   `json:"street"` // flop, turn, river
	Community []string `json:"community"`
}

type TurnChangedData struct {
	TableID  string    `json:"tableId"`
	Seq      uint64    `json:"seq"`
	Seat     int       `json:"seat"`
	Deadline time.Time `json:"deadline"`
}

type ActionTakenData struct {
	TableID  string `json:"tableId"`
	Seq      uint64 `json:"seq"`
	Seat     int    `json:"seat"`
	Action   string `json:"action"` // includes post_small_blind, post_big_blind, timeout_fold, timeout_check
	Amount   int    `json:"amount"` // incremental chips paid by this action
	Stack    int    `json:"stack"`
	RoundBet int    `json:"roundBet"`
	Pot      int    `json:"pot"`
}

// WinnerView is one winner of one pot layer.
type WinnerView struct {
	Seat     int      `json:"seat"`
	Name     string   `json:"name"`
	Amount   int      `json:"amount"`
	Cards    []string `json:"cards,omitempty"`    // best five at showdown
	Category string   `json:"category,omitempty"` // e.g. "Flush"
	Hole     []string `json:"hole,omitempty"`     // revealed at showdown
}

// PotResultView is the resolution of one pot layer.
type PotResultView struct {
	Amount  int          `json:"amount"`
	Winners []WinnerView `json:"winners"`
}

type HandResultData struct {
	TableID    string          `json:"tableId"`
	Seq        uint64          `json:"seq"`
	HandNumber uint64          `json:"handNumber"`
	Community  []string        `json:"community"`
	Pots       []PotResultView `json:"pots"`
	Timestamp  time.Time       `json:"timestamp"`
	Aborted    bool            `json:"aborted,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type TableEndedData struct {
	TableID string `json:"tableId"`
	Seq     uint64 `json:"seq"`
	Reason  string `json:"reason"`
}

// Private payloads

type HoleCardsData struct {
	TableID    string   `json:"tableId"`
	HandNumber uint64   `json:"handNumber"`
	Seat       int      `json:"seat"`
	Cards      []string `json:"cards"`
}

// LegalActionView describes one action currently open to the acting seat.
type LegalActionView struct {
	Kind string `json:"kind"`
	Min  int    `json:"min,omitempty"` // minimum total for bet/raise
	Max  int    `json:"max,omitempty"` // maximum total for bet/raise
}

type YourTurnData struct {
	TableID      string            `json:"tableId"`
	Seat         int               `json:"seat"`
	LegalActions []LegalActionView `json:"legalActions"`
	CallAmount   int               `json:"callAmount"`
	MinRaise     int               `json:"minRaise"`
	Deadline     time.Time         `json:"deadline"`
}
