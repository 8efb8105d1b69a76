package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(TypeAction, ActionData{
		TableID: "a3f09c",
		Kind:    "raise",
		Amount:  300,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeAction, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeAction, decoded.Type)

	var action ActionData
	require.NoError(t, decoded.Decode(&action))
	assert.Equal(t, "a3f09c", action.TableID)
	assert.Equal(t, "raise", action.Kind)
	assert.Equal(t, 300, action.Amount)
}

func TestDecodeEmptyPayload(t *testing.T) {
	msg := &Message{Type: TypeRequestState}
	var data RequestStateData
	require.NoError(t, msg.Decode(&data))
	assert.Empty(t, data.TableID)
}

func TestErrorDataWireForm(t *testing.T) {
	msg, err := NewMessage(TypeError, ErrorData{
		Code:    CodeNotYourTurn,
		Message: "it is not your turn to act",
	})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "not_your_turn", payload["code"])
}

func TestTableStateOmitsEmptyDeadline(t *testing.T) {
	state := TableStateData{
		TableID:      "deadbe",
		Phase:        "waiting",
		CurrentActor: -1,
		Seats:        []SeatView{},
		Community:    []string{},
	}
	raw, err := json.Marshal(state)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "deadline")

	now := time.Now()
	state.Deadline = &now
	raw, err = json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "deadline")
}

func TestHoleCardsStayPrivate(t *testing.T) {
	// Public seat views carry no card codes; the only place hole cards
	// appear pre-showdown is the private holeCards frame.
	view := SeatView{Seat: 2, Name: "alice", Stack: 1000, HasCards: true}
	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "cards\":[")

	private, err := NewMessage(TypeHoleCards, HoleCardsData{
		TableID: "deadbe",
		Seat:    2,
		Cards:   []string{"As", "Kd"},
	})
	require.NoError(t, err)
	var hc HoleCardsData
	require.NoError(t, private.Decode(&hc))
	assert.Equal(t, []string{"As", "Kd"}, hc.Cards)
}
