package signal

import (
	"encoding/json"
	"strings"
	"testing"

	"roomrelay/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	peerA = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	peerB = "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
)

func TestDecodeFrame_JoinRoom(t *testing.T) {
	name, event, err := DecodeFrame("A", []byte(`{"event":"join room","data":{"roomID":"r1","user":{"name":"A"}}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventJoinRoom, name)
	assert.Equal(t, domain.JoinRoomEvent{
		ConnectionID: "A",
		RoomID:       "r1",
		Profile:      domain.Profile(`{"name":"A"}`),
	}, event)
}

func TestDecodeFrame_JoinRoomCaseInsensitiveField(t *testing.T) {
	_, event, err := DecodeFrame("A", []byte(`{"event":"join room","data":{"roomId":"r1"}}`))
	require.NoError(t, err)
	join := event.(domain.JoinRoomEvent)
	assert.Equal(t, domain.RoomID("r1"), join.RoomID)
	assert.Nil(t, join.Profile)
}

func TestDecodeFrame_SendingSignalIgnoresCallerID(t *testing.T) {
	raw := `{"event":"sending signal","data":{"userToSignal":"` + peerB + `","callerID":"spoofed","signal":{"type":"offer","sdp":"v=0"}}}`
	_, event, err := DecodeFrame(peerA, []byte(raw))
	require.NoError(t, err)

	sig := event.(domain.SendingSignalEvent)
	assert.Equal(t, domain.ConnectionID(peerA), sig.ConnectionID)
	assert.Equal(t, domain.ConnectionID(peerB), sig.Target)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(sig.Signal))
}

func TestDecodeFrame_ReturningSignal(t *testing.T) {
	raw := `{"event":"returning signal","data":{"callerID":"` + peerA + `","signal":"answer"}}`
	_, event, err := DecodeFrame(peerB, []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, domain.ReturningSignalEvent{
		ConnectionID: peerB,
		Target:       peerA,
		Signal:       json.RawMessage(`"answer"`),
	}, event)
}

func TestDecodeFrame_SendMessage(t *testing.T) {
	_, event, err := DecodeFrame("A", []byte(`{"event":"send message","data":{"roomID":"r1","message":{"text":"hi"}}}`))
	require.NoError(t, err)
	msg := event.(domain.SendMessageEvent)
	assert.Equal(t, domain.RoomID("r1"), msg.RoomID)
	assert.JSONEq(t, `{"text":"hi"}`, string(msg.Message))
}

func TestDecodeFrame_LeaveRoomWithoutData(t *testing.T) {
	_, event, err := DecodeFrame("A", []byte(`{"event":"leave room"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.LeaveRoomEvent{ConnectionID: "A"}, event)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantEvent string
	}{
		{"not json", `hello`, ""},
		{"missing event", `{"data":{}}`, ""},
		{"unknown event", `{"event":"launch rockets","data":{}}`, "launch rockets"},
		{"client disconnect", `{"event":"disconnect"}`, "disconnect"},
		{"join without data", `{"event":"join room"}`, domain.EventJoinRoom},
		{"join with null data", `{"event":"join room","data":null}`, domain.EventJoinRoom},
		{"join without room", `{"event":"join room","data":{"user":{}}}`, domain.EventJoinRoom},
		{"join with control chars", `{"event":"join room","data":{"roomID":"r\u0000"}}`, domain.EventJoinRoom},
		{"join with oversized profile", `{"event":"join room","data":{"roomID":"r1","user":"` + strings.Repeat("x", 20000) + `"}}`, domain.EventJoinRoom},
		{"signal without target", `{"event":"sending signal","data":{"signal":"offer"}}`, domain.EventSendingSignal},
		{"signal with null signal", `{"event":"sending signal","data":{"userToSignal":"` + peerB + `","signal":null}}`, domain.EventSendingSignal},
		{"signal to malformed id", `{"event":"sending signal","data":{"userToSignal":"B","signal":"offer"}}`, domain.EventSendingSignal},
		{"return to malformed id", `{"event":"returning signal","data":{"callerID":"../A","signal":"answer"}}`, domain.EventReturningSignal},
		{"return without caller", `{"event":"returning signal","data":{"signal":"answer"}}`, domain.EventReturningSignal},
		{"message without body", `{"event":"send message","data":{"roomID":"r1"}}`, domain.EventSendMessage},
		{"data of wrong type", `{"event":"join room","data":"r1"}`, domain.EventJoinRoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, event, err := DecodeFrame("A", []byte(tt.raw))
			assert.ErrorIs(t, err, domain.ErrMalformedEvent)
			assert.Nil(t, event)
			assert.Equal(t, tt.wantEvent, name)
		})
	}
}
