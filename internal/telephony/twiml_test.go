package telephony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderVerbOrder(t *testing.T) {
	doc := &Response{}
	doc.Pause(2).Say("Emergency notification.").Hangup()

	out, err := doc.Render()
	require.NoError(t, err)
	require.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
			`<Response><Pause length="2"></Pause><Say>Emergency notification.</Say><Hangup></Hangup></Response>`,
		out)
}

func TestHoldInQueue(t *testing.T) {
	out, err := HoldInQueue("em-42", "https://example.test/hold.mp3", "Please hold.").Render()
	require.NoError(t, err)
	require.Contains(t, out, `<Say>Please hold.</Say>`)
	require.Contains(t, out, `<Enqueue waitUrl="https://example.test/hold.mp3">em-42</Enqueue>`)
}

func TestBridgeIntoQueue(t *testing.T) {
	out, err := BridgeIntoQueue("em-42", "Connecting now.",
		"https://example.test/transfer_complete?emergency_id=em-42", 20, "+15550001111").Render()
	require.NoError(t, err)
	require.Contains(t, out,
		`<Dial action="https://example.test/transfer_complete?emergency_id=em-42" timeout="20" callerId="+15550001111">`)
	require.Contains(t, out, `<Queue>em-42</Queue>`)
}

func TestBridgeIntoQueueOmitsEmptyAttributes(t *testing.T) {
	out, err := BridgeIntoQueue("em-42", "Connecting now.", "", 0, "").Render()
	require.NoError(t, err)
	require.Contains(t, out, `<Dial><Queue>em-42</Queue></Dial>`)
}

func TestNoActiveEmergencyHangsUp(t *testing.T) {
	out, err := NoActiveEmergency().Render()
	require.NoError(t, err)
	require.Contains(t, out, "<Say>")
	require.Contains(t, out, "<Hangup>")
}

func TestSpokenNumber(t *testing.T) {
	require.Equal(t, "plus, 1, 5, 5, 5, 1, 2, 3", SpokenNumber("+1555123"))
	require.Equal(t, "5, 5, 5, 1, 2, 3, 4", SpokenNumber("(555) 123-4"))
	require.Equal(t, "", SpokenNumber(""))
}
