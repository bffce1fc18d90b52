package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"room:join","data":"general"}`))
	require.NoError(t, err)
	assert.Equal(t, EvtRoomJoin, f.Event)
	assert.JSONEq(t, `"general"`, string(f.Data))
}

func TestParseFrameMissingEvent(t *testing.T) {
	_, err := ParseFrame([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestParseFrameInvalidJSON(t *testing.T) {
	_, err := ParseFrame([]byte(`{"event":`))
	assert.Error(t, err)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	b := Envelope(EvtStatsUpdate, &StatsPayload{Event: TagUserJoined, Room: "general", TotalOnline: 2})
	require.NotNil(t, b)

	f, err := ParseFrame(b)
	require.NoError(t, err)
	assert.Equal(t, EvtStatsUpdate, f.Event)

	var p StatsPayload
	decodeInto(t, f, &p)
	assert.Equal(t, TagUserJoined, p.Event)
	assert.Equal(t, "general", p.Room)
	assert.Equal(t, 2, p.TotalOnline)
}

func TestDecodeRoomNameBareString(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"room:join","data":"  general  "}`))
	require.NoError(t, err)
	room, err := DecodeRoomName(f)
	require.NoError(t, err)
	assert.Equal(t, "general", room)
}

func TestDecodeRoomNameObject(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"room:leave","data":{"room":"dev"}}`))
	require.NoError(t, err)
	room, err := DecodeRoomName(f)
	require.NoError(t, err)
	assert.Equal(t, "dev", room)
}

func TestDecodeRoomNameMissing(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"room:join"}`))
	require.NoError(t, err)
	_, err = DecodeRoomName(f)
	assert.Error(t, err)
}

func TestDecodeDataSendPayload(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"message:send","data":{"content":"hi","room":"general","extra":true}}`))
	require.NoError(t, err)

	p, err := DecodeData[SendPayload](f)
	require.NoError(t, err)
	assert.Equal(t, "hi", p.Content)
	assert.Equal(t, "general", p.Room)
	assert.Empty(t, p.Receiver)
}

func TestDecodeDataRejectsNonObject(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"message:send","data":[1,2]}`))
	require.NoError(t, err)
	_, err = DecodeData[SendPayload](f)
	assert.Error(t, err)
}

func TestDecodeDataMissing(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"message:send"}`))
	require.NoError(t, err)
	_, err = DecodeData[SendPayload](f)
	assert.Error(t, err)
}
