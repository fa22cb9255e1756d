package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_EntityData(t *testing.T) {
	frame, err := Encode(EventMonster, EntityData{
		ID:     "m1",
		Skin:   "goo",
		X:      Float(0),
		GoingX: Float(100),
		Moving: Bool(true),
		S:      StatusInfo{"burned": json.RawMessage(`{"ms":1000}`)},
	})
	require.NoError(t, err)

	msg, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, EventMonster, msg.Event)

	var data EntityData
	require.NoError(t, msg.DecodeData(&data))
	assert.Equal(t, "m1", data.ID)
	require.NotNil(t, data.X)
	assert.Equal(t, 0.0, *data.X, "нулевая координата передаётся, а не опускается")
	assert.Nil(t, data.Y, "непереданное поле остаётся nil")
	assert.Equal(t, []string{"burned"}, data.S.Names())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"data":1}`))
	assert.True(t, errors.Is(err, ErrMalformedMessage))

	_, err = Decode([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrMalformedMessage))

	msg, err := Decode([]byte(`{"event":"remove"}`))
	require.NoError(t, err)
	var id string
	assert.True(t, errors.Is(msg.DecodeData(&id), ErrMalformedMessage))
}

func TestEncode_RemoveAllWithoutData(t *testing.T) {
	frame, err := Encode(EventRemoveAll, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"removeAll"}`, string(frame))
}

func TestDecodeData_EntitiesBatch(t *testing.T) {
	msg, err := Decode([]byte(`{"event":"entities","data":{"type":"all","monsters":[{"id":"m1","type":"goo","x":1}],"players":[{"id":"hero","skin":"mbody1","hp":10,"max_hp":20,"cx":{"head":"makeup117"}}]}}`))
	require.NoError(t, err)
	assert.Equal(t, UpstreamEntities, msg.Event)

	var data EntitiesData
	require.NoError(t, msg.DecodeData(&data))
	require.Len(t, data.Monsters, 1)
	require.Len(t, data.Players, 1)

	hero := data.Players[0]
	assert.Equal(t, "hero", hero.ID)
	assert.Equal(t, 20.0, hero.MaxHP)
	require.NotNil(t, hero.CX)
	assert.Equal(t, "makeup117", hero.CX.Head)
}
