package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/dispatch"
	"github.com/StoreStation/chunkserver/internal/model"
)

func TestTranslateSetChunkData(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"setChunkData","id":7},"body":{
		"id":7,"ip":"10.0.0.1","port":9014,
		"posX":100,"posY":200,"posZ":0,"sizeX":500,"sizeY":500,"sizeZ":1000
	}}`)

	events, err := translate(frame)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventSetChunkData, events[0].Kind)

	chunk, ok := events[0].Payload.(*model.ChunkData)
	require.True(t, ok)
	assert.Equal(t, int64(7), chunk.ChunkID)
	assert.Equal(t, "chunk-7", chunk.Name)
	assert.Equal(t, 100.0, chunk.Bounds.CenterX)
	assert.Equal(t, 500.0, chunk.Bounds.SizeX)
}

func TestTranslateSetCharacterData(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"setCharacterData","clientId":42},"body":{
		"id":5001,"level":10,"expForNextLevel":1000,"currentExp":250,
		"currentHealth":80,"maxHealth":100,"currentMana":40,"maxMana":50,
		"name":"Testman","class":"warrior","race":"human",
		"posX":1,"posY":2,"posZ":3,"rotZ":90,
		"attributesData":[{"id":1,"name":"Strength","slug":"str","value":15}]
	}}`)

	events, err := translate(frame)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventSetCharacterData, events[0].Kind)
	assert.Equal(t, int64(42), events[0].ClientID)

	c, ok := events[0].Payload.(*model.Character)
	require.True(t, ok)
	assert.Equal(t, int64(5001), c.CharacterID)
	assert.Equal(t, int64(42), c.ClientID)
	assert.Equal(t, int32(10), c.Level)
	assert.Equal(t, int32(15), c.Attributes["str"])
	assert.Equal(t, 90.0, c.Position.RotZ)
}

func TestTranslateSetCharacterAttributesUsesClientIDAsCharacterID(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"setCharacterAttributes","clientId":99},"body":{
		"attributesData":[{"id":1,"name":"Dexterity","slug":"dex","value":7}]
	}}`)

	events, err := translate(frame)
	require.NoError(t, err)
	require.Len(t, events, 1)

	p, ok := events[0].Payload.(dispatch.CharacterAttributesPayload)
	require.True(t, ok)
	assert.Equal(t, int64(99), p.CharacterID)
	assert.Equal(t, int32(7), p.Attributes["dex"])
}

func TestTranslateSetSpawnZonesList(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"setSpawnZonesList"},"body":{
		"spawnZonesData":[{
			"id":1,"name":"Forest","posX":0,"sizeX":1000,"posY":0,"sizeY":1000,
			"posZ":0,"sizeZ":200,"spawnMobId":11,"maxMobSpawnCount":5,"respawnTime":30
		}]
	}}`)

	events, err := translate(frame)
	require.NoError(t, err)
	require.Len(t, events, 1)

	zones, ok := events[0].Payload.([]*model.SpawnZone)
	require.True(t, ok)
	require.Len(t, zones, 1)
	assert.Equal(t, int64(1), zones[0].ZoneID)
	assert.Equal(t, int64(11), zones[0].SpawnMobID)
	assert.Equal(t, int32(5), zones[0].SpawnCount)
	assert.Equal(t, int64(30_000), zones[0].RespawnTimeMs)
}

func TestTranslateSetMobsAttributesFansOutPerMob(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"setMobsAttributes"},"body":{
		"mobsAttributesList":[
			{"id":1,"mob_id":100,"name":"Strength","slug":"str","value":10},
			{"id":2,"mob_id":100,"name":"Vitality","slug":"vit","value":20},
			{"id":3,"mob_id":200,"name":"Strength","slug":"str","value":5}
		]
	}}`)

	events, err := translate(frame)
	require.NoError(t, err)
	require.Len(t, events, 2)

	byMob := map[int64]dispatch.MobAttributesPayload{}
	for _, e := range events {
		p := e.Payload.(dispatch.MobAttributesPayload)
		byMob[p.MobID] = p
	}
	require.Contains(t, byMob, int64(100))
	require.Contains(t, byMob, int64(200))
	assert.Equal(t, int32(10), byMob[100].Attributes["str"])
	assert.Equal(t, int32(20), byMob[100].Attributes["vit"])
	assert.Equal(t, int32(5), byMob[200].Attributes["str"])
}

func TestTranslateGetMobLootInfoFansOutPerMob(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"getMobLootInfo"},"body":{
		"mobLootInfo":[
			{"id":1,"mobId":100,"itemId":5,"dropChance":0.5},
			{"id":2,"mobId":100,"itemId":6,"dropChance":0.1},
			{"id":3,"mobId":200,"itemId":5,"dropChance":0.3}
		]
	}}`)

	events, err := translate(frame)
	require.NoError(t, err)
	require.Len(t, events, 2)

	byMob := map[int64]dispatch.MobLootInfoPayload{}
	for _, e := range events {
		p := e.Payload.(dispatch.MobLootInfoPayload)
		byMob[p.MobID] = p
	}
	assert.Len(t, byMob[100].Entries, 2)
	assert.Len(t, byMob[200].Entries, 1)
}

func TestTranslateGetExpLevelTable(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"getExpLevelTable"},"body":{
		"expLevelTable":[{"level":1,"experiencePoints":0},{"level":2,"experiencePoints":100}]
	}}`)

	events, err := translate(frame)
	require.NoError(t, err)
	require.Len(t, events, 1)

	levels, ok := events[0].Payload.(map[int32]int64)
	require.True(t, ok)
	assert.Equal(t, int64(0), levels[1])
	assert.Equal(t, int64(100), levels[2])
}

func TestTranslateUnrecognizedEventTypeErrors(t *testing.T) {
	frame := []byte(`{"header":{"eventType":"somethingUnknown"},"body":{}}`)
	_, err := translate(frame)
	assert.Error(t, err)
}

func TestTranslateMalformedEnvelopeErrors(t *testing.T) {
	_, err := translate([]byte(`not json`))
	assert.Error(t, err)
}
