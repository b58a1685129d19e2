package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/services"
)

func TestNewWiresHandlerEndToEndForChunkReplication(t *testing.T) {
	s := services.New(idgen.SystemClock{}, services.QueueSizes{}, nil)
	require.NotNil(t, s.Handler)

	s.Handler.HandleEvent(model.Event{
		Kind: model.EventSetChunkData,
		Payload: &model.ChunkData{
			ChunkID: 1, Name: "chunk-1",
			Bounds: model.AABB{SizeX: 500, SizeY: 500, SizeZ: 500},
		},
	})

	chunk, ok := s.Chunks.Get(1)
	require.True(t, ok)
	assert.Equal(t, "chunk-1", chunk.Name)
}

func TestNewWiresSpawnAndHarvestEnginesAgainstSharedRegistries(t *testing.T) {
	s := services.New(idgen.SystemClock{}, services.QueueSizes{}, nil)

	s.MobTemplates.ReplaceAll([]*model.MobTemplate{{
		MobID: 1, Level: 1, BaseStats: map[string]int32{"max_health": 10, "exp": 50},
	}})
	s.Zones.ReplaceAll([]*model.SpawnZone{{
		ZoneID: 1, Box: model.AABB{SizeX: 1000, SizeY: 1000}, SpawnMobID: 1, SpawnCount: 1,
	}})
	spawned, err := s.Spawn.SpawnMobsInZone(1)
	require.NoError(t, err)
	require.Len(t, spawned, 1)
	mobUID := spawned[0].UID

	// s.HarvestEng and s.Harvest (its backing store) must be wired to the
	// same instance registry s.Spawn just wrote to, confirming New's
	// construction order rather than each engine's own internal logic
	// (already covered by internal/sim/harvest's own tests).
	s.HarvestEng.CreateCorpseOnDeath(1, mobUID, spawned[0].Position, 150, 0)
	corpse, ok := s.Harvest.Corpse(mobUID)
	require.True(t, ok)
	assert.Equal(t, int64(1), corpse.MobID)
}
