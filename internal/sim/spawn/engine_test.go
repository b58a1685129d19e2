package spawn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/sim/spawn"
)

func newEngine() (*spawn.Engine, *registry.SpawnZoneRegistry, *registry.MobTemplateRegistry, *registry.MobInstanceRegistry) {
	zones := registry.NewSpawnZoneRegistry()
	templates := registry.NewMobTemplateRegistry()
	instances := registry.NewMobInstanceRegistry()
	var counter idgen.Counter
	return spawn.NewEngine(zones, templates, instances, &counter, nil), zones, templates, instances
}

func TestSpawnMobsInZoneFillsToTarget(t *testing.T) {
	engine, zones, templates, instances := newEngine()
	templates.ReplaceAll([]*model.MobTemplate{{
		MobID:     1,
		BaseStats: map[string]int32{"max_health": 50, "max_mana": 10},
	}})
	zones.ReplaceAll([]*model.SpawnZone{{
		ZoneID:     1,
		Box:        model.AABB{CenterX: 0, CenterY: 0, SizeX: 1000, SizeY: 1000},
		SpawnMobID: 1,
		SpawnCount: 3,
	}})

	spawned, err := engine.SpawnMobsInZone(1)
	require.NoError(t, err)
	require.Len(t, spawned, 3)

	for _, inst := range spawned {
		assert.EqualValues(t, 1, inst.MobID)
		assert.EqualValues(t, 1, inst.ZoneID)
		assert.EqualValues(t, 50, inst.CurrentHealth)
		assert.EqualValues(t, 200, inst.Position.Z)
		assert.True(t, zones.All()[0].Box.Contains(inst.Position.X, inst.Position.Y))
	}
	assert.Len(t, instances.InZone(1), 3)

	zone, ok := zones.Get(1)
	require.True(t, ok)
	assert.EqualValues(t, 3, zone.SpawnedCount)
	assert.Len(t, zone.SpawnedMobs, 3)
}

func TestSpawnMobsInZoneNoopWhenFull(t *testing.T) {
	engine, zones, templates, _ := newEngine()
	templates.ReplaceAll([]*model.MobTemplate{{MobID: 1, BaseStats: map[string]int32{"max_health": 10}}})
	zones.ReplaceAll([]*model.SpawnZone{{
		ZoneID: 1, Box: model.AABB{SizeX: 100, SizeY: 100}, SpawnMobID: 1, SpawnCount: 2, SpawnedCount: 2,
	}})

	spawned, err := engine.SpawnMobsInZone(1)
	require.NoError(t, err)
	assert.Empty(t, spawned)
}

func TestSpawnMobsInZoneUnknownTemplateFails(t *testing.T) {
	engine, zones, _, _ := newEngine()
	zones.ReplaceAll([]*model.SpawnZone{{
		ZoneID: 1, Box: model.AABB{SizeX: 100, SizeY: 100}, SpawnMobID: 99, SpawnCount: 1,
	}})

	_, err := engine.SpawnMobsInZone(1)
	assert.Error(t, err)
}

func TestSpawnMobsInZoneUnknownZoneFails(t *testing.T) {
	engine, _, _, _ := newEngine()
	_, err := engine.SpawnMobsInZone(404)
	assert.Error(t, err)
}
