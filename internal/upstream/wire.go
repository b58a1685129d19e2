package upstream

import (
	"encoding/json"
	"fmt"

	"github.com/StoreStation/chunkserver/internal/dispatch"
	"github.com/StoreStation/chunkserver/internal/model"
)

// wireHeader is the subset of the game server's message header this link
// reads off every frame before deciding how to parse the body.
type wireHeader struct {
	EventType string `json:"eventType"`
	ClientID  int64  `json:"clientId"`
}

type wireEnvelope struct {
	Header wireHeader      `json:"header"`
	Body   json.RawMessage `json:"body"`
}

// attributeEntry is the {id, name, slug, value} shape shared by character
// and mob attribute lists.
type attributeEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Value int32  `json:"value"`
}

type chunkInfoBody struct {
	ID   int64   `json:"id"`
	IP   string  `json:"ip"`
	Port int     `json:"port"`
	PosX float64 `json:"posX"`
	PosY float64 `json:"posY"`
	PosZ float64 `json:"posZ"`
	SizeX float64 `json:"sizeX"`
	SizeY float64 `json:"sizeY"`
	SizeZ float64 `json:"sizeZ"`
}

// characterDataBody covers setCharacterData's wire shape: the character's
// own fields plus the position fields the game server sends alongside it in
// the same body, merged here the way GameServerWorker::processGameServerData
// merges a separately-parsed positionData into the character record.
type characterDataBody struct {
	ID              int64            `json:"id"`
	Level           int32            `json:"level"`
	ExpForNextLevel int64            `json:"expForNextLevel"`
	CurrentExp      int64            `json:"currentExp"`
	CurrentHealth   int32            `json:"currentHealth"`
	CurrentMana     int32            `json:"currentMana"`
	MaxHealth       int32            `json:"maxHealth"`
	MaxMana         int32            `json:"maxMana"`
	Name            string           `json:"name"`
	Class           string           `json:"class"`
	Race            string           `json:"race"`
	AttributesData  []attributeEntry `json:"attributesData"`
	PosX            float64          `json:"posX"`
	PosY            float64          `json:"posY"`
	PosZ            float64          `json:"posZ"`
	RotZ            float64          `json:"rotZ"`
}

type characterAttributesBody struct {
	AttributesData []attributeEntry `json:"attributesData"`
}

type spawnZoneEntry struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	PosX             float64 `json:"posX"`
	SizeX            float64 `json:"sizeX"`
	PosY             float64 `json:"posY"`
	SizeY            float64 `json:"sizeY"`
	PosZ             float64 `json:"posZ"`
	SizeZ            float64 `json:"sizeZ"`
	SpawnMobID       int64   `json:"spawnMobId"`
	MaxMobSpawnCount int32   `json:"maxMobSpawnCount"`
	RespawnTimeSec   int64   `json:"respawnTime"`
}

type spawnZonesBody struct {
	SpawnZonesData []spawnZoneEntry `json:"spawnZonesData"`
}

type mobEntry struct {
	ID            int64   `json:"id"`
	UID           int64   `json:"UID"`
	ZoneID        int64   `json:"zoneId"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	Race          string  `json:"race"`
	Level         int32   `json:"level"`
	CurrentHealth int32   `json:"currentHealth"`
	CurrentMana   int32   `json:"currentMana"`
	MaxHealth     int32   `json:"maxHealth"`
	MaxMana       int32   `json:"maxMana"`
	PosX          float64 `json:"posX"`
	PosY          float64 `json:"posY"`
	PosZ          float64 `json:"posZ"`
	RotZ          float64 `json:"rotZ"`
	IsAggressive  bool    `json:"isAggressive"`
	IsDead        bool    `json:"isDead"`
}

type mobsListBody struct {
	MobsList []mobEntry `json:"mobsList"`
}

type mobAttributeEntry struct {
	ID    int64  `json:"id"`
	MobID int64  `json:"mob_id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Value int32  `json:"value"`
}

type mobsAttributesBody struct {
	MobsAttributesList []mobAttributeEntry `json:"mobsAttributesList"`
}

// skillEntry is one skill in a mobsSkillsMapping pairing, grounded on the
// {skillSlug, skillName, cooldownMs, maxRange, skillEffectType, coeff,
// costMp} field names SkillSystem.cpp reads off an already-parsed skill.
type skillEntry struct {
	Slug            string  `json:"skillSlug"`
	Name            string  `json:"skillName"`
	CastMs          int64   `json:"castMs"`
	CooldownMs      int64   `json:"cooldownMs"`
	GCDMs           int64   `json:"gcdMs"`
	CostMP          int32   `json:"costMp"`
	MaxRange        float64 `json:"maxRange"`
	Coeff           float64 `json:"coeff"`
	FlatAdd         float64 `json:"flatAdd"`
	ScaleStat       string  `json:"scaleStat"`
	SkillEffectType string  `json:"skillEffectType"`
	School          string  `json:"school"`
}

type mobSkillsEntry struct {
	MobID  int64        `json:"mobId"`
	Skills []skillEntry `json:"skills"`
}

type mobsSkillsBody struct {
	MobsSkillsMapping []mobSkillsEntry `json:"mobsSkillsMapping"`
}

type itemAttributeEntry struct {
	ID     int64  `json:"id"`
	ItemID int64  `json:"item_id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Value  int32  `json:"value"`
}

type itemEntry struct {
	ID               int64                `json:"id"`
	Name             string               `json:"name"`
	Slug             string               `json:"slug"`
	ItemTypeSlug     string               `json:"itemTypeSlug"`
	RaritySlug       string               `json:"raritySlug"`
	StackMax         int32                `json:"stackMax"`
	Weight           float64              `json:"weight"`
	EquipSlotSlug    string               `json:"equipSlotSlug"`
	IsHarvest        bool                 `json:"isHarvest"`
	Attributes       []itemAttributeEntry `json:"attributes"`
}

type itemsListBody struct {
	ItemsList []itemEntry `json:"itemsList"`
}

type mobLootEntry struct {
	ID         int64   `json:"id"`
	MobID      int64   `json:"mobId"`
	ItemID     int64   `json:"itemId"`
	DropChance float64 `json:"dropChance"`
}

type mobLootInfoBody struct {
	MobLootInfo []mobLootEntry `json:"mobLootInfo"`
}

type expLevelEntry struct {
	Level             int32 `json:"level"`
	ExperiencePoints  int64 `json:"experiencePoints"`
}

type expLevelTableBody struct {
	ExpLevelTable []expLevelEntry `json:"expLevelTable"`
}

// translate decodes one upstream wire frame into zero or more model.Events.
// Most eventTypes produce exactly one event; setMobsAttributes,
// setMobsSkills and getMobLootInfo fan out one event per mob, since the
// registry calls they feed (MobTemplateRegistry.MergeAttributes,
// MobTemplateRegistry.MergeSkills, ItemRegistry.SetMobLootInfo) each take
// one mob at a time.
func translate(frame []byte) ([]model.Event, error) {
	var env wireEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("upstream: parse envelope: %w", err)
	}

	switch env.Header.EventType {
	case "setChunkData":
		var b chunkInfoBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		return []model.Event{event(env, model.EventSetChunkData, &model.ChunkData{
			ChunkID: b.ID,
			Name:    fmt.Sprintf("chunk-%d", b.ID),
			Bounds: model.AABB{
				CenterX: b.PosX, CenterY: b.PosY, CenterZ: b.PosZ,
				SizeX: b.SizeX, SizeY: b.SizeY, SizeZ: b.SizeZ,
			},
		})}, nil

	case "setCharacterData":
		var b characterDataBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		c := model.NewCharacter(b.ID, env.Header.ClientID, b.Name, b.Class, b.Race)
		c.Level = b.Level
		c.CurrentExp = b.CurrentExp
		c.ExpForNextLevel = b.ExpForNextLevel
		c.CurrentHealth, c.MaxHealth = b.CurrentHealth, b.MaxHealth
		c.CurrentMana, c.MaxMana = b.CurrentMana, b.MaxMana
		c.Position = model.NewPosition(b.PosX, b.PosY, b.PosZ, b.RotZ)
		for _, a := range b.AttributesData {
			c.Attributes[a.Slug] = a.Value
		}
		return []model.Event{event(env, model.EventSetCharacterData, c)}, nil

	case "setCharacterAttributes":
		var b characterAttributesBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		attrs := make(map[string]int32, len(b.AttributesData))
		for _, a := range b.AttributesData {
			attrs[a.Slug] = a.Value
		}
		return []model.Event{event(env, model.EventSetCharacterAttributes, dispatch.CharacterAttributesPayload{
			CharacterID: env.Header.ClientID,
			Attributes:  attrs,
		})}, nil

	case "setSpawnZonesList":
		var b spawnZonesBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		zones := make([]*model.SpawnZone, 0, len(b.SpawnZonesData))
		for _, z := range b.SpawnZonesData {
			zones = append(zones, &model.SpawnZone{
				ZoneID: z.ID,
				Name:   z.Name,
				Box: model.AABB{
					CenterX: z.PosX, CenterY: z.PosY, CenterZ: z.PosZ,
					SizeX: z.SizeX, SizeY: z.SizeY, SizeZ: z.SizeZ,
				},
				SpawnMobID:    z.SpawnMobID,
				SpawnCount:    z.MaxMobSpawnCount,
				RespawnTimeMs: z.RespawnTimeSec * 1000,
			})
		}
		return []model.Event{event(env, model.EventSetAllSpawnZones, zones)}, nil

	case "setMobsList":
		var b mobsListBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		templates := make([]*model.MobTemplate, 0, len(b.MobsList))
		for _, m := range b.MobsList {
			templates = append(templates, &model.MobTemplate{
				MobID:      m.ID,
				Name:       m.Name,
				Level:      m.Level,
				BaseStats:  map[string]int32{},
				Attributes: map[string]int32{},
				Skills:     map[string]model.Skill{},
			})
		}
		return []model.Event{event(env, model.EventSetAllMobsList, templates)}, nil

	case "setMobsAttributes":
		var b mobsAttributesBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		byMob := make(map[int64]map[string]int32)
		for _, a := range b.MobsAttributesList {
			m := byMob[a.MobID]
			if m == nil {
				m = make(map[string]int32)
				byMob[a.MobID] = m
			}
			m[a.Slug] = a.Value
		}
		events := make([]model.Event, 0, len(byMob))
		for mobID, attrs := range byMob {
			events = append(events, event(env, model.EventSetAllMobsAttributes, dispatch.MobAttributesPayload{
				MobID: mobID, Attributes: attrs,
			}))
		}
		return events, nil

	case "setMobsSkills":
		var b mobsSkillsBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		events := make([]model.Event, 0, len(b.MobsSkillsMapping))
		for _, pair := range b.MobsSkillsMapping {
			skills := make(map[string]model.Skill, len(pair.Skills))
			for _, s := range pair.Skills {
				skills[s.Slug] = model.Skill{
					Slug: s.Slug, Name: s.Name,
					CastMs: s.CastMs, CooldownMs: s.CooldownMs, GCDMs: s.GCDMs,
					CostMP: s.CostMP, MaxRange: s.MaxRange, Coeff: s.Coeff, FlatAdd: s.FlatAdd,
					ScaleStat:       s.ScaleStat,
					SkillEffectType: model.SkillEffectType(s.SkillEffectType),
					School:          model.School(s.School),
				}
			}
			events = append(events, event(env, model.EventSetAllMobsSkills, dispatch.MobSkillsPayload{
				MobID: pair.MobID, Skills: skills,
			}))
		}
		return events, nil

	case "getItemsList":
		var b itemsListBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		items := make([]*model.ItemTemplate, 0, len(b.ItemsList))
		for _, it := range b.ItemsList {
			attrs := make(map[string]int32, len(it.Attributes))
			for _, a := range it.Attributes {
				attrs[a.Slug] = a.Value
			}
			items = append(items, &model.ItemTemplate{
				ID: it.ID, Slug: it.Slug, Name: it.Name,
				Type: it.ItemTypeSlug, Rarity: it.RaritySlug,
				StackMax: it.StackMax, Weight: it.Weight,
				EquipSlot: it.EquipSlotSlug, IsHarvest: it.IsHarvest,
				Attributes: attrs,
			})
		}
		return []model.Event{event(env, model.EventSetAllItemsList, items)}, nil

	case "getMobLootInfo":
		var b mobLootInfoBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		byMob := make(map[int64][]model.LootTableEntry)
		for _, l := range b.MobLootInfo {
			byMob[l.MobID] = append(byMob[l.MobID], model.LootTableEntry{ItemID: l.ItemID, DropChance: l.DropChance})
		}
		events := make([]model.Event, 0, len(byMob))
		for mobID, entries := range byMob {
			events = append(events, event(env, model.EventSetMobLootInfo, dispatch.MobLootInfoPayload{
				MobID: mobID, Entries: entries,
			}))
		}
		return events, nil

	case "getExpLevelTable":
		var b expLevelTableBody
		if err := json.Unmarshal(env.Body, &b); err != nil {
			return nil, err
		}
		levels := make(map[int32]int64, len(b.ExpLevelTable))
		for _, e := range b.ExpLevelTable {
			levels[e.Level] = e.ExperiencePoints
		}
		return []model.Event{event(env, model.EventSetExpLevelTable, levels)}, nil

	default:
		return nil, fmt.Errorf("upstream: unrecognized eventType %q", env.Header.EventType)
	}
}

func event(env wireEnvelope, kind model.EventKind, payload any) model.Event {
	return model.Event{Kind: kind, ClientID: env.Header.ClientID, Payload: payload}
}
