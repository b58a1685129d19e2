package model

// Character is the persistent avatar a Client controls once joined. All
// registry reads hand out Clone()s — never a live pointer into the
// registry's internal map.
type Character struct {
	CharacterID     int64
	ClientID        int64
	Name            string
	Class           string
	Race            string
	Level           int32
	CurrentExp      int64
	ExpForNextLevel int64

	CurrentHealth int32
	MaxHealth     int32
	CurrentMana   int32
	MaxMana       int32

	Position Position

	Attributes map[string]int32
	Skills     map[string]Skill
}

// NewCharacter builds a Character with empty attribute/skill maps ready to
// populate.
func NewCharacter(characterID, clientID int64, name, class, race string) *Character {
	return &Character{
		CharacterID: characterID,
		ClientID:    clientID,
		Name:        name,
		Class:       class,
		Race:        race,
		Attributes:  make(map[string]int32),
		Skills:      make(map[string]Skill),
	}
}

// IsAlive reports whether the character has HP remaining.
func (c *Character) IsAlive() bool { return c.CurrentHealth > 0 }

// Attribute returns the named attribute value, 0 if unset.
func (c *Character) Attribute(slug string) int32 { return c.Attributes[slug] }

// HasSkill reports whether the character knows the given skill slug.
func (c *Character) HasSkill(slug string) bool {
	_, ok := c.Skills[slug]
	return ok
}

// Clone deep-copies the Character, including its attribute and skill maps,
// so a holder can mutate the copy without racing the registry's original.
func (c *Character) Clone() *Character {
	clone := *c
	clone.Attributes = make(map[string]int32, len(c.Attributes))
	for k, v := range c.Attributes {
		clone.Attributes[k] = v
	}
	clone.Skills = make(map[string]Skill, len(c.Skills))
	for k, v := range c.Skills {
		clone.Skills[k] = v
	}
	return &clone
}
