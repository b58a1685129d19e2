package registry

import (
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// MobTemplateRegistry holds immutable per-type mob records loaded once from
// upstream (SET_ALL_MOBS_LIST / SET_ALL_MOBS_ATTRIBUTES / SET_ALL_MOBS_SKILLS).
type MobTemplateRegistry struct {
	mu   sync.RWMutex
	byID map[int64]*model.MobTemplate
}

// NewMobTemplateRegistry creates an empty MobTemplateRegistry.
func NewMobTemplateRegistry() *MobTemplateRegistry {
	return &MobTemplateRegistry{byID: make(map[int64]*model.MobTemplate)}
}

// ReplaceAll swaps the entire template set, used by SET_ALL_MOBS_LIST.
func (r *MobTemplateRegistry) ReplaceAll(templates []*model.MobTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[int64]*model.MobTemplate, len(templates))
	for _, t := range templates {
		r.byID[t.MobID] = t
	}
}

// MergeAttributes applies per-mob attribute updates without disturbing the
// rest of the template (SET_ALL_MOBS_ATTRIBUTES).
func (r *MobTemplateRegistry) MergeAttributes(mobID int64, attrs map[string]int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[mobID]
	if !ok {
		return
	}
	owned := t.Clone()
	for k, v := range attrs {
		owned.Attributes[k] = v
	}
	r.byID[mobID] = owned
}

// MergeSkills applies per-mob skill updates without disturbing the rest of
// the template (SET_ALL_MOBS_SKILLS).
func (r *MobTemplateRegistry) MergeSkills(mobID int64, skills map[string]model.Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[mobID]
	if !ok {
		return
	}
	owned := t.Clone()
	for k, v := range skills {
		owned.Skills[k] = v
	}
	r.byID[mobID] = owned
}

// Get returns a deep copy of the template, or (nil, false).
func (r *MobTemplateRegistry) Get(mobID int64) (*model.MobTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[mobID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}
