package store

import (
	"time"

	"github.com/google/uuid"

	"authgate/internal/apperr"
	"authgate/internal/metrics"
	"authgate/internal/model"
)

func recordMutation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordStoreMutation(operation, outcome)
}

// CreateEntry inserts a new entry, failing on an inconsistent kind/hash
// shape, a name clash, or an unknown group id.
func (s *Store) CreateEntry(e model.AuthEntry) (model.AuthEntry, error) {
	e.ID = uuid.New()
	e.GroupIDs = model.DedupeGroupIDs(e.GroupIDs)
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	err := s.mutate(func(doc *model.DataFile) error {
		if err := e.Validate(); err != nil {
			return apperr.InvalidEntry(err)
		}
		for _, existing := range doc.Entries {
			if existing.Name == e.Name {
				return apperr.DuplicateEntryName(e.Name)
			}
		}
		for _, gid := range e.GroupIDs {
			if !hasGroup(doc.Groups, gid) {
				return apperr.GroupNotFound(gid.String())
			}
		}
		doc.Entries = append(doc.Entries, e)
		return nil
	})
	recordMutation("create_entry", err)
	if err != nil {
		return model.AuthEntry{}, err
	}
	return e, nil
}

// EntryUpdate carries the partial fields accepted by UpdateEntry; a nil
// pointer means "leave unchanged".
type EntryUpdate struct {
	Name         *string
	Username     *string
	PasswordHash *string
	TokenHash    *string
	GroupIDs     *[]uuid.UUID
}

// UpdateEntry applies a partial update, rechecking the entry's kind/hash
// shape, name uniqueness (excluding itself) and group referential
// integrity, and bumps UpdatedAt.
func (s *Store) UpdateEntry(id uuid.UUID, upd EntryUpdate) (model.AuthEntry, error) {
	var result model.AuthEntry
	err := s.mutate(func(doc *model.DataFile) error {
		idx := findEntryIndex(doc.Entries, id)
		if idx < 0 {
			return apperr.EntryNotFound(id.String())
		}
		e := &doc.Entries[idx]

		if upd.Name != nil && *upd.Name != e.Name {
			for _, other := range doc.Entries {
				if other.ID != id && other.Name == *upd.Name {
					return apperr.DuplicateEntryName(*upd.Name)
				}
			}
			e.Name = *upd.Name
		}
		if upd.Username != nil {
			e.Username = *upd.Username
		}
		if upd.PasswordHash != nil {
			e.PasswordHash = *upd.PasswordHash
		}
		if upd.TokenHash != nil {
			e.TokenHash = *upd.TokenHash
		}
		if upd.GroupIDs != nil {
			gids := model.DedupeGroupIDs(*upd.GroupIDs)
			for _, gid := range gids {
				if !hasGroup(doc.Groups, gid) {
					return apperr.GroupNotFound(gid.String())
				}
			}
			e.GroupIDs = gids
		}
		if err := e.Validate(); err != nil {
			return apperr.InvalidEntry(err)
		}
		e.UpdatedAt = time.Now().UTC()
		result = *e
		return nil
	})
	recordMutation("update_entry", err)
	if err != nil {
		return model.AuthEntry{}, err
	}
	return result, nil
}

// DeleteEntry removes the entry with the given id.
func (s *Store) DeleteEntry(id uuid.UUID) error {
	err := s.mutate(func(doc *model.DataFile) error {
		idx := findEntryIndex(doc.Entries, id)
		if idx < 0 {
			return apperr.EntryNotFound(id.String())
		}
		doc.Entries = append(doc.Entries[:idx], doc.Entries[idx+1:]...)
		return nil
	})
	recordMutation("delete_entry", err)
	return err
}

// CreateGroup inserts a new group, optionally adding its id to the named
// entries' GroupIDs (add-or-keep; other entries are untouched).
func (s *Store) CreateGroup(g model.Group, entryIDs []uuid.UUID) (model.Group, error) {
	g.ID = uuid.New()

	err := s.mutate(func(doc *model.DataFile) error {
		for _, existing := range doc.Groups {
			if existing.Name == g.Name {
				return apperr.DuplicateGroupName(g.Name)
			}
		}
		for _, eid := range entryIDs {
			if findEntryIndex(doc.Entries, eid) < 0 {
				return apperr.EntryNotFound(eid.String())
			}
		}
		doc.Groups = append(doc.Groups, g)

		now := time.Now().UTC()
		for _, eid := range entryIDs {
			idx := findEntryIndex(doc.Entries, eid)
			e := &doc.Entries[idx]
			if !e.HasGroup(g.ID) {
				e.GroupIDs = append(e.GroupIDs, g.ID)
				e.UpdatedAt = now
			}
		}
		return nil
	})
	recordMutation("create_group", err)
	if err != nil {
		return model.Group{}, err
	}
	return g, nil
}

// UpdateGroup renames a group and, when entryIDs is non-nil, reshapes
// membership so exactly those entries (and no others) belong to the group.
// Only entries whose membership actually changes have UpdatedAt bumped.
func (s *Store) UpdateGroup(id uuid.UUID, name string, entryIDs *[]uuid.UUID) (model.Group, error) {
	var result model.Group
	err := s.mutate(func(doc *model.DataFile) error {
		gIdx := findGroupIndex(doc.Groups, id)
		if gIdx < 0 {
			return apperr.GroupNotFound(id.String())
		}
		if name != doc.Groups[gIdx].Name {
			for _, other := range doc.Groups {
				if other.ID != id && other.Name == name {
					return apperr.DuplicateGroupName(name)
				}
			}
			doc.Groups[gIdx].Name = name
		}
		result = doc.Groups[gIdx]

		if entryIDs == nil {
			return nil
		}
		wanted := make(map[uuid.UUID]struct{}, len(*entryIDs))
		for _, eid := range *entryIDs {
			if findEntryIndex(doc.Entries, eid) < 0 {
				return apperr.EntryNotFound(eid.String())
			}
			wanted[eid] = struct{}{}
		}

		now := time.Now().UTC()
		for i := range doc.Entries {
			e := &doc.Entries[i]
			_, shouldHave := wanted[e.ID]
			has := e.HasGroup(id)
			switch {
			case shouldHave && !has:
				e.GroupIDs = append(e.GroupIDs, id)
				e.UpdatedAt = now
			case !shouldHave && has:
				e.GroupIDs = removeGroupID(e.GroupIDs, id)
				e.UpdatedAt = now
			}
		}
		return nil
	})
	recordMutation("update_group", err)
	if err != nil {
		return model.Group{}, err
	}
	return result, nil
}

// DeleteGroup removes the group and strips its id from every entry's
// GroupIDs, bumping UpdatedAt on touched entries.
func (s *Store) DeleteGroup(id uuid.UUID) error {
	err := s.mutate(func(doc *model.DataFile) error {
		gIdx := findGroupIndex(doc.Groups, id)
		if gIdx < 0 {
			return apperr.GroupNotFound(id.String())
		}
		doc.Groups = append(doc.Groups[:gIdx], doc.Groups[gIdx+1:]...)

		now := time.Now().UTC()
		for i := range doc.Entries {
			e := &doc.Entries[i]
			if e.HasGroup(id) {
				e.GroupIDs = removeGroupID(e.GroupIDs, id)
				e.UpdatedAt = now
			}
		}
		return nil
	})
	recordMutation("delete_group", err)
	return err
}

func findEntryIndex(entries []model.AuthEntry, id uuid.UUID) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func findGroupIndex(groups []model.Group, id uuid.UUID) int {
	for i, g := range groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func hasGroup(groups []model.Group, id uuid.UUID) bool {
	return findGroupIndex(groups, id) >= 0
}

func removeGroupID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
