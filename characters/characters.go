// Package characters is the character-sheet store: save, optimistic-
// concurrency update, load, list, and owner-scoped delete. It keeps records
// in a mutex-guarded in-memory map, with a Persister (implemented by
// store.YAMLStore) as the durable backing (one YAML file per record,
// matching the teacher's flat-file persistence idiom generalized from
// screenshots to arbitrary records).
package characters

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prtfnx-vtt/vttcore/actions"
)

// Record is one character sheet. Data carries the sheet's free-form fields
// (stats, inventory, notes) opaquely — characters only enforces identity,
// ownership, and version, never sheet schema.
type Record struct {
	CharacterID    string
	SessionID      string
	OwnerUserID    string
	Name           string
	Data           map[string]any
	Version        int
	UpdatedAt      time.Time
	LastModifiedBy string
}

// Persister is the durable backing a Store writes through.
type Persister interface {
	SaveCharacter(Record) error
	DeleteCharacter(characterID string) error
}

// Store is the in-memory, mutex-guarded character table. now is injectable
// for deterministic tests; production callers leave it nil and get
// time.Now.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	persist Persister
	now     func() time.Time
}

// NewStore constructs an empty store. persist may be nil (in-memory only,
// e.g. for tests); now may be nil, defaulting to time.Now.
func NewStore(persist Persister, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{records: make(map[string]*Record), persist: persist, now: now}
}

// SaveCharacter creates a new record with version 1. characterID must be
// globally unique; a collision yields KindDuplicate.
func (s *Store) SaveCharacter(characterID, sessionID, ownerUserID, name string, data map[string]any) actions.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[characterID]; exists {
		return actions.ActionResult{Success: false, Message: "character id already exists",
			Err: &actions.ActionError{Kind: actions.KindDuplicate, Message: characterID}}
	}
	r := &Record{
		CharacterID: characterID, SessionID: sessionID, OwnerUserID: ownerUserID, Name: name,
		Data: data, Version: 1, UpdatedAt: s.now(), LastModifiedBy: ownerUserID,
	}
	s.records[characterID] = r
	if s.persist != nil {
		if err := s.persist.SaveCharacter(*r); err != nil {
			return actions.ActionResult{Success: false, Message: err.Error(),
				Err: &actions.ActionError{Kind: actions.KindStorage, Message: err.Error()}}
		}
	}
	return actions.ActionResult{Success: true, Message: "character saved", Data: characterID}
}

// UpdateCharacter applies a patch under optimistic concurrency: if
// expectedVersion doesn't match the record's current version, the update
// is rejected with KindVersionConflict and the current version is
// returned in Data so the caller can refetch and retry. owner_user_id is
// immutable and is never touched here.
func (s *Store) UpdateCharacter(characterID string, expectedVersion int, modifiedBy string, name *string, data map[string]any) actions.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[characterID]
	if !ok {
		return actions.ActionResult{Success: false, Message: "character not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: characterID}}
	}
	if r.Version != expectedVersion {
		return actions.ActionResult{Success: false, Message: fmt.Sprintf("version conflict: have %d, expected %d", r.Version, expectedVersion),
			Err: &actions.ActionError{Kind: actions.KindVersionConflict, Message: "version conflict"}, Data: r.Version}
	}
	if name != nil {
		r.Name = *name
	}
	for k, v := range data {
		if r.Data == nil {
			r.Data = make(map[string]any)
		}
		r.Data[k] = v
	}
	r.Version++
	r.UpdatedAt = s.now()
	r.LastModifiedBy = modifiedBy

	if s.persist != nil {
		if err := s.persist.SaveCharacter(*r); err != nil {
			return actions.ActionResult{Success: false, Message: err.Error(),
				Err: &actions.ActionError{Kind: actions.KindStorage, Message: err.Error()}}
		}
	}
	return actions.ActionResult{Success: true, Message: "character updated", Data: r.Version}
}

// LoadCharacter returns a copy of the current record.
func (s *Store) LoadCharacter(characterID string) actions.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[characterID]
	if !ok {
		return actions.ActionResult{Success: false, Message: "character not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: characterID}}
	}
	cp := *r
	return actions.ActionResult{Success: true, Message: "character loaded", Data: cp}
}

// ListCharacters returns every record owned by ownerUserID within
// sessionID, ordered by UpdatedAt descending (most recently touched
// first), per spec §4.7.
func (s *Store) ListCharacters(sessionID, ownerUserID string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.records {
		if r.SessionID == sessionID && r.OwnerUserID == ownerUserID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// DeleteCharacter hard-deletes a record. Only the owner may delete;
// anyone else gets KindPermissionDenied.
func (s *Store) DeleteCharacter(characterID, requestingUserID string) actions.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[characterID]
	if !ok {
		return actions.ActionResult{Success: false, Message: "character not found",
			Err: &actions.ActionError{Kind: actions.KindNotFound, Message: characterID}}
	}
	if r.OwnerUserID != requestingUserID {
		return actions.ActionResult{Success: false, Message: "only the owner may delete this character",
			Err: &actions.ActionError{Kind: actions.KindPermissionDenied, Message: characterID}}
	}
	delete(s.records, characterID)
	if s.persist != nil {
		if err := s.persist.DeleteCharacter(characterID); err != nil {
			return actions.ActionResult{Success: false, Message: err.Error(),
				Err: &actions.ActionError{Kind: actions.KindStorage, Message: err.Error()}}
		}
	}
	return actions.ActionResult{Success: true, Message: "character deleted", Data: characterID}
}
