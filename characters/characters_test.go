package characters

import (
	"testing"
	"time"

	"github.com/prtfnx-vtt/vttcore/actions"
)

func newStore() *Store {
	tick := time.Unix(1000, 0)
	return NewStore(nil, func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
}

func TestSaveCharacterDuplicateRejected(t *testing.T) {
	s := newStore()
	if r := s.SaveCharacter("c1", "sess1", "u1", "Aria", nil); !r.Success {
		t.Fatalf("first save failed: %+v", r)
	}
	r := s.SaveCharacter("c1", "sess1", "u1", "Aria2", nil)
	if r.Success || r.Err.Kind != actions.KindDuplicate {
		t.Fatalf("expected KindDuplicate, got %+v", r)
	}
}

func TestUpdateCharacterVersionConflict(t *testing.T) {
	s := newStore()
	s.SaveCharacter("c1", "sess1", "u1", "Aria", nil)

	r := s.UpdateCharacter("c1", 99, "u1", nil, map[string]any{"hp": 10})
	if r.Success || r.Err.Kind != actions.KindVersionConflict {
		t.Fatalf("expected KindVersionConflict, got %+v", r)
	}
}

func TestUpdateCharacterMonotonicVersion(t *testing.T) {
	s := newStore()
	s.SaveCharacter("c1", "sess1", "u1", "Aria", nil)

	r1 := s.UpdateCharacter("c1", 1, "u1", nil, map[string]any{"hp": 10})
	if !r1.Success || r1.Data.(int) != 2 {
		t.Fatalf("expected version 2 after first update, got %+v", r1)
	}
	r2 := s.UpdateCharacter("c1", 2, "u1", nil, map[string]any{"hp": 9})
	if !r2.Success || r2.Data.(int) != 3 {
		t.Fatalf("expected version 3 after second update, got %+v", r2)
	}
}

func TestDeleteCharacterOwnerOnly(t *testing.T) {
	s := newStore()
	s.SaveCharacter("c1", "sess1", "u1", "Aria", nil)

	r := s.DeleteCharacter("c1", "someone-else")
	if r.Success || r.Err.Kind != actions.KindPermissionDenied {
		t.Fatalf("expected KindPermissionDenied, got %+v", r)
	}
	r2 := s.DeleteCharacter("c1", "u1")
	if !r2.Success {
		t.Fatalf("owner delete should succeed, got %+v", r2)
	}
}

func TestListCharactersOrderedByUpdatedAtDesc(t *testing.T) {
	s := newStore()
	s.SaveCharacter("c1", "sess1", "u1", "First", nil)
	s.SaveCharacter("c2", "sess1", "u1", "Second", nil)
	s.UpdateCharacter("c1", 1, "u1", nil, nil) // bumps c1's UpdatedAt past c2's

	list := s.ListCharacters("sess1", "u1")
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].CharacterID != "c1" {
		t.Fatalf("most recently updated should be first, got %+v", list)
	}
}

func TestListCharactersScopedToOwnerAndSession(t *testing.T) {
	s := newStore()
	s.SaveCharacter("c1", "sess1", "u1", "Mine", nil)
	s.SaveCharacter("c2", "sess1", "u2", "NotMine", nil)
	s.SaveCharacter("c3", "sess2", "u1", "OtherSession", nil)

	list := s.ListCharacters("sess1", "u1")
	if len(list) != 1 || list[0].CharacterID != "c1" {
		t.Fatalf("expected only c1, got %+v", list)
	}
}
