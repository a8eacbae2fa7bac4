// Package store is the flat-file persistence layer: one YAML document per
// table and per character, written via an atomic temp-file-then-rename
// swap so a crash mid-write never leaves a half-written record behind.
// This follows willow's own screenshot-to-disk idiom (render once, write
// whole, never partially) generalized from PNG bytes to YAML documents via
// gopkg.in/yaml.v3.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prtfnx-vtt/vttcore/characters"
	"github.com/prtfnx-vtt/vttcore/scene"
)

// YAMLStore persists tables and characters under a root directory, one
// file per record: <root>/tables/<id>.yaml and <root>/characters/<id>.yaml.
type YAMLStore struct {
	root string
}

// NewYAMLStore ensures the tables/ and characters/ subdirectories exist
// under root and returns a store rooted there.
func NewYAMLStore(root string) (*YAMLStore, error) {
	for _, sub := range []string{"tables", "characters"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s dir: %w", sub, err)
		}
	}
	return &YAMLStore{root: root}, nil
}

func (y *YAMLStore) tablePath(id string) string      { return filepath.Join(y.root, "tables", id+".yaml") }
func (y *YAMLStore) characterPath(id string) string  { return filepath.Join(y.root, "characters", id+".yaml") }

// writeAtomic marshals v as YAML and swaps it into path via a same-
// directory temp file, so readers never observe a partial write.
func writeAtomic(path string, v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// SaveTable implements servercore.Persister.
func (y *YAMLStore) SaveTable(d scene.TableDict) error {
	return writeAtomic(y.tablePath(d.TableID), d)
}

// LoadTable reads a previously saved table back into its dictionary form.
func (y *YAMLStore) LoadTable(id string) (scene.TableDict, error) {
	var d scene.TableDict
	raw, err := os.ReadFile(y.tablePath(id))
	if err != nil {
		return d, fmt.Errorf("store: read table %s: %w", id, err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("store: unmarshal table %s: %w", id, err)
	}
	return d, nil
}

// ListTables returns every persisted table id (the file's basename minus
// its extension).
func (y *YAMLStore) ListTables() ([]string, error) {
	return listIDs(filepath.Join(y.root, "tables"))
}

// characterRecordDict is the YAML wire shape of a characters.Record.
type characterRecordDict struct {
	CharacterID    string         `yaml:"character_id"`
	SessionID      string         `yaml:"session_id"`
	OwnerUserID    string         `yaml:"owner_user_id"`
	Name           string         `yaml:"name"`
	Data           map[string]any `yaml:"data"`
	Version        int            `yaml:"version"`
	UpdatedAt      time.Time      `yaml:"updated_at"`
	LastModifiedBy string         `yaml:"last_modified_by"`
}

// SaveCharacter implements characters.Persister.
func (y *YAMLStore) SaveCharacter(r characters.Record) error {
	d := characterRecordDict{
		CharacterID: r.CharacterID, SessionID: r.SessionID, OwnerUserID: r.OwnerUserID,
		Name: r.Name, Data: r.Data, Version: r.Version, UpdatedAt: r.UpdatedAt, LastModifiedBy: r.LastModifiedBy,
	}
	return writeAtomic(y.characterPath(r.CharacterID), d)
}

// DeleteCharacter implements characters.Persister.
func (y *YAMLStore) DeleteCharacter(characterID string) error {
	if err := os.Remove(y.characterPath(characterID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete character %s: %w", characterID, err)
	}
	return nil
}

// LoadCharacter reads a previously saved character record back.
func (y *YAMLStore) LoadCharacter(characterID string) (characters.Record, error) {
	var d characterRecordDict
	raw, err := os.ReadFile(y.characterPath(characterID))
	if err != nil {
		return characters.Record{}, fmt.Errorf("store: read character %s: %w", characterID, err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return characters.Record{}, fmt.Errorf("store: unmarshal character %s: %w", characterID, err)
	}
	return characters.Record{
		CharacterID: d.CharacterID, SessionID: d.SessionID, OwnerUserID: d.OwnerUserID,
		Name: d.Name, Data: d.Data, Version: d.Version, UpdatedAt: d.UpdatedAt, LastModifiedBy: d.LastModifiedBy,
	}, nil
}

func listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" {
			continue
		}
		ids = append(ids, name[:len(name)-len(ext)])
	}
	return ids, nil
}
