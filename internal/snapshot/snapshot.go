// Package snapshot manages a set of labeled, point-in-time backups of an
// emberdb data directory, each produced via Engine.Backup and identified
// by an ID the caller supplies (or a timestamp-derived default).
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/emberdb/emberdb"
	"github.com/emberdb/emberdb/utils"
)

const metaFileName = "meta.json"

// Meta describes one snapshot without requiring its data directory to be
// opened.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	Dir       string    `json:"dir"`
}

// Manager stores snapshots as sibling directories under a root directory,
// each a full copy of an emberdb data directory at the moment Create ran.
type Manager struct {
	root string
}

// NewManager creates a Manager that stores snapshots under root.
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("snapshot: mkdir %s: %w", root, err)
	}
	return &Manager{root: root}, nil
}

// Create backs up db into a new snapshot directory named id (or a
// timestamp-derived name if id is empty) and records its metadata.
func (m *Manager) Create(id string, db *emberdb.Engine) (Meta, error) {
	if id == "" {
		id = fmt.Sprintf("snap-%d", time.Now().UnixNano())
	}

	dir := filepath.Join(m.root, id)
	if _, err := os.Stat(dir); err == nil {
		return Meta{}, fmt.Errorf("snapshot: %s already exists", id)
	}

	if err := db.Backup(dir); err != nil {
		return Meta{}, fmt.Errorf("snapshot: backup %s: %w", id, err)
	}

	size, err := utils.DirSize(dir)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: measure %s: %w", id, err)
	}

	meta := Meta{ID: id, CreatedAt: time.Now(), SizeBytes: size, Dir: dir}
	if err := m.writeMeta(dir, meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// List returns metadata for every snapshot under root, newest first.
func (m *Manager) List() ([]Meta, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list %s: %w", m.root, err)
	}

	var metas []Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := m.readMeta(filepath.Join(m.root, entry.Name()))
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].CreatedAt.After(metas[j].CreatedAt) })
	return metas, nil
}

// Dir returns the on-disk directory for snapshot id, suitable for passing
// as Options.DirPath to emberdb.Open to restore it.
func (m *Manager) Dir(id string) string {
	return filepath.Join(m.root, id)
}

// Delete removes a snapshot directory by ID.
func (m *Manager) Delete(id string) error {
	dir := m.Dir(id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("snapshot: %s: %w", id, err)
	}
	return os.RemoveAll(dir)
}

func (m *Manager) writeMeta(dir string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: encode meta for %s: %w", meta.ID, err)
	}
	return os.WriteFile(filepath.Join(dir, metaFileName), data, 0644)
}

func (m *Manager) readMeta(dir string) (Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return Meta{}, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}
