package mempool

import (
	"encoding/json"
	"os"

	"github.com/fantasy-builders/grishinium/pkg/tx"
)

// snapshotEntry is the on-disk shape of one pending transaction.
type snapshotEntry struct {
	Tx *tx.Transaction `json:"tx"`
}

// SaveSnapshot writes every pending transaction to path, fee-rate
// descending, so a restarted node can repopulate its mempool instead of
// starting empty (spec.md §6's per-node mempool snapshot file). Writes go
// through a temp file plus rename so a crash mid-write never leaves a
// truncated snapshot behind.
func (p *Pool) SaveSnapshot(path string) error {
	p.mu.RLock()
	entries := p.sortedLocked()
	p.mu.RUnlock()

	out := make([]snapshotEntry, len(entries))
	for i, e := range entries {
		out[i] = snapshotEntry{Tx: e.tx}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot repopulates the pool from a snapshot file previously
// written by SaveSnapshot. A missing file is not an error — a fresh node
// simply starts with an empty mempool. Entries that no longer pass Add
// (e.g. already settled by a block produced while the node was down, or
// now overcommitted) are silently dropped rather than failing the whole
// load.
func (p *Pool) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	for _, e := range entries {
		p.Add(e.Tx)
	}
	return nil
}
