package p2p

import (
	"context"
	"time"

	"github.com/fantasy-builders/grishinium/internal/chain"
	"github.com/fantasy-builders/grishinium/internal/log"
)

// SyncInterval is the cadence of the chain synchronization loop
// (spec.md §4.7: "every 60 s").
const SyncInterval = 60 * time.Second

// Syncer periodically queries every known peer's chain and adopts the
// longest one that is both strictly longer than the local chain and
// individually valid from genesis — the only place the local chain is
// ever replaced wholesale (spec.md §4.7).
type Syncer struct {
	client *Client
	peers  *PeerStore
	chain  *chain.Chain
}

// NewSyncer returns a syncer driving chain's Replace from the chains
// reported by peers, fetched via client.
func NewSyncer(client *Client, peers *PeerStore, c *chain.Chain) *Syncer {
	return &Syncer{client: client, peers: peers, chain: c}
}

// Run blocks, triggering a sync cycle every SyncInterval until ctx is
// canceled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce runs a single synchronization cycle: query every peer's
// /blocks, pick the longest chain among them via fork choice weighed by
// the local node's current stake distribution, and — if it is strictly
// longer than the local chain — hand it to chain.Replace, which
// re-validates every block from genesis before committing (spec.md
// §4.3). Returns true if the local chain was replaced.
func (s *Syncer) SyncOnce(ctx context.Context) bool {
	local := s.chain.Blocks()
	best := local
	stakes := s.chain.Stakes()

	for _, peerURL := range s.peers.List() {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		candidate, err := s.client.GetBlocks(reqCtx, peerURL)
		cancel()
		if err != nil {
			s.peers.MarkUnreachable(peerURL)
			log.Network.Debug().Str("peer", peerURL).Err(err).Msg("sync: peer unreachable")
			continue
		}
		s.peers.Touch(peerURL, "", uint64(len(candidate)))
		if len(candidate) == 0 || len(local) == 0 || candidate[0].Hash != local[0].Hash {
			continue
		}
		best = chain.ForkChoice(best, candidate, stakes)
	}

	if len(best) <= len(local) {
		log.Network.Debug().Int("height", len(local)-1).Msg("sync: local chain is authoritative")
		return false
	}

	if err := s.chain.Replace(best); err != nil {
		log.Network.Warn().Err(err).Msg("sync: candidate chain failed validation, keeping local chain")
		return false
	}

	log.Network.Info().Int("height", len(best)-1).Msg("sync: adopted longer peer chain")
	return true
}
