package p2p

import (
	"context"
	"sync"

	"github.com/fantasy-builders/grishinium/internal/log"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/tx"
)

// Gossip fans a transaction or block out to every known peer
// concurrently, with the client's standard 5s-per-peer timeout (spec.md
// §4.7). A single slow or unreachable peer never blocks the others, and
// no in-flight gossip is awaited past that timeout, matching §5's
// shutdown rule that gossip is never awaited on exit.
type Gossip struct {
	client *Client
	peers  *PeerStore
}

// NewGossip returns a gossip fan-out driven by client against peers.
func NewGossip(client *Client, peers *PeerStore) *Gossip {
	return &Gossip{client: client, peers: peers}
}

// BroadcastTransaction sends t to every known peer. Failures are logged
// and dropped (spec.md §7: "a single peer cannot stall the node"); they
// never fail the caller and never remove the peer outright, only count
// toward its staleness.
func (g *Gossip) BroadcastTransaction(ctx context.Context, t *tx.Transaction) int {
	return g.fanOut(func(peerURL string) error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return g.client.PostTransaction(reqCtx, peerURL, t)
	}, "transaction", t.TxID.String())
}

// BroadcastBlock sends b to every known peer.
func (g *Gossip) BroadcastBlock(ctx context.Context, b *block.Block) int {
	return g.fanOut(func(peerURL string) error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return g.client.PostBlock(reqCtx, peerURL, b)
	}, "block", b.Hash.String())
}

func (g *Gossip) fanOut(send func(peerURL string) error, kind, id string) int {
	peers := g.peers.List()
	var wg sync.WaitGroup
	var mu sync.Mutex
	delivered := 0

	for _, peerURL := range peers {
		wg.Add(1)
		go func(peerURL string) {
			defer wg.Done()
			if err := send(peerURL); err != nil {
				g.peers.MarkUnreachable(peerURL)
				log.Network.Debug().Err(err).Str(kind, id).Str("peer", peerURL).Msg("gossip delivery failed")
				return
			}
			mu.Lock()
			delivered++
			mu.Unlock()
		}(peerURL)
	}
	wg.Wait()

	log.Network.Debug().Str(kind, id).Int("delivered", delivered).Int("peers", len(peers)).Msg("gossip broadcast")
	return delivered
}
