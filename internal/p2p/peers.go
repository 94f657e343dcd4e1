package p2p

import (
	"sync"
	"time"
)

// unreachableGrace is how long a peer may go without a successful
// contact before it is dropped from the peer set (spec.md §4.7: gossip
// failures count toward staleness but don't remove a peer by themselves).
const unreachableGrace = 10 * time.Minute

// PeerInfo is the network layer's view of one peer, keyed by its URL in
// PeerStore.
type PeerInfo struct {
	NodeID      string
	LastSeen    time.Time
	ChainLength uint64

	registeredAt time.Time
}

// PeerStore holds the node's known peer set and the last-observed state
// of each one. It carries its own lock, independent of the chain/ledger
// lock and the mempool's, per spec.md §5's "peer-set mutations are
// fine-grained and protected by a lock local to the network layer."
type PeerStore struct {
	mu    sync.RWMutex
	peers map[string]*PeerInfo
}

// NewPeerStore returns an empty peer store.
func NewPeerStore() *PeerStore {
	return &PeerStore{peers: make(map[string]*PeerInfo)}
}

// Register adds url to the known peer set if not already present.
// Returns true if url was newly added.
func (s *PeerStore) Register(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.peers[url]; exists {
		return false
	}
	s.peers[url] = &PeerInfo{registeredAt: time.Now()}
	return true
}

// Touch records a successful contact with url: its reported chain
// length, and refreshes last_seen to now. An empty nodeID leaves any
// previously learned node_id in place (used when contact came from an
// endpoint, like /blocks, that doesn't echo the peer's identity).
func (s *PeerStore) Touch(url, nodeID string, chainLength uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.peers[url]
	if !exists {
		p = &PeerInfo{registeredAt: time.Now()}
		s.peers[url] = p
	}
	if nodeID != "" {
		p.NodeID = nodeID
	}
	p.ChainLength = chainLength
	p.LastSeen = time.Now()
}

// MarkUnreachable records a failed contact attempt with url. A peer never
// successfully reached is dropped once it has been registered for longer
// than the grace period; a peer reached before is dropped once it has been
// silent for longer than it. An occasional gossip failure alone never
// removes a peer.
func (s *PeerStore) MarkUnreachable(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.peers[url]
	if !exists {
		return
	}
	if p.LastSeen.IsZero() {
		if time.Since(p.registeredAt) > unreachableGrace {
			delete(s.peers, url)
		}
		return
	}
	if time.Since(p.LastSeen) > unreachableGrace {
		delete(s.peers, url)
	}
}

// List returns every known peer URL.
func (s *PeerStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.peers))
	for url := range s.peers {
		out = append(out, url)
	}
	return out
}

// Count returns the number of known peers.
func (s *PeerStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Info returns a copy of url's PeerInfo, and whether it is known.
func (s *PeerStore) Info(url string) (PeerInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, exists := s.peers[url]
	if !exists {
		return PeerInfo{}, false
	}
	return *p, true
}
