package p2p

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestSyncer_AdoptsStrictlyLongerValidPeerChain(t *testing.T) {
	founderKey, founder := testKey(t)

	local, _, _, _ := newTestChainFor(t, founderKey, founder)
	peerChain, peerPool, _, _ := newTestChainFor(t, founderKey, founder)
	appendEmptyBlock(t, peerChain, founderKey, founder, 1_700_000_100)
	appendEmptyBlock(t, peerChain, founderKey, founder, 1_700_000_200)

	peerPeers := NewPeerStore()
	peerSrv := NewServer("peer-node", peerChain, peerPool, peerPeers, NewGossip(NewClient("peer-node"), peerPeers))
	ts := httptest.NewServer(peerSrv.Handler())
	defer ts.Close()

	localPeers := NewPeerStore()
	localPeers.Register(ts.URL)
	syncer := NewSyncer(NewClient("local-node"), localPeers, local)

	if replaced := syncer.SyncOnce(context.Background()); !replaced {
		t.Fatalf("SyncOnce did not adopt the longer peer chain")
	}
	if local.Height() != peerChain.Height() {
		t.Errorf("local height = %d, want %d (peer's height)", local.Height(), peerChain.Height())
	}
	if local.Tip().Hash != peerChain.Tip().Hash {
		t.Errorf("local tip hash != peer tip hash after sync")
	}
}

func TestSyncer_KeepsLocalWhenNotStrictlyLonger(t *testing.T) {
	founderKey, founder := testKey(t)

	local, _, _, _ := newTestChainFor(t, founderKey, founder)
	peerChain, peerPool, _, _ := newTestChainFor(t, founderKey, founder)
	// peerChain has the same height as local (genesis only).

	peerPeers := NewPeerStore()
	peerSrv := NewServer("peer-node", peerChain, peerPool, peerPeers, NewGossip(NewClient("peer-node"), peerPeers))
	ts := httptest.NewServer(peerSrv.Handler())
	defer ts.Close()

	localPeers := NewPeerStore()
	localPeers.Register(ts.URL)
	syncer := NewSyncer(NewClient("local-node"), localPeers, local)

	if replaced := syncer.SyncOnce(context.Background()); replaced {
		t.Errorf("SyncOnce replaced the local chain with one that wasn't strictly longer")
	}
}

func TestSyncer_IgnoresPeerWithDifferentGenesis(t *testing.T) {
	localFounderKey, localFounder := testKey(t)
	otherFounderKey, otherFounder := testKey(t)

	local, _, _, _ := newTestChainFor(t, localFounderKey, localFounder)
	peerChain, peerPool, _, _ := newTestChainFor(t, otherFounderKey, otherFounder)
	appendEmptyBlock(t, peerChain, otherFounderKey, otherFounder, 1_700_000_100)

	peerPeers := NewPeerStore()
	peerSrv := NewServer("peer-node", peerChain, peerPool, peerPeers, NewGossip(NewClient("peer-node"), peerPeers))
	ts := httptest.NewServer(peerSrv.Handler())
	defer ts.Close()

	localPeers := NewPeerStore()
	localPeers.Register(ts.URL)
	syncer := NewSyncer(NewClient("local-node"), localPeers, local)

	if replaced := syncer.SyncOnce(context.Background()); replaced {
		t.Errorf("SyncOnce adopted a chain with a different genesis block")
	}
}

func TestSyncer_UnreachablePeerIsMarkedAndSkipped(t *testing.T) {
	founderKey, founder := testKey(t)
	local, _, _, _ := newTestChainFor(t, founderKey, founder)

	peers := NewPeerStore()
	peers.Register("http://127.0.0.1:1") // nothing listens here
	syncer := NewSyncer(NewClient("local-node"), peers, local)

	if replaced := syncer.SyncOnce(context.Background()); replaced {
		t.Errorf("SyncOnce should not replace the chain when every peer is unreachable")
	}
}
