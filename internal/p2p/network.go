package p2p

import (
	"context"

	"github.com/fantasy-builders/grishinium/internal/chain"
	"github.com/fantasy-builders/grishinium/internal/log"
	"github.com/fantasy-builders/grishinium/internal/mempool"
)

// Network bundles the peer-network components a node needs: the inbound
// HTTP server, the outbound client, gossip fan-out, peer bookkeeping,
// and the background sync loop. It is the single collaborator the node
// orchestrator wires into place on startup.
type Network struct {
	NodeID string

	Peers  *PeerStore
	Client *Client
	Gossip *Gossip
	Server *Server
	Syncer *Syncer
}

// NewNetwork wires a complete peer-network stack for nodeID, operating
// against c and pool.
func NewNetwork(nodeID string, c *chain.Chain, pool *mempool.Pool) *Network {
	peers := NewPeerStore()
	client := NewClient(nodeID)
	gossip := NewGossip(client, peers)
	server := NewServer(nodeID, c, pool, peers, gossip)
	syncer := NewSyncer(client, peers, c)

	return &Network{
		NodeID: nodeID,
		Peers:  peers,
		Client: client,
		Gossip: gossip,
		Server: server,
		Syncer: syncer,
	}
}

// RegisterPeer adds url to the known peer set and, following the
// source's register_node, immediately pings it to confirm liveness and
// learn its node_id.
func (n *Network) RegisterPeer(ctx context.Context, url string) {
	if !n.Peers.Register(url) {
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	resp, err := n.Client.Ping(reqCtx, url)
	if err != nil {
		n.Peers.MarkUnreachable(url)
		log.Network.Warn().Str("peer", url).Err(err).Msg("registered peer did not respond to ping")
		return
	}
	n.Peers.Touch(url, resp.NodeID, resp.ChainLength)
	log.Network.Info().Str("peer", url).Str("peer_node_id", resp.NodeID).Msg("peer registered")
}

// Start runs the HTTP server and sync loop in the background, returning
// once the server is listening or has failed to start. serverErrs
// receives the server's terminal error (nil on a clean Shutdown).
func (n *Network) Start(ctx context.Context, addr string, serverErrs chan<- error) {
	go func() {
		serverErrs <- n.Server.ListenAndServe(addr)
	}()
	go n.Syncer.Run(ctx)
}

// Shutdown stops the HTTP listener. The sync loop stops on its own once
// ctx (passed to Start) is canceled.
func (n *Network) Shutdown(ctx context.Context) error {
	return n.Server.Shutdown(ctx)
}
