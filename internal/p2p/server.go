// Package p2p implements the node's peer network: an HTTP server
// exposing the endpoint table of spec.md §4.7/§6, an outbound client and
// gossip fan-out, and the 60-second chain synchronization loop.
package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fantasy-builders/grishinium/internal/chain"
	"github.com/fantasy-builders/grishinium/internal/errs"
	"github.com/fantasy-builders/grishinium/internal/log"
	"github.com/fantasy-builders/grishinium/internal/mempool"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// ProtocolVersion is advertised in GET /ping responses.
const ProtocolVersion = "1.0.0"

// readTimeout bounds how long the server waits to read an inbound
// request, the threaded-server-equivalent suspension bound of spec.md §5.
const readTimeout = 5 * time.Second

// Handler answers a typed POST /message request. data is the message's
// "data" field, already JSON-decoded into a generic value; the return
// value is marshaled back to the caller as the response body.
type Handler func(data interface{}) (interface{}, error)

// Server exposes the node's peer-network endpoints over HTTP.
type Server struct {
	nodeID string
	chain  *chain.Chain
	pool   *mempool.Pool
	policy *mempool.Policy
	peers  *PeerStore
	gossip *Gossip

	handlers map[string]Handler
	http     *http.Server
}

// NewServer builds a server bound to nodeID, operating on chain and
// pool, advertising and contacting peers via peers/gossip. The "ping"
// message handler is registered automatically, matching the source's
// built-in handler.
func NewServer(nodeID string, c *chain.Chain, pool *mempool.Pool, peers *PeerStore, gossip *Gossip) *Server {
	s := &Server{
		nodeID:   nodeID,
		chain:    c,
		pool:     pool,
		policy:   mempool.DefaultPolicy(),
		peers:    peers,
		gossip:   gossip,
		handlers: make(map[string]Handler),
	}
	s.RegisterMessageHandler("ping", func(interface{}) (interface{}, error) {
		return map[string]string{"status": "pong", "node_id": s.nodeID}, nil
	})
	return s
}

// RegisterMessageHandler adds or replaces the handler for a POST
// /message type.
func (s *Server) RegisterMessageHandler(msgType string, h Handler) {
	s.handlers[msgType] = h
}

// Handler returns the server's routed http.Handler, useful for testing
// without binding a real listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /blocks", s.handleBlocks)
	mux.HandleFunc("GET /block/{hash}", s.handleBlock)
	mux.HandleFunc("GET /pending", s.handlePending)
	mux.HandleFunc("POST /transaction", s.handleTransaction)
	mux.HandleFunc("POST /block", s.handlePostBlock)
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("POST /nodes/register", s.handleNodesRegister)
	return s.withNodeIDHeader(mux)
}

// withNodeIDHeader sets X-Node-ID on every response, matching the
// source's _set_response.
func (s *Server) withNodeIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Node-ID", s.nodeID)
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server on addr, blocking until it
// stops. Returns http.ErrServerClosed on a clean Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: readTimeout,
	}
	log.Network.Info().Str("addr", addr).Msg("peer network listening")
	return s.http.ListenAndServe()
}

// Shutdown closes the listener without waiting on in-flight gossip
// (spec.md §5: "No in-flight gossip is awaited on shutdown").
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) senderNodeID(r *http.Request) string {
	if id := r.Header.Get("X-Node-ID"); id != "" {
		return id
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Network.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, kind errs.Kind, message string) {
	writeJSON(w, status, map[string]string{"error": string(kind), "message": message})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	log.Network.Debug().Str("peer", s.senderNodeID(r)).Msg("ping received")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"timestamp":    time.Now().Unix(),
		"node_id":      s.nodeID,
		"version":      ProtocolVersion,
		"chain_length": uint64(s.chain.Len()),
	})
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"blocks": s.chain.Blocks()})
	log.Network.Debug().Str("peer", s.senderNodeID(r)).Msg("blocks requested")
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	hash, err := types.HexToHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusNotFound, errs.MalformedMessage, "invalid block hash")
		return
	}
	b := s.chain.BlockByHash(hash)
	if b == nil {
		writeError(w, http.StatusNotFound, errs.MalformedMessage, "block not found")
		log.Network.Warn().Str("hash", hash.String()).Str("peer", s.senderNodeID(r)).Msg("requested block not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"block": b})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": s.pool.SelectForBlock(0)})
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transaction *tx.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Transaction == nil {
		writeError(w, http.StatusBadRequest, errs.MalformedMessage, "missing transaction data")
		return
	}

	sender := s.senderNodeID(r)
	if err := s.policy.Check(req.Transaction); err != nil {
		writeError(w, http.StatusBadRequest, errs.MalformedMessage, err.Error())
		log.Network.Warn().Str("tx_id", req.Transaction.TxID.String()).Str("peer", sender).Err(err).Msg("transaction rejected by policy")
		return
	}

	if _, err := s.pool.Add(req.Transaction); err != nil {
		status, kind := http.StatusBadRequest, errs.MalformedMessage
		if errors.Is(err, mempool.ErrAlreadyExists) {
			status, kind = http.StatusConflict, errs.DuplicateTxId
		}
		writeError(w, status, kind, err.Error())
		log.Network.Warn().Str("tx_id", req.Transaction.TxID.String()).Str("peer", sender).Err(err).Msg("transaction rejected")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	log.Network.Info().Str("tx_id", req.Transaction.TxID.String()).Str("peer", sender).Msg("transaction admitted")
}

func (s *Server) handlePostBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Block *block.Block `json:"block"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Block == nil {
		writeError(w, http.StatusBadRequest, errs.MalformedMessage, "missing block data")
		return
	}

	sender := s.senderNodeID(r)
	err := s.chain.Append(req.Block)
	if err == nil {
		s.pool.RemoveConfirmed(req.Block.Transactions)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		log.Network.Info().Str("hash", req.Block.Hash.String()).Str("peer", sender).Msg("block appended")
		return
	}

	kind := errs.KindOf(err)
	status := http.StatusBadRequest
	if kind == errs.BadIndex || kind == errs.BadPreviousHash {
		// Gossiped blocks that don't connect to our tip are orphans, not
		// malformed — spec.md §4.7 leaves orphan handling out of scope
		// beyond this status code; the sync loop is what actually catches
		// up a node that's behind.
		status = http.StatusConflict
	}
	writeError(w, status, kind, err.Error())
	log.Network.Warn().Str("hash", req.Block.Hash.String()).Str("peer", sender).Err(err).Msg("block rejected")
}

func (s *Server) handleNodesRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nodes []string `json:"nodes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errs.MalformedMessage, "missing nodes list")
		return
	}
	for _, url := range req.Nodes {
		if url == "" {
			continue
		}
		s.peers.Register(url)
	}
	log.Network.Info().Strs("nodes", req.Nodes).Str("peer", s.senderNodeID(r)).Msg("peers registered")
	writeJSON(w, http.StatusCreated, map[string]int{"total_nodes": s.peers.Count()})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string      `json:"type"`
		Data interface{} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		writeError(w, http.StatusBadRequest, errs.MalformedMessage, "invalid message format")
		return
	}

	h, exists := s.handlers[req.Type]
	if !exists {
		writeError(w, http.StatusBadRequest, errs.MalformedMessage, fmt.Sprintf("unknown message type: %s", req.Type))
		log.Network.Warn().Str("type", req.Type).Str("peer", s.senderNodeID(r)).Msg("unknown message type")
		return
	}

	resp, err := h(req.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errs.MalformedMessage, err.Error())
		log.Network.Error().Str("type", req.Type).Err(err).Msg("message handler failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
