package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fantasy-builders/grishinium/internal/errs"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// requestTimeout bounds every outbound peer call (spec.md §5: "All
// outbound network calls use a 5-second timeout").
const requestTimeout = 5 * time.Second

// Client issues outbound requests to peers, identifying this node via
// X-Node-ID on every call.
type Client struct {
	http   *http.Client
	nodeID string
}

// NewClient returns a client that identifies itself to peers as nodeID.
func NewClient(nodeID string) *Client {
	return &Client{
		http:   &http.Client{Timeout: requestTimeout},
		nodeID: nodeID,
	}
}

// PingResponse is the decoded body of GET /ping.
type PingResponse struct {
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
	NodeID      string `json:"node_id"`
	Version     string `json:"version"`
	ChainLength uint64 `json:"chain_length"`
}

// Ping checks a peer's liveness and reads its advertised identity.
func (c *Client) Ping(ctx context.Context, peerURL string) (*PingResponse, error) {
	var out PingResponse
	if err := c.doJSON(ctx, http.MethodGet, peerURL+"/ping", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type blocksResponse struct {
	Blocks []*block.Block `json:"blocks"`
}

// GetBlocks fetches a peer's full chain.
func (c *Client) GetBlocks(ctx context.Context, peerURL string) ([]*block.Block, error) {
	var out blocksResponse
	if err := c.doJSON(ctx, http.MethodGet, peerURL+"/blocks", nil, &out); err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

type blockResponse struct {
	Block *block.Block `json:"block"`
}

// GetBlock fetches a single block by hash from a peer.
func (c *Client) GetBlock(ctx context.Context, peerURL string, hash types.Hash) (*block.Block, error) {
	var out blockResponse
	if err := c.doJSON(ctx, http.MethodGet, peerURL+"/block/"+hash.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Block, nil
}

type pendingResponse struct {
	Transactions []*tx.Transaction `json:"transactions"`
}

// GetPending fetches a peer's mempool snapshot.
func (c *Client) GetPending(ctx context.Context, peerURL string) ([]*tx.Transaction, error) {
	var out pendingResponse
	if err := c.doJSON(ctx, http.MethodGet, peerURL+"/pending", nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// PostTransaction gossips a transaction to a peer.
func (c *Client) PostTransaction(ctx context.Context, peerURL string, t *tx.Transaction) error {
	body := map[string]*tx.Transaction{"transaction": t}
	var out statusResponse
	return c.doJSON(ctx, http.MethodPost, peerURL+"/transaction", body, &out)
}

// PostBlock gossips a block to a peer.
func (c *Client) PostBlock(ctx context.Context, peerURL string, b *block.Block) error {
	body := map[string]*block.Block{"block": b}
	var out statusResponse
	return c.doJSON(ctx, http.MethodPost, peerURL+"/block", body, &out)
}

type registerResponse struct {
	TotalNodes int `json:"total_nodes"`
}

// RegisterWith tells peerURL about selfURL, learning its reported node
// count back.
func (c *Client) RegisterWith(ctx context.Context, peerURL, selfURL string) (int, error) {
	body := map[string][]string{"nodes": {selfURL}}
	var out registerResponse
	if err := c.doJSON(ctx, http.MethodPost, peerURL+"/nodes/register", body, &out); err != nil {
		return 0, err
	}
	return out.TotalNodes, nil
}

// PostMessage sends a typed RPC to a peer and returns its raw response.
func (c *Client) PostMessage(ctx context.Context, peerURL, msgType string, data interface{}) (json.RawMessage, error) {
	body := map[string]interface{}{"type": msgType, "data": data}
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, peerURL+"/message", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errs.New(errs.SerializationError, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errs.New(errs.PeerUnreachable, fmt.Errorf("build request to %s: %w", url, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Node-ID", c.nodeID)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errs.New(errs.PeerTimeout, fmt.Errorf("%s: %w", url, err))
		}
		return errs.New(errs.PeerUnreachable, fmt.Errorf("%s: %w", url, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.PeerUnreachable, fmt.Errorf("read response from %s: %w", url, err))
	}

	if resp.StatusCode >= 300 {
		return errs.New(statusToKind(resp.StatusCode), fmt.Errorf("%s replied %d: %s", url, resp.StatusCode, data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.New(errs.MalformedMessage, fmt.Errorf("decode response from %s: %w", url, err))
	}
	return nil
}

func statusToKind(code int) errs.Kind {
	switch {
	case code == http.StatusNotFound:
		return errs.MalformedMessage
	case code == http.StatusConflict:
		return errs.DuplicateTxId
	case code >= 500:
		return errs.PeerUnreachable
	default:
		return errs.MalformedMessage
	}
}
