package p2p

import (
	"testing"
	"time"

	"github.com/fantasy-builders/grishinium/internal/chain"
	"github.com/fantasy-builders/grishinium/internal/consensus"
	"github.com/fantasy-builders/grishinium/internal/mempool"
	"github.com/fantasy-builders/grishinium/internal/storage"
	"github.com/fantasy-builders/grishinium/internal/token"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/crypto"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

const testInterval = 15 * time.Second

func testKey(t *testing.T) (*crypto.PrivateKey, types.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, crypto.AddressFromPubKey(key.PublicKey())
}

// newTestChain builds a fresh in-memory chain whose founder is already
// staked and therefore the sole validator, plus the mempool a server
// under test operates on.
func newTestChain(t *testing.T) (*chain.Chain, *mempool.Pool, *crypto.PrivateKey, types.Address) {
	t.Helper()
	founderKey, founder := testKey(t)
	return newTestChainFor(t, founderKey, founder)
}

// newTestChainFor is newTestChain parameterized on the founder keypair,
// so two independently-built chains (e.g. a "local" and a "peer" one in
// the sync tests) can share the same genesis block.
func newTestChainFor(t *testing.T, founderKey *crypto.PrivateKey, founder types.Address) (*chain.Chain, *mempool.Pool, *crypto.PrivateKey, types.Address) {
	t.Helper()

	ledger := token.New()
	engine := consensus.New(ledger, testInterval)
	store := storage.NewChainStore(storage.NewMemory())

	c, err := chain.Open(store, ledger, engine, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	stakeTx := tx.NewBuilder(tx.STAKE).From(founder).WithAmount(1000 * 100_000_000).WithTimestamp(1_700_000_000).Build()
	if err := stakeTx.Sign(founderKey); err != nil {
		t.Fatalf("sign bootstrap stake: %v", err)
	}

	if _, err := c.InitGenesis(founder, 2000*100_000_000, 1_700_000_000, []*tx.Transaction{stakeTx}); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}

	pool := mempool.New(ledgerBalanceView{c}, 0)
	return c, pool, founderKey, founder
}

// appendEmptyBlock extends c with one more block proposed by proposerKey,
// carrying no transactions beyond what the chain itself requires.
func appendEmptyBlock(t *testing.T, c *chain.Chain, proposerKey *crypto.PrivateKey, proposer types.Address, ts uint64) *block.Block {
	t.Helper()
	tip := c.Tip()
	b := block.NewBlock(tip.Index+1, tip.Hash, ts, nil, proposer)
	if err := b.Sign(proposerKey); err != nil {
		t.Fatalf("sign block: %v", err)
	}
	if err := c.Append(b); err != nil {
		t.Fatalf("append block %d: %v", b.Index, err)
	}
	return b
}

// ledgerBalanceView adapts *chain.Chain to mempool.BalanceChecker.
type ledgerBalanceView struct {
	c *chain.Chain
}

func (v ledgerBalanceView) Balance(addr types.Address) uint64 {
	return v.c.Balance(addr)
}

// buildTestBlock constructs and signs a block at index carrying txs,
// without asserting it actually extends previous — used to exercise the
// orphan-rejection path, where index/previous_hash deliberately don't
// line up.
func buildTestBlock(t *testing.T, previous *block.Block, proposerKey *crypto.PrivateKey, proposer types.Address, ts uint64, index uint64, txs []*tx.Transaction) *block.Block {
	t.Helper()
	b := block.NewBlock(index, previous.Hash, ts, txs, proposer)
	if err := b.Sign(proposerKey); err != nil {
		t.Fatalf("sign block: %v", err)
	}
	return b
}
