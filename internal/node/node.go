// Package node wires the chain, consensus engine, mempool, and peer
// network into the node orchestrator described in spec.md §4.8: it loads
// or bootstraps the chain on startup, drives the proposer-cadence loop
// that turns this node into a block producer when it is the elected
// proposer, and tears everything down cleanly on shutdown.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fantasy-builders/grishinium/config"
	"github.com/fantasy-builders/grishinium/internal/chain"
	"github.com/fantasy-builders/grishinium/internal/consensus"
	"github.com/fantasy-builders/grishinium/internal/log"
	"github.com/fantasy-builders/grishinium/internal/mempool"
	"github.com/fantasy-builders/grishinium/internal/p2p"
	"github.com/fantasy-builders/grishinium/internal/storage"
	"github.com/fantasy-builders/grishinium/internal/token"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// genesisMintAmount is the GENESIS transaction amount a fresh network's
// founding node credits itself on first run (spec.md §8 scenario 1: 10^8
// tokens at 8 decimal places).
const genesisMintAmount = 100_000_000 * 100_000_000

// Node holds every component the orchestrator owns and runs the main
// loop described in spec.md §4.8.
type Node struct {
	cfg      *config.Config
	identity *Identity

	db         storage.DB
	chainStore *storage.ChainStore
	chain      *chain.Chain
	engine     *consensus.Engine
	pool       *mempool.Pool
	network    *p2p.Network

	blockInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a node from cfg: it unlocks (or creates) this node's
// identity, opens durable storage, replays the chain, and — if storage
// was empty — bootstraps a fresh genesis crediting the node's own
// address, staking enough of it to become the network's first
// validator.
func New(cfg *config.Config) (*Node, error) {
	identity, err := LoadOrCreateIdentity(cfg.IdentityFile())
	if err != nil {
		return nil, fmt.Errorf("load node identity: %w", err)
	}
	return newWithIdentity(cfg, identity)
}

// newWithIdentity builds a node from an already-unlocked identity,
// skipping the interactive passphrase prompt in New — the seam tests use
// to exercise the orchestrator without a controlling terminal.
func newWithIdentity(cfg *config.Config, identity *Identity) (*Node, error) {
	if cfg.Testnet {
		types.SetAddressVersion(types.TestnetVersion)
	} else {
		types.SetAddressVersion(types.MainnetVersion)
	}

	db, err := storage.NewBadger(cfg.BlocksDBFile())
	if err != nil {
		return nil, fmt.Errorf("open chain storage: %w", err)
	}
	chainStore := storage.NewChainStore(db)

	ledger := token.New()
	blockInterval := time.Duration(cfg.BlockIntervalTarget) * time.Second
	engine := consensus.New(ledger, blockInterval)
	maxClockSkew := time.Duration(cfg.MaxClockSkew) * time.Second

	c, err := chain.Open(chainStore, ledger, engine, maxClockSkew)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open chain: %w", err)
	}

	if c.Len() == 0 {
		if err := bootstrapGenesis(c, cfg, identity); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap genesis: %w", err)
		}
		log.Node.Info().Str("founder", identity.Address.String()).Msg("bootstrapped fresh genesis block")
	}

	pool := mempool.New(c, 0)
	if err := pool.LoadSnapshot(cfg.MempoolSnapshotFile()); err != nil {
		log.Node.Warn().Err(err).Msg("failed to load mempool snapshot, starting with an empty pool")
	}

	network := p2p.NewNetwork(identity.Address.String(), c, pool)

	n := &Node{
		cfg:           cfg,
		identity:      identity,
		db:            db,
		chainStore:    chainStore,
		chain:         c,
		engine:        engine,
		pool:          pool,
		network:       network,
		blockInterval: blockInterval,
	}
	return n, nil
}

// bootstrapGenesis mints genesisMintAmount to founder and has it
// immediately stake enough to clear the validator floor, so block 1 has
// somebody to elect as proposer (chain.InitGenesis's own doc explains why
// an empty validator set would otherwise strand the chain at genesis).
func bootstrapGenesis(c *chain.Chain, cfg *config.Config, founder *Identity) error {
	now := uint64(time.Now().Unix())

	stakeAmount := cfg.MinStakeAmount
	if stakeAmount < token.MinStake {
		stakeAmount = token.MinStake
	}
	stakeTx := tx.NewBuilder(tx.STAKE).From(founder.Address).WithAmount(stakeAmount).WithTimestamp(now).Build()
	if err := stakeTx.Sign(founder.Key); err != nil {
		return fmt.Errorf("sign bootstrap stake: %w", err)
	}

	_, err := c.InitGenesis(founder.Address, genesisMintAmount, now, []*tx.Transaction{stakeTx})
	return err
}

// Start registers bootstrap peers, brings up the peer network's HTTP
// server and sync loop, and begins the proposer-cadence loop. It returns
// once the server is listening (or has failed to).
func (n *Node) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.cancel = cancel
	n.mu.Unlock()

	for _, peer := range n.cfg.BootstrapPeers {
		n.network.RegisterPeer(runCtx, peer)
	}

	serverErrs := make(chan error, 1)
	n.network.Start(runCtx, fmt.Sprintf(":%d", n.cfg.ListenPort), serverErrs)

	select {
	case err := <-serverErrs:
		cancel()
		return fmt.Errorf("peer network failed to start: %w", err)
	case <-time.After(50 * time.Millisecond):
		// No immediate startup failure; the server is accepting
		// connections. A later failure is handled by watchServer below.
	}

	n.wg.Add(2)
	go n.watchServer(serverErrs)
	go n.runProposerLoop(runCtx)

	log.Node.Info().
		Str("node_id", n.identity.Address.String()).
		Int("port", n.cfg.ListenPort).
		Uint64("height", n.chain.Height()).
		Msg("node started")
	return nil
}

// watchServer logs the peer network's terminal error, if any, once the
// HTTP listener stops. A clean Shutdown reports http.ErrServerClosed,
// which Stop already expects and does not treat as a failure.
func (n *Node) watchServer(serverErrs <-chan error) {
	defer n.wg.Done()
	if err := <-serverErrs; err != nil {
		log.Node.Debug().Err(err).Msg("peer network listener stopped")
	}
}

// runProposerLoop fires every blockInterval (spec.md §4.8) and, when this
// node is the elected proposer for the current tip, drains the mempool
// and appends a new block.
func (n *Node) runProposerLoop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.blockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.proposeIfElected(ctx)
		}
	}
}

// proposeIfElected builds, appends, and broadcasts exactly one block if
// this node's address is the expected proposer for the current tip.
// Non-proposers return immediately (spec.md §4.8: "Non-proposers simply
// wait").
func (n *Node) proposeIfElected(ctx context.Context) {
	tip := n.chain.Tip()

	proposer, err := n.engine.ExpectedProposer(tip.Hash)
	if err != nil {
		log.Node.Warn().Err(err).Msg("no eligible proposer, block production suspended")
		return
	}
	if proposer != n.identity.Address {
		return
	}

	txs := n.pool.SelectForBlock(0)
	reward := n.chain.NextReward()
	if reward > 0 {
		rewardTx := tx.NewBuilder(tx.REWARD).
			To(n.identity.Address).
			WithAmount(reward).
			WithTimestamp(uint64(time.Now().Unix())).
			BuildSystem()
		txs = append(txs, rewardTx)
	}

	candidate := block.NewBlock(tip.Index+1, tip.Hash, uint64(time.Now().Unix()), txs, n.identity.Address)
	if err := candidate.Sign(n.identity.Key); err != nil {
		log.Node.Error().Err(err).Msg("failed to sign candidate block")
		return
	}

	if err := n.chain.Append(candidate); err != nil {
		log.Node.Error().Err(err).Msg("failed to append our own candidate block")
		return
	}
	n.pool.RemoveConfirmed(candidate.Transactions)

	log.Node.Info().
		Uint64("height", candidate.Index).
		Int("tx_count", len(candidate.Transactions)).
		Str("hash", candidate.Hash.String()).
		Msg("proposed block")

	delivered := n.network.Gossip.BroadcastBlock(ctx, candidate)
	log.Node.Debug().Int("delivered", delivered).Msg("broadcast proposed block")
}

// SubmitTransaction admits t to the mempool and gossips it to peers, the
// path the orchestrator's external-facing callers (e.g. a future RPC
// surface) would use to originate a transaction — spec.md §4.8's
// "best-effort on fresh transaction admission" proposer-check trigger.
func (n *Node) SubmitTransaction(ctx context.Context, t *tx.Transaction) error {
	if _, err := n.pool.Add(t); err != nil {
		return err
	}
	n.network.Gossip.BroadcastTransaction(ctx, t)
	n.proposeIfElected(ctx)
	return nil
}

// Height reports the chain's current tip index.
func (n *Node) Height() uint64 {
	return n.chain.Height()
}

// Address returns this node's derived identity address.
func (n *Node) Address() types.Address {
	return n.identity.Address
}

// Stop drains in-flight work, snapshots the mempool, and closes the
// peer-network listener and durable storage (spec.md §4.8's shutdown
// sequence). It does not wait on in-flight gossip, matching spec.md §5.
func (n *Node) Stop() error {
	n.mu.Lock()
	cancel := n.cancel
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := n.network.Shutdown(shutdownCtx); err != nil {
		log.Node.Warn().Err(err).Msg("peer network shutdown reported an error")
	}

	n.wg.Wait()

	if err := n.pool.SaveSnapshot(n.cfg.MempoolSnapshotFile()); err != nil {
		log.Node.Warn().Err(err).Msg("failed to save mempool snapshot")
	}

	if err := n.db.Close(); err != nil {
		return fmt.Errorf("close chain storage: %w", err)
	}
	log.Node.Info().Msg("node stopped")
	return nil
}
