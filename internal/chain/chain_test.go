package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/fantasy-builders/grishinium/internal/consensus"
	"github.com/fantasy-builders/grishinium/internal/errs"
	"github.com/fantasy-builders/grishinium/internal/storage"
	"github.com/fantasy-builders/grishinium/internal/token"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/crypto"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

const testInterval = 15 * time.Second

// testKey generates a key and returns it alongside the address it derives.
func testKey(t *testing.T) (*crypto.PrivateKey, types.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key, crypto.AddressFromPubKey(key.PublicKey())
}

// openTestChain builds a fresh Chain over in-memory storage, with founder
// already staked enough in the genesis block to be the sole validator — the
// minimum viable bootstrap every other test builds on.
func openTestChain(t *testing.T, founderKey *crypto.PrivateKey, founder types.Address, genesisAmount uint64, stakeAmount uint64, ts uint64) (*Chain, *consensus.Engine) {
	t.Helper()
	ledger := token.New()
	engine := consensus.New(ledger, testInterval)
	store := storage.NewChainStore(storage.NewMemory())

	c, err := Open(store, ledger, engine, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	stakeTx := tx.NewBuilder(tx.STAKE).From(founder).WithAmount(stakeAmount).WithTimestamp(ts).Build()
	if err := stakeTx.Sign(founderKey); err != nil {
		t.Fatalf("sign bootstrap stake: %v", err)
	}

	if _, err := c.InitGenesis(founder, genesisAmount, ts, []*tx.Transaction{stakeTx}); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}
	return c, engine
}

func TestInitGenesis_BootstrapStakeMakesFounderValidator(t *testing.T) {
	founderKey, founder := testKey(t)
	c, engine := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	if !engine.IsValidator(founder) {
		t.Fatal("founder should be a validator immediately after genesis")
	}
	if got, want := c.Balance(founder), uint64(1000*100_000_000); got != want {
		t.Errorf("Balance(founder) = %d, want %d", got, want)
	}
	if got := c.Staked(founder); got != 1000*100_000_000 {
		t.Errorf("Staked(founder) = %d, want %d", got, 1000*100_000_000)
	}
	if c.Height() != 0 || c.Len() != 1 {
		t.Errorf("Height/Len = %d/%d, want 0/1", c.Height(), c.Len())
	}
}

func TestInitGenesis_RejectsWhenChainAlreadyHasBlocks(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1)

	if _, err := c.InitGenesis(founder, 1, 2, nil); errs.KindOf(err) != errs.BadIndex {
		t.Errorf("second InitGenesis KindOf = %q, want %q", errs.KindOf(err), errs.BadIndex)
	}
}

// buildBlock builds and signs a block extending previous, proposed by
// proposer, carrying txs plus (if reward > 0) a REWARD transaction to the
// proposer of the given amount.
func buildBlock(t *testing.T, previous *block.Block, proposerKey *crypto.PrivateKey, proposer types.Address, ts uint64, reward uint64, extra []*tx.Transaction) *block.Block {
	t.Helper()
	txs := append([]*tx.Transaction{}, extra...)
	if reward > 0 {
		rewardTx := tx.NewBuilder(tx.REWARD).To(proposer).WithAmount(reward).WithTimestamp(ts).BuildSystem()
		txs = append(txs, rewardTx)
	}
	b := block.NewBlock(previous.Index+1, previous.Hash, ts, txs, proposer)
	b.SetHash()
	if err := b.Sign(proposerKey); err != nil {
		t.Fatalf("sign block: %v", err)
	}
	return b
}

func TestAppend_SimpleTransferHappyPath(t *testing.T) {
	founderKey, founder := testKey(t)
	_, bob := testKey(t)
	c, engine := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	expectedProposer, err := engine.ExpectedProposer(c.Tip().Hash)
	if err != nil {
		t.Fatalf("ExpectedProposer: %v", err)
	}
	if expectedProposer != founder {
		t.Fatalf("only founder is staked, but expected proposer = %s", expectedProposer)
	}

	transfer := tx.NewBuilder(tx.TRANSFER).From(founder).To(bob).WithAmount(100).WithFee(1).WithTimestamp(1_700_000_100).Build()
	if err := transfer.Sign(founderKey); err != nil {
		t.Fatalf("sign transfer: %v", err)
	}

	reward := token.New().BlockReward(1)
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, reward, []*tx.Transaction{transfer})

	if err := c.Append(b1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got, want := c.Balance(bob), uint64(100); got != want {
		t.Errorf("Balance(bob) = %d, want %d", got, want)
	}
	wantFounder := uint64(1000*100_000_000) - 101 + reward
	if got := c.Balance(founder); got != wantFounder {
		t.Errorf("Balance(founder) = %d, want %d", got, wantFounder)
	}
	if c.Height() != 1 {
		t.Errorf("Height = %d, want 1", c.Height())
	}
}

func TestAppend_RejectsWrongProposer(t *testing.T) {
	founderKey, founder := testKey(t)
	impostorKey, impostor := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	b1 := buildBlock(t, c.Tip(), impostorKey, impostor, 1_700_000_100, 0, nil)
	if err := c.Append(b1); errs.KindOf(err) != errs.WrongProposer {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.WrongProposer)
	}
}

func TestAppend_RejectsBadIndex(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, nil)
	b1.Index = 5
	b1.SetHash()
	if err := b1.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := c.Append(b1); errs.KindOf(err) != errs.BadIndex {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadIndex)
	}
}

func TestAppend_RejectsBadPreviousHash(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, nil)
	b1.PreviousHash = types.Hash{0xff}
	b1.SetHash()
	if err := b1.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := c.Append(b1); errs.KindOf(err) != errs.BadPreviousHash {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadPreviousHash)
	}
}

func TestAppend_RejectsTimestampNotAfterPrevious(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	equal := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_000, 0, nil)
	if err := c.Append(equal); errs.KindOf(err) != errs.BadTimestamp {
		t.Errorf("timestamp == previous: KindOf = %q, want %q", errs.KindOf(err), errs.BadTimestamp)
	}

	barely := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_001, 0, nil)
	if err := c.Append(barely); err != nil {
		t.Errorf("timestamp == previous+1 should be accepted, got %v", err)
	}
}

func TestAppend_RejectsFutureTimestampBeyondSkew(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, uint64(time.Now().Unix()))

	tooFar := buildBlock(t, c.Tip(), founderKey, founder, uint64(time.Now().Add(time.Hour).Unix()), 0, nil)
	if err := c.Append(tooFar); errs.KindOf(err) != errs.BadTimestamp {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadTimestamp)
	}
}

func TestAppend_RejectsTamperedHash(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, nil)
	b1.Hash[0] ^= 0xff
	if err := c.Append(b1); errs.KindOf(err) != errs.BadHash {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadHash)
	}
}

func TestAppend_RejectsDuplicateTxId(t *testing.T) {
	founderKey, founder := testKey(t)
	_, bob := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	transfer := tx.NewBuilder(tx.TRANSFER).From(founder).To(bob).WithAmount(10).WithTimestamp(1_700_000_100).Build()
	if err := transfer.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, []*tx.Transaction{transfer})
	if err := c.Append(b1); err != nil {
		t.Fatalf("Append b1: %v", err)
	}

	dup := tx.NewBuilder(tx.TRANSFER).From(founder).To(bob).WithAmount(10).WithTimestamp(1_700_000_100).Build()
	dup.Signature = transfer.Signature
	dup.PubKey = transfer.PubKey
	dup.TxID = transfer.TxID
	b2 := buildBlock(t, b1, founderKey, founder, 1_700_000_200, 0, []*tx.Transaction{dup})
	if err := c.Append(b2); errs.KindOf(err) != errs.DuplicateTxId {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.DuplicateTxId)
	}
}

func TestAppend_RejectsBadSignature(t *testing.T) {
	founderKey, founder := testKey(t)
	_, bob := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	transfer := tx.NewBuilder(tx.TRANSFER).From(founder).To(bob).WithAmount(10).WithTimestamp(1_700_000_100).Build()
	if err := transfer.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	transfer.Signature[0] ^= 0xff

	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, []*tx.Transaction{transfer})
	if err := c.Append(b1); errs.KindOf(err) != errs.BadSignature {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadSignature)
	}
}

func TestAppend_RejectsExtraReward(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	extraReward := tx.NewBuilder(tx.REWARD).To(founder).WithAmount(1).WithTimestamp(1_700_000_100).BuildSystem()
	reward := token.New().BlockReward(1)
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, reward, []*tx.Transaction{extraReward})
	if err := c.Append(b1); errs.KindOf(err) != errs.BadReward {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadReward)
	}
}

func TestAppend_RejectsWrongRewardAmount(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 999, nil)
	if err := c.Append(b1); errs.KindOf(err) != errs.BadReward {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadReward)
	}
}

func TestAppend_RejectsRewardToWrongRecipient(t *testing.T) {
	founderKey, founder := testKey(t)
	_, bob := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	reward := token.New().BlockReward(1)
	rewardTx := tx.NewBuilder(tx.REWARD).To(bob).WithAmount(reward).WithTimestamp(1_700_000_100).BuildSystem()
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, []*tx.Transaction{rewardTx})
	if err := c.Append(b1); errs.KindOf(err) != errs.BadReward {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadReward)
	}
}

func TestAppend_RejectsInsufficientBalance(t *testing.T) {
	founderKey, founder := testKey(t)
	_, bob := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	over := tx.NewBuilder(tx.TRANSFER).From(founder).To(bob).WithAmount(10_000*100_000_000).WithTimestamp(1_700_000_100).Build()
	if err := over.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, []*tx.Transaction{over})
	if err := c.Append(b1); errs.KindOf(err) != errs.InsufficientBalance {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.InsufficientBalance)
	}
}

func TestAppend_StakeBelowMinimumRejected(t *testing.T) {
	founderKey, founder := testKey(t)
	carolKey, carol := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	fund := tx.NewBuilder(tx.TRANSFER).From(founder).To(carol).WithAmount(50 * 100_000_000).WithTimestamp(1_700_000_100).Build()
	if err := fund.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, []*tx.Transaction{fund})
	if err := c.Append(b1); err != nil {
		t.Fatalf("Append b1: %v", err)
	}

	stakeTooSmall := tx.NewBuilder(tx.STAKE).From(carol).WithAmount(10 * 100_000_000).WithTimestamp(1_700_000_200).Build()
	if err := stakeTooSmall.Sign(carolKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	b2 := buildBlock(t, b1, founderKey, founder, 1_700_000_200, 0, []*tx.Transaction{stakeTooSmall})
	if err := c.Append(b2); errs.KindOf(err) != errs.StakeTooSmall {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.StakeTooSmall)
	}
}

func TestAppend_UnstakeBeforeLockExpiryRejected(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	unstake := tx.NewBuilder(tx.UNSTAKE).From(founder).WithAmount(500 * 100_000_000).WithTimestamp(1_700_000_100).Build()
	if err := unstake.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, []*tx.Transaction{unstake})
	if err := c.Append(b1); errs.KindOf(err) != errs.StakeLocked {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.StakeLocked)
	}
}

func TestAppend_UnstakeAfterLockExpiryAccepted(t *testing.T) {
	founderKey, founder := testKey(t)
	genesisTS := uint64(1_700_000_000)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, genesisTS)

	afterLock := genesisTS + token.StakeLockSeconds + 10
	unstake := tx.NewBuilder(tx.UNSTAKE).From(founder).WithAmount(500 * 100_000_000).WithTimestamp(afterLock).Build()
	if err := unstake.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	b1 := buildBlock(t, c.Tip(), founderKey, founder, afterLock, 0, []*tx.Transaction{unstake})
	if err := c.Append(b1); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := c.Staked(founder); got != 500*100_000_000 {
		t.Errorf("Staked(founder) after partial unstake = %d, want %d", got, 500*100_000_000)
	}
}

func TestReplace_LongerValidChainSwapsIn(t *testing.T) {
	founderKey, founder := testKey(t)
	_, bob := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	reward1 := token.New().BlockReward(1)
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, reward1, nil)
	if err := c.Append(b1); err != nil {
		t.Fatalf("Append b1: %v", err)
	}

	transfer := tx.NewBuilder(tx.TRANSFER).From(founder).To(bob).WithAmount(10).WithTimestamp(1_700_000_200).Build()
	if err := transfer.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	reward2 := token.New().BlockReward(2)
	b2 := buildBlock(t, b1, founderKey, founder, 1_700_000_200, reward2, []*tx.Transaction{transfer})

	candidate := []*block.Block{c.BlockAt(0), b1, b2}
	if err := c.Replace(candidate); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if c.Height() != 2 {
		t.Errorf("Height after Replace = %d, want 2", c.Height())
	}
	if got := c.Balance(bob); got != 10 {
		t.Errorf("Balance(bob) after Replace = %d, want 10", got)
	}
}

func TestReplace_RejectsShorterCandidate(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, nil)
	if err := c.Append(b1); err != nil {
		t.Fatalf("Append b1: %v", err)
	}

	if err := c.Replace([]*block.Block{c.BlockAt(0)}); errs.KindOf(err) != errs.BadIndex {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadIndex)
	}
}

func TestReplace_RejectsDifferentGenesis(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	otherGenesis := block.NewBlock(0, types.Hash{}, 1, nil, types.Address{})
	otherGenesis.SetHash()
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 1_700_000_100, 0, nil)

	if err := c.Replace([]*block.Block{otherGenesis, b1}); errs.KindOf(err) != errs.BadPreviousHash {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadPreviousHash)
	}
}

// TestReplace_RejectsForgedGenesisHash covers the attack where a peer
// copies the real genesis hash into a block carrying different
// transactions underneath it: Replace must recompute the hash rather
// than trust the claimed field, so the mismatch is caught as a bad hash,
// not silently accepted as "same genesis".
func TestReplace_RejectsForgedGenesisHash(t *testing.T) {
	founderKey, founder := testKey(t)
	c, _ := openTestChain(t, founderKey, founder, 2000*100_000_000, 1000*100_000_000, 1_700_000_000)

	attackerKey, attacker := testKey(t)
	forgedStake := tx.NewBuilder(tx.STAKE).From(attacker).WithAmount(1000 * 100_000_000).WithTimestamp(1_700_000_000).Build()
	if err := forgedStake.Sign(attackerKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	forgedGenesis := block.NewBlock(0, types.Hash{}, 1_700_000_000, []*tx.Transaction{forgedStake}, types.Address{})
	forgedGenesis.Hash = c.BlockAt(0).Hash // copy the real hash, different content underneath

	b1 := buildBlock(t, forgedGenesis, attackerKey, attacker, 1_700_000_100, 0, nil)

	if err := c.Replace([]*block.Block{forgedGenesis, b1}); errs.KindOf(err) != errs.BadHash {
		t.Errorf("KindOf = %q, want %q", errs.KindOf(err), errs.BadHash)
	}
	if c.Height() != 0 {
		t.Errorf("Height after rejected Replace = %d, want unchanged 0", c.Height())
	}
}

func TestBlockReward_HalvesAndClampsAtCap(t *testing.T) {
	l := token.New()
	if got := l.BlockReward(0); got != token.BaseReward {
		t.Errorf("BlockReward(0) = %d, want %d", got, token.BaseReward)
	}
	if got := l.BlockReward(token.HalvingInterval); got != token.BaseReward/2 {
		t.Errorf("BlockReward(HalvingInterval) = %d, want %d", got, token.BaseReward/2)
	}
	if got := l.BlockReward(token.HalvingInterval * token.MaxHalvings); got != 0 {
		t.Errorf("BlockReward at MaxHalvings = %d, want 0", got)
	}
}

func TestOpen_RecoversChainFromStore(t *testing.T) {
	founderKey, founder := testKey(t)
	ledger := token.New()
	engine := consensus.New(ledger, testInterval)
	store := storage.NewChainStore(storage.NewMemory())

	c, err := Open(store, ledger, engine, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	stakeTx := tx.NewBuilder(tx.STAKE).From(founder).WithAmount(1000 * 100_000_000).WithTimestamp(1).Build()
	if err := stakeTx.Sign(founderKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.InitGenesis(founder, 2000*100_000_000, 1, []*tx.Transaction{stakeTx}); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}
	b1 := buildBlock(t, c.Tip(), founderKey, founder, 2, 0, nil)
	if err := c.Append(b1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reopenedLedger := token.New()
	reopenedEngine := consensus.New(reopenedLedger, testInterval)
	reopened, err := Open(store, reopenedLedger, reopenedEngine, 0)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	if reopened.Height() != 1 {
		t.Errorf("recovered Height = %d, want 1", reopened.Height())
	}
	if reopened.Balance(founder) != c.Balance(founder) {
		t.Errorf("recovered Balance(founder) = %d, want %d", reopened.Balance(founder), c.Balance(founder))
	}
	if !reopenedEngine.IsValidator(founder) {
		t.Error("recovered ledger should still recognize founder as a validator")
	}
}

func TestClassifyLedgerErr_MapsEveryKnownCause(t *testing.T) {
	cases := []struct {
		err  error
		kind errs.Kind
	}{
		{token.ErrInsufficientBalance, errs.InsufficientBalance},
		{token.ErrInsufficientStake, errs.InsufficientStake},
		{token.ErrStakeTooSmall, errs.StakeTooSmall},
		{token.ErrStakeLocked, errs.StakeLocked},
		{token.ErrSupplyCapExceeded, errs.SupplyCapExceeded},
		{errors.New("something else"), errs.UnknownTxType},
	}
	for _, c := range cases {
		if got := classifyLedgerErr(c.err); got != c.kind {
			t.Errorf("classifyLedgerErr(%v) = %q, want %q", c.err, got, c.kind)
		}
	}
}
