package ledger

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"chainode/types"
)

// Backend is the durable store the ledger writes through to. AddBlock must
// tolerate a block whose hash already exists.
type Backend interface {
	AddBlock(block *types.Block) error
}

type AppendResult int

const (
	Appended AppendResult = iota
	AlreadyPresent
)

// Ledger is an append-only chain of accepted blocks, keyed by hash. All
// appends on one node serialize through its mutex so that no two concurrent
// appends can both validate against the same head and both succeed.
type Ledger struct {
	mu      sync.RWMutex
	blocks  []*types.Block
	byHash  map[string]*types.Block
	backend Backend

	logger *zap.SugaredLogger
}

// New creates an empty ledger. The backend may be nil for a memory-only
// ledger, which the tests rely on.
func New(backend Backend) *Ledger {
	return &Ledger{
		byHash:  make(map[string]*types.Block),
		backend: backend,
		logger:  zap.S().Named("[ledger]"),
	}
}

// Load installs a previously persisted chain, oldest first. It refuses a
// chain whose linkage is broken rather than start from a corrupt head.
func (l *Ledger) Load(blocks []*types.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := types.GenesisHash
	byHash := make(map[string]*types.Block, len(blocks))
	for i, block := range blocks {
		if block.PrevHash != prevHash {
			return fmt.Errorf("load chain: block %d parent [%s] does not match [%s]", i, block.PrevHash, prevHash)
		}
		byHash[block.Hash] = block
		prevHash = block.Hash
	}

	l.blocks = blocks
	l.byHash = byHash
	l.logger.Infof("Loaded [%s] blocks, head [%s]", humanize.Comma(int64(len(blocks))), prevHash)
	return nil
}

// Head returns the most recently appended block, or nil for an empty ledger.
func (l *Ledger) Head() *types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.headLocked()
}

// HeadHash returns the head block's hash, or the genesis sentinel when the
// ledger is empty.
func (l *Ledger) HeadHash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if head := l.headLocked(); head != nil {
		return head.Hash
	}
	return types.GenesisHash
}

// Append persists the block and makes it the new head. The caller must have
// validated the block against the current head. Appending a block whose hash
// is already present is a no-op.
func (l *Ledger) Append(block *types.Block) (AppendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.appendLocked(block)
}

// ValidateAndAppend runs the validator and the append as one critical
// section, so ingestion's check-then-act is atomic with respect to other
// appends on this node.
func (l *Ledger) ValidateAndAppend(block *types.Block) (AppendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	headHash := types.GenesisHash
	if head := l.headLocked(); head != nil {
		headHash = head.Hash
	}
	if err := Validate(block, headHash); err != nil {
		return 0, err
	}
	return l.appendLocked(block)
}

func (l *Ledger) appendLocked(block *types.Block) (AppendResult, error) {
	if _, ok := l.byHash[block.Hash]; ok {
		return AlreadyPresent, nil
	}

	if l.backend != nil {
		if err := l.backend.AddBlock(block); err != nil {
			// Head does not advance on a failed write.
			return 0, fmt.Errorf("append block [%s]: %w", block.Hash, err)
		}
	}

	l.blocks = append(l.blocks, block)
	l.byHash[block.Hash] = block
	return Appended, nil
}

func (l *Ledger) Get(hash string) (*types.Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	block, ok := l.byHash[hash]
	return block, ok
}

// Blocks returns a snapshot of the chain, oldest first.
func (l *Ledger) Blocks() []*types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]*types.Block, len(l.blocks))
	copy(blocks, l.blocks)
	return blocks
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.blocks)
}

// Verify audits the whole chain: genesis linkage, per-block hash integrity
// and parent continuity.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prevHash := types.GenesisHash
	for i, block := range l.blocks {
		if block.PrevHash != prevHash {
			return fmt.Errorf("block %d parent [%s] does not match [%s]", i, block.PrevHash, prevHash)
		}
		if recomputed := block.ComputeHash(); recomputed != block.Hash {
			return fmt.Errorf("block %d hash [%s] does not match content [%s]", i, block.Hash, recomputed)
		}
		prevHash = block.Hash
	}
	return nil
}

func (l *Ledger) Report() {
	l.mu.RLock()
	defer l.mu.RUnlock()

	headHash := types.GenesisHash
	if head := l.headLocked(); head != nil {
		headHash = head.Hash
	}
	l.logger.Infof("Ledger report, height [%s], head [%s]", humanize.Comma(int64(len(l.blocks))), headHash)
}

func (l *Ledger) headLocked() *types.Block {
	if len(l.blocks) == 0 {
		return nil
	}
	return l.blocks[len(l.blocks)-1]
}
