package ledger

import (
	"encoding/hex"
	"fmt"

	"chainode/types"
)

type RejectReason string

const (
	ReasonMalformed    RejectReason = "malformed-block"
	ReasonHashMismatch RejectReason = "hash-mismatch"
	ReasonStaleParent  RejectReason = "stale-or-forked-parent"
)

// RejectError reports why a candidate block was refused. Rejection is never
// fatal: the caller logs it, drops the block and keeps consuming.
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("block rejected (%s): %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, format string, args ...interface{}) error {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Validate judges a candidate block against the current head hash. Checks run
// in order and short-circuit on the first failure: structure, hash integrity,
// chain continuity. A nil return means the block is accepted.
func Validate(block *types.Block, headHash string) error {
	if block == nil {
		return reject(ReasonMalformed, "nil block")
	}
	if block.Organization == "" {
		return reject(ReasonMalformed, "empty organization")
	}
	if !wellFormedHash(block.Hash) {
		return reject(ReasonMalformed, "bad hash [%s]", block.Hash)
	}

	if recomputed := block.ComputeHash(); recomputed != block.Hash {
		return reject(ReasonHashMismatch, "declared [%s], recomputed [%s]", block.Hash, recomputed)
	}

	if block.PrevHash != headHash {
		return reject(ReasonStaleParent, "parent [%s], head [%s]", block.PrevHash, headHash)
	}

	return nil
}

func wellFormedHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
