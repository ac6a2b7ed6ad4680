package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// GenesisHash is the previous-hash sentinel carried by the first block of an
// empty ledger.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

var ErrInvalidArgument = errors.New("invalid argument")

// Block is immutable once created. Hash is its identity and is never
// recomputed after creation.
type Block struct {
	Organization string `json:"organization"`
	Payload      []byte `json:"payload"`
	PrevHash     string `json:"prev_hash"`
	Timestamp    int64  `json:"timestamp"`
	Hash         string `json:"hash"`
}

// NewBlock builds a block for the given organization on top of prevHash,
// stamping the current wall clock and the content hash.
func NewBlock(organization string, payload []byte, prevHash string) (*Block, error) {
	if organization == "" {
		return nil, fmt.Errorf("%w: empty organization", ErrInvalidArgument)
	}

	block := &Block{
		Organization: organization,
		Payload:      payload,
		PrevHash:     prevHash,
		Timestamp:    time.Now().UnixMilli(),
	}
	block.Hash = block.ComputeHash()
	return block, nil
}

// ComputeHash digests organization|payload|prev_hash|timestamp with SHA-256
// and returns the hex string. The layout is part of the wire contract: every
// node must derive the same hash for the same block.
func (b *Block) ComputeHash() string {
	data := fmt.Sprintf("%s|%s|%s|%d", b.Organization, b.Payload, b.PrevHash, b.Timestamp)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func (b *Block) Encode() ([]byte, error) {
	return json.Marshal(b)
}

func DecodeBlock(data []byte) (*Block, error) {
	var block Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	return &block, nil
}
