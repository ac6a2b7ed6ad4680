package node

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"chainode/config"
	"chainode/ledger"
	"chainode/types"
)

// loopbackBus delivers published messages synchronously to every subscriber,
// standing in for the ordering topic.
type loopbackBus struct {
	mu       sync.Mutex
	handlers map[string][]func(topic string, payload []byte)
}

func newLoopbackBus() *loopbackBus {
	return &loopbackBus{handlers: make(map[string][]func(topic string, payload []byte))}
}

func (b *loopbackBus) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	handlers := append([]func(topic string, payload []byte){}, b.handlers[topic]...)
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(topic, payload)
	}
	return nil
}

func (b *loopbackBus) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

func (b *loopbackBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, topic)
	return nil
}

type failingTransport struct {
	*loopbackBus
}

func (t *failingTransport) Publish(_ string, _ []byte) error {
	return errors.New("broker unreachable")
}

func newTestNode(t *testing.T, organization, role string, bus Transport) (*Node, *ledger.Ledger) {
	t.Helper()
	ld := ledger.New(nil)
	n := New(&config.NodeConfig{
		Role:         role,
		Organization: organization,
		Topic:        "chainode/blocks",
	}, ld, bus)
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %s", err)
	}
	return n, ld
}

func encodeTestBlock(t *testing.T, organization, payload, prevHash string) (*types.Block, []byte) {
	t.Helper()
	block, err := types.NewBlock(organization, []byte(payload), prevHash)
	if err != nil {
		t.Fatalf("NewBlock failed: %s", err)
	}
	data, err := block.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %s", err)
	}
	return block, data
}

func TestProposeAndIngest(t *testing.T) {
	bus := newLoopbackBus()
	n, ld := newTestNode(t, "orgA", RolePeer, bus)

	hash, err := n.Propose([]byte("P1"))
	if err != nil {
		t.Fatalf("Propose failed: %s", err)
	}

	// The proposer also holds the peer role, so its own ledger advanced.
	assert.Equal(t, ld.HeadHash(), hash)
	assert.Equal(t, ld.Len(), 1)
	assert.Equal(t, ld.Head().Organization, "orgA")
}

func TestProposalReachesAllPeers(t *testing.T) {
	bus := newLoopbackBus()
	_, ldA := newTestNode(t, "orgA", RolePeer, bus)
	nodeB, ldB := newTestNode(t, "orgB", RolePeer, bus)

	hash, err := nodeB.Propose([]byte("P1"))
	if err != nil {
		t.Fatalf("Propose failed: %s", err)
	}

	assert.Equal(t, ldA.HeadHash(), hash)
	assert.Equal(t, ldB.HeadHash(), hash)
}

func TestRoleGating(t *testing.T) {
	bus := newLoopbackBus()
	_, ld := newTestNode(t, "orgA", RoleOrderer, bus)

	_, data := encodeTestBlock(t, "orgB", "P1", types.GenesisHash)
	if err := bus.Publish("chainode/blocks", data); err != nil {
		t.Fatalf("Publish failed: %s", err)
	}

	// Structurally valid block, but this node has no ledger-writing duties.
	assert.Equal(t, ld.Len(), 0)
}

func TestUnrecognizedTopic(t *testing.T) {
	n, _ := newTestNode(t, "orgA", RolePeer, newLoopbackBus())

	err := n.HandleMessage("chainode/other", []byte("{}"))
	if !errors.Is(err, ErrUnrecognizedTopic) {
		t.Errorf("expected ErrUnrecognizedTopic, got %v", err)
	}
}

func TestDuplicateDelivery(t *testing.T) {
	bus := newLoopbackBus()
	_, ld := newTestNode(t, "orgA", RolePeer, bus)

	_, data := encodeTestBlock(t, "orgB", "P1", types.GenesisHash)
	for i := 0; i < 2; i++ {
		if err := bus.Publish("chainode/blocks", data); err != nil {
			t.Fatalf("Publish failed: %s", err)
		}
	}

	assert.Equal(t, ld.Len(), 1)
}

func TestForkRejectionAcrossDelivery(t *testing.T) {
	bus := newLoopbackBus()
	_, ld := newTestNode(t, "orgA", RolePeer, bus)

	b1, b1Data := encodeTestBlock(t, "orgA", "P1", types.GenesisHash)
	if err := bus.Publish("chainode/blocks", b1Data); err != nil {
		t.Fatalf("Publish failed: %s", err)
	}

	// Competing children of b1; delivery order decides the winner.
	b2a, b2aData := encodeTestBlock(t, "orgA", "P2a", b1.Hash)
	_, b2bData := encodeTestBlock(t, "orgB", "P2b", b1.Hash)
	if err := bus.Publish("chainode/blocks", b2aData); err != nil {
		t.Fatalf("Publish failed: %s", err)
	}
	if err := bus.Publish("chainode/blocks", b2bData); err != nil {
		t.Fatalf("Publish failed: %s", err)
	}

	assert.Equal(t, ld.HeadHash(), b2a.Hash)
	assert.Equal(t, ld.Len(), 2)
}

func TestMalformedMessageDropped(t *testing.T) {
	bus := newLoopbackBus()
	n, ld := newTestNode(t, "orgA", RolePeer, bus)

	if err := n.HandleMessage("chainode/blocks", []byte("not a block")); err != nil {
		t.Errorf("malformed message must be dropped, not returned: %v", err)
	}
	assert.Equal(t, ld.Len(), 0)
}

func TestProposalFailed(t *testing.T) {
	n, ld := newTestNode(t, "orgA", RolePeer, &failingTransport{loopbackBus: newLoopbackBus()})

	_, err := n.Propose([]byte("P1"))
	if !errors.Is(err, ErrProposalFailed) {
		t.Errorf("expected ErrProposalFailed, got %v", err)
	}
	assert.Equal(t, ld.Len(), 0)
}

func TestProposeEmptyOrganization(t *testing.T) {
	ld := ledger.New(nil)
	n := New(&config.NodeConfig{Role: RolePeer, Topic: "chainode/blocks"}, ld, newLoopbackBus())

	_, err := n.Propose([]byte("P1"))
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
