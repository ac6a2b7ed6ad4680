package node

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chainode/config"
	"chainode/ledger"
	"chainode/net"
	"chainode/types"
	"chainode/utils"
)

const (
	RolePeer    = "peer"
	RoleOrderer = "orderer"
)

var (
	ErrProposalFailed    = errors.New("proposal failed")
	ErrUnrecognizedTopic = errors.New("unrecognized topic")
)

// Node is the per-process orchestrator: it turns application requests into
// proposals published on the ordering topic, and delivered topic messages
// into validate-then-append operations. Only peer-role nodes write the
// ledger; other roles are propose-only.
type Node struct {
	role         string
	organization string
	topic        string

	ledger    *ledger.Ledger
	transport Transport

	reporter *utils.Reporter
	logger   *zap.SugaredLogger
}

func New(cfg *config.NodeConfig, ld *ledger.Ledger, transport Transport) *Node {
	return &Node{
		role:         cfg.Role,
		organization: cfg.Organization,
		topic:        cfg.Topic,

		ledger:    ld,
		transport: transport,

		reporter: utils.NewReporter(100, 60*time.Second, "Node report, ingested [%d] blocks in [%.2fs], speed [%.2fblocks/sec]"),
		logger:   zap.S().Named("[node]"),
	}
}

func (n *Node) Start() error {
	if err := n.transport.Subscribe(n.topic, n.onMessage); err != nil {
		return fmt.Errorf("subscribe topic [%s]: %w", n.topic, err)
	}

	n.logger.Infof("Node started, organization [%s], role [%s], topic [%s]", n.organization, n.role, n.topic)
	return nil
}

func (n *Node) Stop() {
	if err := n.transport.Unsubscribe(n.topic); err != nil {
		n.logger.Errorf("Unsubscribe topic [%s] error: [%s]", n.topic, err.Error())
	}
	n.logger.Info("Node stopped")
}

// Propose wraps the payload into a block on top of the current head and
// publishes it on the ordering topic. It returns the block hash right away:
// acceptance is asynchronous and observed by the peers consuming the topic.
func (n *Node) Propose(payload []byte) (string, error) {
	block, err := types.NewBlock(n.organization, payload, n.ledger.HeadHash())
	if err != nil {
		return "", err
	}

	data, err := block.Encode()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrProposalFailed, err.Error())
	}

	if err := n.transport.Publish(n.topic, data); err != nil {
		n.logger.Errorf("Publish block [%s] error: [%s]", block.Hash, err.Error())
		return "", fmt.Errorf("%w: %s", ErrProposalFailed, err.Error())
	}

	n.logger.Debugf("Proposed block [%s]", block.Hash)
	return block.Hash, nil
}

// HandleMessage processes one delivered topic message to completion. Errors
// it returns are boundary errors only; rejections and storage failures are
// logged and swallowed so the node keeps consuming.
func (n *Node) HandleMessage(topic string, payload []byte) error {
	if topic != n.topic {
		return fmt.Errorf("%w: [%s]", ErrUnrecognizedTopic, topic)
	}

	// Roles without ledger-writing duties ignore the topic.
	if n.role != RolePeer {
		return nil
	}

	block, err := types.DecodeBlock(payload)
	if err != nil {
		n.logger.Warnf("Drop malformed message: [%s]", err.Error())
		return nil
	}

	result, err := n.ledger.ValidateAndAppend(block)
	var rejectErr *ledger.RejectError
	if errors.As(err, &rejectErr) {
		n.logger.Warnf("Reject block [%s] from [%s]: [%s]", block.Hash, block.Organization, rejectErr.Error())
		net.ReportWarning(fmt.Sprintf("Rejected block [%s] from [%s]: %s", block.Hash, block.Organization, rejectErr.Reason))
		return nil
	}
	if err != nil {
		n.logger.Errorf("Append block [%s] error: [%s]", block.Hash, err.Error())
		return nil
	}

	if result == ledger.AlreadyPresent {
		n.logger.Debugf("Block [%s] already present", block.Hash)
		return nil
	}

	n.logger.Infof("Appended block [%s] from [%s]", block.Hash, block.Organization)
	if shouldReport, reportContent := n.reporter.Add(1); shouldReport {
		n.logger.Info(reportContent)
	}
	return nil
}

func (n *Node) Report() {
	n.logger.Infof("Node report, organization [%s], role [%s], ingested [%d] blocks, ledger height [%d]",
		n.organization, n.role, n.reporter.Count(), n.ledger.Len())
}

func (n *Node) onMessage(topic string, payload []byte) {
	if err := n.HandleMessage(topic, payload); err != nil {
		n.logger.Errorf("Handle message error: [%s]", err.Error())
	}
}
