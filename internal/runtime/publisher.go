package runtime

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/relayflow/relayflow/internal/runtime/errors"
	idspkg "github.com/relayflow/relayflow/internal/runtime/ids"
	metadatapkg "github.com/relayflow/relayflow/internal/runtime/metadata"
	"github.com/relayflow/relayflow/internal/runtime/types"
)

// NewDepositMessage wraps an opaque deposit payload in a Watermill message
// carrying the identities the intake handler reads from metadata.
func NewDepositMessage(payload []byte, caller types.Address, resourceID types.ResourceID, depositor types.Address) (*message.Message, error) {
	if len(payload) == 0 {
		return nil, errspkg.ErrPayloadRequired
	}

	msg := message.NewMessage(idspkg.NewProposalID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadatapkg.New(
		metadatapkg.KeyCaller, caller.Hex(),
		metadatapkg.KeyResourceID, resourceID.Hex(),
		metadatapkg.KeyDepositor, depositor.Hex(),
	))
	return msg, nil
}

// NewProposalMessage wraps an opaque proposal payload in a Watermill message
// carrying the identities the executor handler reads from metadata.
func NewProposalMessage(payload []byte, caller types.Address, resourceID types.ResourceID) (*message.Message, error) {
	if len(payload) == 0 {
		return nil, errspkg.ErrPayloadRequired
	}

	msg := message.NewMessage(idspkg.NewProposalID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadatapkg.New(
		metadatapkg.KeyCaller, caller.Hex(),
		metadatapkg.KeyResourceID, resourceID.Hex(),
	))
	return msg, nil
}

func publish(ctx context.Context, publisher message.Publisher, topic string, msg *message.Message) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return publisher.Publish(topic, msg)
}

// PublishDeposit emits a deposit submission onto the service's deposit
// topic so applications never touch the Watermill APIs directly.
func (s *Service) PublishDeposit(ctx context.Context, payload []byte, caller types.Address, resourceID types.ResourceID, depositor types.Address) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	msg, err := NewDepositMessage(payload, caller, resourceID, depositor)
	if err != nil {
		return err
	}
	return publish(ctx, s.publisher, s.Conf.DepositTopicName(), msg)
}

// PublishProposal emits an approved proposal onto the service's proposal
// topic.
func (s *Service) PublishProposal(ctx context.Context, payload []byte, caller types.Address, resourceID types.ResourceID) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	msg, err := NewProposalMessage(payload, caller, resourceID)
	if err != nil {
		return err
	}
	return publish(ctx, s.publisher, s.Conf.ProposalTopicName(), msg)
}
