package runtime

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/relayflow/relayflow/internal/runtime/dispatch"
	errspkg "github.com/relayflow/relayflow/internal/runtime/errors"
	metadatapkg "github.com/relayflow/relayflow/internal/runtime/metadata"
	"github.com/relayflow/relayflow/internal/runtime/receipts"
	"github.com/relayflow/relayflow/internal/runtime/registry"
	"github.com/relayflow/relayflow/internal/runtime/types"
)

// Handler names used by the relay pipeline.
const (
	DepositIntakeHandlerName    = "deposit-intake"
	ProposalExecutorHandlerName = "proposal-executor"
)

// RelayRegistration wires a dispatcher into the service's topic layout. The
// payloads stay opaque; the identities the dispatcher needs travel in
// message metadata.
type RelayRegistration struct {
	// Dispatcher validates deposits and forwards proposals. Required.
	Dispatcher dispatch.Handler

	// Routes names the resolved target in execution receipts. Optional;
	// receipts omit the target when nil.
	Routes *registry.Registry
}

// RegisterRelayPipeline registers both relay handlers: deposit intake on the
// deposit topic and proposal execution on the proposal topic. Both publish
// their outcomes to the receipt topic.
func (s *Service) RegisterRelayPipeline(reg RelayRegistration) error {
	if err := s.RegisterDepositIntake(reg); err != nil {
		return err
	}
	return s.RegisterProposalExecutor(reg)
}

// RegisterDepositIntake consumes deposit submissions, pre-validates them
// through the dispatcher, and publishes the acknowledgement to the receipt
// topic. Rejected deposits fail the handler; the middleware chain decides
// whether the message is poison.
func (s *Service) RegisterDepositIntake(reg RelayRegistration) error {
	if reg.Dispatcher == nil {
		return errspkg.ErrDispatcherRequired
	}

	handler := func(msg *message.Message) ([]*message.Message, error) {
		caller, err := callerFromMetadata(msg.Metadata)
		if err != nil {
			return nil, err
		}
		resourceID, err := resourceIDFromMetadata(msg.Metadata)
		if err != nil {
			return nil, err
		}
		depositor, err := depositorFromMetadata(msg.Metadata)
		if err != nil {
			return nil, err
		}

		ack, err := reg.Dispatcher.Deposit(msg.Context(), caller, resourceID, depositor, msg.Payload)
		if err != nil {
			return nil, err
		}

		out := message.NewMessage(watermill.NewUUID(), ack)
		out.Metadata[metadatapkg.KeyResourceID] = resourceID.Hex()
		out.Metadata[metadatapkg.KeyDepositor] = depositor.Hex()
		if pid := msg.Metadata[metadatapkg.KeyProposalID]; pid != "" {
			out.Metadata[metadatapkg.KeyProposalID] = pid
		}
		return []*message.Message{out}, nil
	}

	return s.registerHandler(handlerRegistration{
		Name:         DepositIntakeHandlerName,
		ConsumeTopic: s.Conf.DepositTopicName(),
		PublishTopic: s.Conf.ReceiptTopicName(),
		Handler:      handler,
	})
}

// RegisterProposalExecutor consumes approved proposals, forwards each one
// through the dispatcher, and publishes an execution receipt. A failed
// forwarded call is a receipt with success=false, not a handler error, so
// it is never retried or sent to the poison queue.
func (s *Service) RegisterProposalExecutor(reg RelayRegistration) error {
	if reg.Dispatcher == nil {
		return errspkg.ErrDispatcherRequired
	}

	handler := func(msg *message.Message) ([]*message.Message, error) {
		caller, err := callerFromMetadata(msg.Metadata)
		if err != nil {
			return nil, err
		}
		resourceID, err := resourceIDFromMetadata(msg.Metadata)
		if err != nil {
			return nil, err
		}

		result, err := reg.Dispatcher.ExecuteProposal(msg.Context(), caller, resourceID, msg.Payload)
		if err != nil {
			return nil, err
		}

		target := ""
		if reg.Routes != nil {
			if addr := reg.Routes.ResolveAddress(resourceID); !addr.IsZero() {
				target = addr.Hex()
			}
		}

		payload, err := receipts.Marshal(receipts.ExecutionReceipt{
			ProposalID:  msg.Metadata[metadatapkg.KeyProposalID],
			ResourceID:  resourceID.Hex(),
			Target:      target,
			Success:     result.Success,
			ReturnData:  result.ReturnData,
			CompletedAt: time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}

		out := message.NewMessage(watermill.NewUUID(), payload)
		out.Metadata[metadatapkg.KeyResourceID] = resourceID.Hex()
		if pid := msg.Metadata[metadatapkg.KeyProposalID]; pid != "" {
			out.Metadata[metadatapkg.KeyProposalID] = pid
		}
		return []*message.Message{out}, nil
	}

	return s.registerHandler(handlerRegistration{
		Name:         ProposalExecutorHandlerName,
		ConsumeTopic: s.Conf.ProposalTopicName(),
		PublishTopic: s.Conf.ReceiptTopicName(),
		Handler:      handler,
	})
}

// callerFromMetadata reads the caller identity attached by the bridge. A
// missing header yields the zero address, which the dispatcher's caller
// gate rejects on its own.
func callerFromMetadata(md message.Metadata) (types.Address, error) {
	raw := md.Get(metadatapkg.KeyCaller)
	if raw == "" {
		return types.Address{}, nil
	}
	caller, err := types.AddressFromHex(raw)
	if err != nil {
		return types.Address{}, &errspkg.MetadataError{Key: metadatapkg.KeyCaller, Err: err}
	}
	return caller, nil
}

func resourceIDFromMetadata(md message.Metadata) (types.ResourceID, error) {
	raw := md.Get(metadatapkg.KeyResourceID)
	if raw == "" {
		return types.ResourceID{}, &errspkg.MetadataError{Key: metadatapkg.KeyResourceID, Err: errors.New("missing")}
	}
	id, err := types.ResourceIDFromHex(raw)
	if err != nil {
		return types.ResourceID{}, &errspkg.MetadataError{Key: metadatapkg.KeyResourceID, Err: err}
	}
	return id, nil
}

func depositorFromMetadata(md message.Metadata) (types.Address, error) {
	raw := md.Get(metadatapkg.KeyDepositor)
	if raw == "" {
		return types.Address{}, &errspkg.MetadataError{Key: metadatapkg.KeyDepositor, Err: errors.New("missing")}
	}
	depositor, err := types.AddressFromHex(raw)
	if err != nil {
		return types.Address{}, &errspkg.MetadataError{Key: metadatapkg.KeyDepositor, Err: err}
	}
	return depositor, nil
}
