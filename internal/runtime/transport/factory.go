// Package transport wires the message brokers that carry deposit
// submissions, admitted proposals, and execution receipts between the
// bridge boundary and the relay pipeline.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/relayflow/relayflow/internal/runtime/config"
)

// Transport combines a publisher and subscriber pair produced by a factory.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Factory abstracts how the relay initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns the built-in transport factory selecting the
// broker from Config.Broker.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	_ = ctx

	if conf == nil {
		return Transport{}, fmt.Errorf("config is required")
	}

	switch strings.ToLower(conf.Broker) {
	case "", "channel", "gochannel":
		return channelTransport(conf, logger)
	case "kafka":
		return kafkaTransport(conf, logger)
	case "nats":
		return natsTransport(conf, logger)
	case "rabbitmq":
		return rabbitTransport(conf, logger)
	default:
		return Transport{}, fmt.Errorf("unsupported broker: %s", conf.Broker)
	}
}
