/*
Package runtime provides the message-relay infrastructure behind relayflow.

# Architecture Overview

The runtime package implements a message-driven relay built on top of
Watermill. Opaque execution payloads flow from a deposit topic through
pre-validation, and from a proposal topic through budgeted forwarding to the
handler contract that owns each resource. Outcomes are published as JSON
receipts.

# Package Structure

## Core Service (service.go)

The Service struct is the central orchestrator that wires together:
  - Message router (Watermill)
  - Publisher and subscriber connections
  - Middleware chain
  - HTTP servers for metrics

## Relay Pipeline (relay.go, publisher.go)

RegisterRelayPipeline mounts the two relay handlers: deposit intake and
proposal execution. PublishDeposit and PublishProposal are the matching
submission helpers. The identities each handler needs (caller, resource,
depositor) travel in message metadata; the payload itself stays opaque.

## Middleware (middleware.go)

The middleware system provides composable message processing stages:
  - ProposalID: Receipt correlation identifiers
  - LogMessages: Debug logging of message metadata
  - Tracer: OpenTelemetry distributed tracing
  - Metrics: Prometheus metrics collection
  - Retry: Exponential backoff, skipping validation failures
  - PoisonQueue: Dead letter queue for payloads that can never be admitted
  - Recoverer: Panic recovery

## Stats & Monitoring (models.go)

Per-handler metrics collection:
  - Latency percentiles (p50, p95, p99)
  - Throughput tracking
  - Error categorization

# Sub-packages

  - config/: Service configuration with validation
  - dispatch/: Generic message dispatcher (decode, validate, forward)
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for proposal IDs
  - logging/: Logger interface and adapters
  - metadata/: Message metadata keys and utilities
  - receipts/: JSON receipt types and codec
  - registry/: Bidirectional resource routing registry
  - transport/: Pub/sub transport implementations (Kafka, RabbitMQ, NATS, channel)
  - types/: Resource and address identifier types
  - wire/: Binary payload codec
*/
package runtime
