/*
Package relayflow relays opaque cross-chain execution payloads between a
bridge and the handler contracts that own each resource.

The library wires three pieces together:

  - A routing registry mapping 32-byte resource identifiers to 20-byte
    handler addresses, bidirectionally and with remove-then-reinsert
    consistency on reassignment.
  - A binary payload codec for the generic message layout: a 32-byte budget
    word, length-prefixed selector, target, and depositor fields, and
    trailing execution data.
  - A dispatcher that pre-validates deposits (budget ceiling, depositor
    binding) and forwards approved proposals to the resolved handler under
    the declared budget, reporting the call's outcome verbatim.

On top of that sits a Watermill-based Service: deposits and proposals
arrive on broker topics (in-memory channel, Kafka, NATS, or RabbitMQ),
flow through a middleware chain (proposal IDs, logging, tracing, metrics,
retry, poison queue), and produce JSON receipts on a receipt topic.

A minimal setup:

	routes := relayflow.NewRegistry()
	routes.SetResource(resourceID, handlerAddr, nil)

	dispatcher, err := relayflow.NewGenericHandler(bridgeAddr, routes, caller)
	if err != nil {
		log.Fatal(err)
	}

	svc, err := relayflow.TryNewService(ctx, &relayflow.Config{Broker: "channel"},
		relayflow.NewSlogServiceLogger(slog.Default()), relayflow.ServiceDependencies{})
	if err != nil {
		log.Fatal(err)
	}
	if err := svc.RegisterRelayPipeline(relayflow.RelayRegistration{
		Dispatcher: dispatcher,
		Routes:     routes,
	}); err != nil {
		log.Fatal(err)
	}

	if err := svc.Start(ctx); err != nil {
		log.Fatal(err)
	}

See the examples directory for complete programs.
*/
package relayflow
