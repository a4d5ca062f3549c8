// Package notification defines the core domain model for the delivery
// pipeline: accepted send requests, per-channel delivery logs, the closed
// channel enum, and the forward-only delivery status state machine.
//
// A Request is the durable record of a producer call, created
// exactly once per idempotency key and never mutated afterwards. A
// DeliveryLog tracks a single (request, channel) delivery attempt; its
// status only ever advances through the state machine:
//
//	pending → queued | failed
//	queued → dispatched | failed
//	dispatched → delivered | failed
//
// Events carry a request between pipeline stages over the bus, partitioned
// by recipient so deliveries to the same recipient stay ordered.
package notification
