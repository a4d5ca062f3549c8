// Package ingest implements the ingestion stage of the delivery pipeline.
//
// Service.Submit validates a producer's send request, records it durably
// exactly once per idempotency key, and publishes a routing event to the
// intake topic. A retried producer call with the same idempotency key is
// answered with the duplicate ingress status and causes no further side
// effects, which is what makes producer retries safe.
//
// The durable write and the bus publish are not atomic. Reconciler closes
// that gap: it periodically sweeps for requests past a grace period that
// have no delivery log and re-derives their intake events from the store.
package ingest
