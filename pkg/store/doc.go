// Package store defines the durable store contract for the delivery
// pipeline and ships two implementations: MemoryStore for tests and local
// development, and Postgres backed by a pgx connection pool.
//
// The store is the single source of truth for delivery status. Each
// operation writes a single record atomically: request creation enforces
// idempotency-key uniqueness, delivery log creation upserts by its natural
// key (request_id, channel), and status updates are guarded partial updates
// that reject backward transitions, so concurrent writers cannot rewind the
// state machine.
package store
