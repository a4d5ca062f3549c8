// Package bus abstracts the ordered, partitioned publish/subscribe transport
// that connects the pipeline stages.
//
// The contract is deliberately small: Publish appends an event to a topic
// under a partition key, Subscribe consumes a topic within a consumer group
// with at-least-once semantics. Events sharing a partition key are delivered
// in publish order within a topic; there is no cross-key or cross-topic
// ordering guarantee.
//
// Two implementations are provided: MemoryBus for tests and local
// development, and KafkaBus backed by segmentio/kafka-go for production.
package bus
