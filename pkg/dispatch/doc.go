// Package dispatch implements the routing stage of the delivery pipeline.
//
// The Dispatcher consumes routing events from the intake topic, opens a
// delivery log in status pending, routes the event to its channel topic
// through the total channel→topic mapping, and advances the log to queued
// (or failed when the publish fails). Redelivered events resume the
// existing delivery log instead of creating a second one, so at-least-once
// bus delivery never violates the one-log-per-(request, channel) invariant.
package dispatch
