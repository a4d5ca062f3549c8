// Package adapter implements the channel delivery stage of the pipeline.
//
// An Adapter invokes one channel's delivery transport for a routed event:
// InApp pushes through the in-app transport, Email sends through the
// mailer. The Runner wires an adapter to its channel topic and owns the
// delivery log finalization: it marks the log dispatched before invoking
// the transport and delivered or failed after, one event at a time, without
// ever letting a transport failure or panic stop the consumer loop.
package adapter
