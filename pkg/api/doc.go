// Package api exposes the ingestion HTTP surface: a chi router with the
// producer-facing submission endpoint and an audit endpoint that reports a
// request's delivery logs. The transport layer stays thin; validation and
// idempotency live in the ingest service.
package api
