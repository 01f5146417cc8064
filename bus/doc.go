// Package bus implements the durable, replayable publish/subscribe channel
// every EvoMesh component communicates through.
//
// Publishes are synchronous: all current subscribers of an event name are
// invoked, in subscription order, before Publish returns. A bounded history
// ring supports late-join replay via SubscribeWithReplay, and an optional
// append-only JSONL log makes history survive restarts. Handler panics are
// isolated and logged so one failing subscriber can never starve its
// siblings or abort a publish.
package bus
