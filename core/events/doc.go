// Package events defines the station events emitted on the event bus.
//
// Available event types:
//   - SessionStartedEvent, SessionStoppedEvent: session lifecycle
//   - PowerUpdatedEvent: a session reported new consumption
//   - AllocationComputedEvent: the allocator finished a recomputation
//   - BessActionEvent: the battery controller applied a charge/discharge/idle
package events
