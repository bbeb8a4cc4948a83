// Package deliveryqueue holds pending notification delivery attempts, one
// item per (notification, channel) pair, and drives them through a strict
// status state machine:
//
//	pending ──> processing ──> sent
//	   ^             │
//	   │             v
//	retry_scheduled <── failed ──> exhausted
//
// Sent and exhausted are terminal; exhausted items are retained in a bounded
// dead-letter view for observability.
//
// Enqueue is idempotent per (notification, channel) pair while the previous
// item is non-terminal, which is the queue's de-duplication guarantee.
// DrainDue returns due items ordered priority-first (creation time breaks
// ties) capped by the caller's limit, making the limit the per-tick rate
// control. One logical drain owner is expected: DrainDue hands out snapshots
// and the owner walks each item through MarkProcessing and a terminal or
// retry transition. Out-of-order Mark* calls fail with ErrInvalidTransition
// instead of being silently tolerated.
//
// The queue is in-memory only; a process restart drops in-flight retries.
// That trade-off is deliberate for perishable notifications.
package deliveryqueue
