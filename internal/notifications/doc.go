// Package notifications publishes report events to ntfy.
//
// When no topic is configured NewService returns a no-op implementation, so
// callers never branch on whether notifications are enabled. Delivery is best
// effort; callers log failures and carry on.
package notifications
