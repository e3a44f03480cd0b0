// Package events provides event publisher implementations.
//
// Implementations:
//   - redis: Redis Streams audit mirror
//   - memory: Recording publisher for testing
package events
