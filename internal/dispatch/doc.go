// Package dispatch separates the two execution contexts of the application.
//
// Loop is the single rendering context: functions posted to it run one at a
// time, in order, on the goroutine that calls Run. Presentation state is only
// touched from there.
//
// Pool is a small set of background workers that run storage mutations so
// the rendering context never waits on I/O. Submit never blocks; the result
// channel may be ignored (fire-and-forget).
//
// Observe connects the two: it forwards every snapshot of a live
// subscription onto the Loop.
package dispatch
