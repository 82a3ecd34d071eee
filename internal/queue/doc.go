// Package queue provides an unbounded FIFO used to decouple producers that
// must never block (the Send path, Bus handlers) from a single consumer
// goroutine that drains items in order.
package queue
