// Package redissource provides a sampler that pops keys from a Redis list,
// letting several loaders share one work queue.
//
// Keys are consumed with LPOP, or BLPOP when a block timeout is configured.
// An empty list (or a BLPOP that times out) is exhaustion.
package redissource
