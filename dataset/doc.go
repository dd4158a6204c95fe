// Package dataset provides item producers for prefetch loaders: a file-backed
// producer over an afero filesystem, a retrying wrapper for transient
// failures, and a simulated producer for load testing.
package dataset
