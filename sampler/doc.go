// Package sampler provides key sources for prefetch loaders.
//
// A Sampler yields keys in a fixed order and reports exhaustion with
// (zero, false, nil). Every Sampler also satisfies pipeline.Iterator, so
// samplers can feed pipelines directly and pipelines can be turned back into
// samplers with FromIterator.
//
//	keys := sampler.Batch(sampler.Shuffled(sampler.Range(0, 1000), 42), 16, false)
//	sess, err := loader.Iter(ctx, keys)
package sampler
