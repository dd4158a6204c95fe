// Package pipeline connects key streams, prefetching loaders and batch
// consumers through one pull contract.
//
// Nothing runs until a terminal (Drain or Collect) pulls. Each stage pulls
// its upstream on demand, so a slow consumer holds back everything before it,
// and a Prefetch stage never runs more than its loader's window ahead.
//
// A prefetch.Session and every sampler satisfy Iterator, so either can start
// a pipeline through From.
//
// # Stages
//
//   - Prefetch: ordered, windowed parallel map on a prefetch.Loader
//   - SkipErrors: step over failures a predicate accepts
//   - Map: transform each value
//   - Batch: group values into fixed-size slices
//   - Collate: turn each batch into one value
//
// # Usage
//
//	items := pipeline.Prefetch(pipeline.From(keys), loader)
//	items = pipeline.SkipErrors(items, prefetch.IsItemFailure, nil)
//	batches := pipeline.Collate(pipeline.Batch(items, 32, true), stack)
//	err := pipeline.Drain(batches, train).Run(ctx)
package pipeline
