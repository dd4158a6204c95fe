// Package prefetch turns a slow per-key computation into an ordered stream of
// ready results.
//
// A Loader owns an item producer, a worker pool and a window size
// (Workers × PrefetchFactor). Each call to Iter starts a Session over a key
// source: the session immediately submits one window of keys to the pool, and
// every Next tops the window up by one key before handing back the result of
// the oldest outstanding task. Results are yielded in the order keys were
// drawn, whichever worker finishes first.
//
//	loader, err := prefetch.New(readFeatures, prefetch.Config{Workers: 4, PrefetchFactor: 2})
//	if err != nil {
//	    return err
//	}
//	defer loader.Close()
//
//	sess, err := loader.Iter(ctx, sampler.Slice(cutIDs))
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	for {
//	    item, ok, err := sess.Next(ctx)
//	    if err != nil {
//	        if prefetch.IsItemFailure(err) {
//	            continue // this key failed; the stream goes on
//	        }
//	        return err
//	    }
//	    if !ok {
//	        break
//	    }
//	    use(item)
//	}
//
// # Failures
//
// An item failure (the producer returned an error, panicked or exceeded
// TaskTimeout) is returned by the Next call that reaches its position and does
// not disturb any other position. A resource failure (the pool refused a task)
// or a key source error ends the session: outstanding tasks are released and
// every later Next returns the same error.
//
// # Abandonment
//
// Close cancels every outstanding task and waits for each to leave its
// worker, so an abandoned session holds no pool capacity afterwards. Producers
// should honour ctx for Close to return promptly.
package prefetch
