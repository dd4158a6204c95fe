// Package workerpool provides a fixed-size goroutine pool and typed task
// handles.
//
// A Pool runs submitted jobs on a fixed number of workers. Submission never
// blocks: jobs wait in an unbounded FIFO until a worker is free. Closing the
// pool stops admission, cancels the context handed to every job and waits for
// the workers to exit.
//
// Submit wraps a function into a Future, the handle the caller awaits:
//
//	pool := workerpool.New(workerpool.Config{Name: "features", Workers: 4})
//	defer pool.Close()
//
//	f, err := workerpool.Submit(ctx, pool, func(ctx context.Context) (int, error) {
//	    return readFeatures(ctx, key)
//	})
//	if err != nil {
//	    return err // pool closed
//	}
//	n, err := f.Await(ctx)
//
// Panics inside a Future's function are recovered and surface as an error
// from Await instead of crashing the process.
package workerpool
