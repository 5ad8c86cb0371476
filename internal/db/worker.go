package db

import (
	"context"
	"database/sql"
)

type TxFn func(ctx context.Context, tx *sql.Tx) error

type writeJob struct {
	ctx    context.Context
	fn     TxFn
	result chan error
}

// Worker funnels every write transaction through one goroutine so the
// single-connection SQLite setup never sees interleaved writers.  Reads
// bypass it and hit the connection directly.
type Worker struct {
	db   *sql.DB
	jobs chan writeJob
	done chan struct{}
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:   db,
		jobs: make(chan writeJob, 256),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close drains queued jobs and stops the loop.  No Do calls may race it.
func (w *Worker) Close() {
	close(w.jobs)
	<-w.done
}

// Do runs fn inside a write transaction on the worker goroutine and
// returns its result.  If ctx expires while the job is queued or running,
// Do returns early; the transaction itself still completes and its result
// is discarded into the buffered channel.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	j := writeJob{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)
	for j := range w.jobs {
		j.result <- w.run(j)
	}
}

func (w *Worker) run(j writeJob) error {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
