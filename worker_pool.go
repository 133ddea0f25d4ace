// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pagelens

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
)

// WorkerPool runs submitted jobs on a fixed number of goroutines. A batch
// with one worker is processed strictly in submission order.
type WorkerPool struct {
	workers   int
	workQueue chan func()
	wg        sync.WaitGroup
	ctx       context.Context
}

// NewWorkerPool starts workers goroutines reading from a queue of queueSize.
func NewWorkerPool(ctx context.Context, workers int, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	wp := &WorkerPool{
		workers:   workers,
		workQueue: make(chan func(), queueSize),
		ctx:       ctx,
	}

	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.workQueue:
			if !ok {
				return
			}
			wp.run(job)
		case <-wp.ctx.Done():
			return
		}
	}
}

// run executes job, keeping a panicking page from taking the pool down.
func (wp *WorkerPool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker recovered from panic: %v\n%s", r, debug.Stack())
		}
	}()
	job()
}

// Submit queues job, blocking while the queue is full. It fails once the
// pool's context is done.
func (wp *WorkerPool) Submit(job func()) error {
	if err := wp.ctx.Err(); err != nil {
		return err
	}
	select {
	case wp.workQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Close stops accepting work and waits for running jobs to finish.
func (wp *WorkerPool) Close() {
	close(wp.workQueue)
	wp.wg.Wait()
}
