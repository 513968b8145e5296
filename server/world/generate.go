package world

import (
	"fmt"
	"time"

	"github.com/dm-vev/chunkengine/server/world/chunk"
)

// generationTask is a request for a generator worker to fill the chunk of a
// column. The result is sent to done, which has a buffer of one.
type generationTask struct {
	pos  ChunkPos
	c    *chunk.Chunk
	done chan error
}

// errLevelClosing is returned for generation requests that could not be
// completed because the Level is closing.
var errLevelClosing = fmt.Errorf("world: level closing")

// generate generates a new column at the position passed using the Generator
// of the Level. It blocks until a generator worker finished the task.
func (l *Level) generate(pos ChunkPos) (*chunk.Column, error) {
	task := generationTask{pos: pos, c: chunk.New(airRID, l.conf.Range), done: make(chan error, 1)}
	l.generateChunkAsync(task)

	select {
	case err := <-task.done:
		if err != nil {
			return nil, fmt.Errorf("generate column %v: %w", pos, err)
		}
	case <-l.closing:
		return nil, fmt.Errorf("generate column %v: %w", pos, errLevelClosing)
	}
	l.metrics.incGenerated(pos)
	return &chunk.Column{Chunk: task.c, Status: chunk.StatusFull}, nil
}

// generateChunkAsync hands a generation task to the generator workers. If the
// queue is full, the task is queued from a separate goroutine and a
// backpressure warning may be logged.
func (l *Level) generateChunkAsync(task generationTask) {
	select {
	case <-l.closing:
		task.done <- errLevelClosing
	case l.generatorQueue <- task:
	default:
		go l.enqueueGeneration(task)
		l.handleGeneratorBackpressure()
	}
}

// enqueueGeneration waits for a place in the generator queue, unless the
// Level closes first.
func (l *Level) enqueueGeneration(task generationTask) {
	select {
	case <-l.closing:
		task.done <- errLevelClosing
	case l.generatorQueue <- task:
	}
}

// generatorWorker runs generation tasks until the Level closes. Tasks left in
// the queue at that point fail.
func (l *Level) generatorWorker() {
	defer l.running.Done()

	for {
		select {
		case task := <-l.generatorQueue:
			l.runGenerationTask(task)
		case <-l.closing:
			l.drainGenerationQueue()
			return
		}
	}
}

// runGenerationTask runs the Generator for a task. A panicking Generator fails
// the task instead of taking down the worker.
func (l *Level) runGenerationTask(task generationTask) {
	defer func() {
		if r := recover(); r != nil {
			l.conf.Log.Error(
				"generate chunk: panic",
				"error", fmt.Sprint(r),
				"X", task.pos[0],
				"Z", task.pos[1],
			)
			task.done <- fmt.Errorf("generator panic: %v", r)
		}
	}()
	task.done <- l.conf.Generator.GenerateChunk(task.pos, task.c)
}

// drainGenerationQueue fails every task still in the generator queue.
func (l *Level) drainGenerationQueue() {
	for {
		select {
		case task := <-l.generatorQueue:
			task.done <- errLevelClosing
		default:
			return
		}
	}
}

// handleGeneratorBackpressure increments backpressure counters and emits a
// throttled warning when the generator queue saturates.
func (l *Level) handleGeneratorBackpressure() {
	count := l.generatorQueueSaturation.Add(1)
	now := uint64(time.Now().UnixNano())
	last := l.lastQueueSaturationLog.Load()

	if last != 0 && time.Duration(now-last) < time.Minute {
		return
	}
	if !l.lastQueueSaturationLog.CompareAndSwap(last, now) {
		return
	}

	l.conf.Log.Warn(
		"world generator queue saturated: chunk generation backlog detected.",
		"queued_tasks", count,
		"queue_size", cap(l.generatorQueue),
		"workers", l.conf.GeneratorWorkers,
	)
}
