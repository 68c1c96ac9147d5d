package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// TaskStage is the coarse position of a task in its state machine. The
// synthesis and packaging stages overlap in real time; Stage reports the
// synthesis side until finalization begins.
type TaskStage string

const (
	StagePending          TaskStage = "PENDING"
	StageScriptGenerating TaskStage = "SCRIPT_GENERATING"
	StageSynthesizing     TaskStage = "SYNTHESIZING"
	StageStreamPackaging  TaskStage = "STREAM_PACKAGING"
	StageFinalizing       TaskStage = "FINALIZING"
	StageCompleted        TaskStage = "COMPLETED"
	StageFailed           TaskStage = "FAILED"
	StageCancelled        TaskStage = "CANCELLED"
)

// Terminal reports whether the stage is absorbing.
func (s TaskStage) Terminal() bool {
	return s == StageCompleted || s == StageFailed || s == StageCancelled
}

// GenerationTask tracks one end-to-end generation run for one actor and one
// piece of content. Stages mutate the counters through atomic setters; the
// manager exposes read-only snapshots to callers.
type GenerationTask struct {
	ID        string
	ActorID   string
	ContentID string
	Token     *CancellationToken
	StartedAt time.Time

	// ResumeFrom is the first script segment index to process; non-zero
	// when the manager resumed a previous run. Set before the stages start,
	// read-only afterwards.
	ResumeFrom int

	stage atomic.Value // TaskStage

	totalSegments     atomic.Int64
	segmentsCommitted atomic.Int64
	bytesWritten      atomic.Int64

	mu       sync.Mutex
	err      error
	errKind  ErrorKind
	warnings []string

	doneOnce sync.Once
	done     chan struct{}
}

func NewGenerationTask(id, actorID, contentID string) *GenerationTask {
	t := &GenerationTask{
		ID:        id,
		ActorID:   actorID,
		ContentID: contentID,
		Token:     NewCancellationToken(),
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	t.stage.Store(StagePending)
	return t
}

// Stage returns the task's current stage.
func (t *GenerationTask) Stage() TaskStage {
	return t.stage.Load().(TaskStage)
}

// SetStage advances the stage. Terminal stages are absorbing: once the task
// is COMPLETED, FAILED or CANCELLED no further transition is recorded.
func (t *GenerationTask) SetStage(s TaskStage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Stage().Terminal() {
		return
	}
	t.stage.Store(s)
	if s.Terminal() {
		t.doneOnce.Do(func() { close(t.done) })
	}
}

// Fail records the first failure and moves the task to FAILED. Later calls
// keep the original error.
func (t *GenerationTask) Fail(kind ErrorKind, err error) {
	t.mu.Lock()
	if t.err == nil && !t.Stage().Terminal() {
		t.err = err
		t.errKind = kind
	}
	t.mu.Unlock()
	t.SetStage(StageFailed)
}

// AddWarning records a non-fatal, line-scoped problem (e.g. a skipped line).
func (t *GenerationTask) AddWarning(msg string) {
	t.mu.Lock()
	t.warnings = append(t.warnings, msg)
	t.mu.Unlock()
}

// SetTotalSegments fixes the number of script segments the task will
// process; known once the text has been split.
func (t *GenerationTask) SetTotalSegments(n int) {
	t.totalSegments.Store(int64(n))
}

// SegmentCommitted bumps the committed-segment counter after a segment's
// bytes are durably in the sink.
func (t *GenerationTask) SegmentCommitted() {
	t.segmentsCommitted.Add(1)
}

// AddBytesWritten accounts sink growth.
func (t *GenerationTask) AddBytesWritten(n int64) {
	t.bytesWritten.Add(n)
}

// Done is closed when the task reaches a terminal stage.
func (t *GenerationTask) Done() <-chan struct{} {
	return t.done
}

// TaskStatus is the caller-facing snapshot of a task.
type TaskStatus struct {
	TaskID            string    `json:"task_id"`
	ActorID           string    `json:"actor_id"`
	ContentID         string    `json:"content_id"`
	Stage             TaskStage `json:"stage"`
	Percent           int       `json:"percent"`
	BytesWritten      int64     `json:"bytes_written"`
	SegmentsCommitted int64     `json:"segments_committed"`
	TotalSegments     int64     `json:"total_segments"`
	ErrorKind         ErrorKind `json:"error_kind,omitempty"`
	Error             string    `json:"error,omitempty"`
	Warnings          []string  `json:"warnings,omitempty"`
}

// Status builds a consistent snapshot safe to call concurrently with the
// running stages.
func (t *GenerationTask) Status() TaskStatus {
	t.mu.Lock()
	err := t.err
	kind := t.errKind
	warnings := append([]string(nil), t.warnings...)
	t.mu.Unlock()

	st := TaskStatus{
		TaskID:            t.ID,
		ActorID:           t.ActorID,
		ContentID:         t.ContentID,
		Stage:             t.Stage(),
		BytesWritten:      t.bytesWritten.Load(),
		SegmentsCommitted: t.segmentsCommitted.Load(),
		TotalSegments:     t.totalSegments.Load(),
		Warnings:          warnings,
	}
	if err != nil {
		st.Error = err.Error()
		st.ErrorKind = kind
	}
	switch {
	case st.Stage == StageCompleted:
		st.Percent = 100
	case st.TotalSegments > 0:
		st.Percent = int(st.SegmentsCommitted * 100 / st.TotalSegments)
	}
	return st
}

// Err returns the recorded failure, if any.
func (t *GenerationTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
