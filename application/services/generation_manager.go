package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catsite05/novelvoice/application/ports/inbound"
	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/audiosink"
	"github.com/catsite05/novelvoice/channel_utils"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/playlist"
	"github.com/catsite05/novelvoice/scriptqueue"
)

type ManagerConfig struct {
	AudioDir         string
	HLSDir           string
	QueueCapacity    int
	QueuePushTimeout time.Duration
	TargetDuration   float64
}

type taskRecord struct {
	task      *domain.GenerationTask
	streaming *playlist.State
	sinkPath  string
}

// generationManager is the process-wide registry mapping each actor to at
// most one active generation task. All registry mutation happens under a
// single lock; per-task state is owned by the task's stages.
type generationManager struct {
	logger      outbound.LoggerPort
	dispatcher  outbound.TaskDispatcher
	scriptStage inbound.ScriptGenerationStagePort
	synthesis   inbound.SynthesisStagePort
	packaging   inbound.StreamPackagingStagePort
	resumeStore outbound.ResumeStorePort
	archive     outbound.TaskArchivePort
	publisher   outbound.ArtifactPublisherPort
	cfg         ManagerConfig

	mu     sync.Mutex
	active map[string]*taskRecord // actor id -> non-terminal task
	tasks  map[string]*taskRecord // task id -> record, terminal included
}

func NewGenerationManager(logger outbound.LoggerPort, dispatcher outbound.TaskDispatcher,
	scriptStage inbound.ScriptGenerationStagePort, synthesis inbound.SynthesisStagePort,
	packaging inbound.StreamPackagingStagePort, resumeStore outbound.ResumeStorePort,
	archive outbound.TaskArchivePort, publisher outbound.ArtifactPublisherPort,
	cfg ManagerConfig) inbound.GenerationManagerPort {
	return &generationManager{
		logger:      logger,
		dispatcher:  dispatcher,
		scriptStage: scriptStage,
		synthesis:   synthesis,
		packaging:   packaging,
		resumeStore: resumeStore,
		archive:     archive,
		publisher:   publisher,
		cfg:         cfg,
		active:      make(map[string]*taskRecord),
		tasks:       make(map[string]*taskRecord),
	}
}

// Start registers a new task for the actor, cancelling any previous
// non-terminal one. Cancellation of the old task is awaited (bounded) only
// when both tasks target the same content and thus the same sink file.
func (m *generationManager) Start(ctx context.Context, params inbound.StartGenerationParams) (string, error) {
	if params.ActorID == "" || params.ContentID == "" {
		return "", fmt.Errorf("actor id and content id are required")
	}

	taskID := uuid.NewString()
	task := domain.NewGenerationTask(taskID, params.ActorID, params.ContentID)

	m.mu.Lock()
	prev := m.active[params.ActorID]
	if prev != nil {
		m.logger.InfoWithFields("cancelling previous task for actor", map[string]interface{}{
			"actor_id":     params.ActorID,
			"prev_task_id": prev.task.ID,
		})
		prev.task.Token.Cancel()
	}
	m.mu.Unlock()

	// The old task appends to the same sink file when the content matches;
	// let it drain before truncating under its handle.
	if prev != nil && prev.task.ContentID == params.ContentID {
		select {
		case <-prev.task.Done():
		case <-time.After(10 * time.Second):
			m.logger.WarnWithFields("previous task still draining, reopening sink anyway", map[string]interface{}{
				"prev_task_id": prev.task.ID,
			})
		}
	}

	sink, startSegment, err := m.openSink(params.ContentID)
	if err != nil {
		return "", err
	}
	task.ResumeFrom = startSegment
	if w := sink.Watermark(); w > 0 {
		task.AddBytesWritten(w)
	}
	for i := 0; i < startSegment; i++ {
		task.SegmentCommitted()
	}

	artifactDir := filepath.Join(m.cfg.HLSDir,
		fmt.Sprintf("user_%s", params.ActorID), fmt.Sprintf("task_%s", taskID))
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	record := &taskRecord{
		task:      task,
		streaming: playlist.NewState(artifactDir, m.cfg.TargetDuration),
		sinkPath:  sink.Path(),
	}

	m.mu.Lock()
	if racer, ok := m.active[params.ActorID]; ok && racer != prev {
		// Another Start slipped in while we drained; it loses.
		racer.task.Token.Cancel()
	}
	m.active[params.ActorID] = record
	m.tasks[taskID] = record
	m.mu.Unlock()

	if err := m.launch(ctx, record, params.Text, sink); err != nil {
		m.unregister(record)
		task.Fail(domain.ErrorKindSynthesis, err)
		return "", err
	}

	m.logger.InfoWithFields("generation task started", map[string]interface{}{
		"task_id":    taskID,
		"actor_id":   params.ActorID,
		"content_id": params.ContentID,
	})
	return taskID, nil
}

// openSink creates the sink file for the content, resuming a previous run
// when a valid resume point exists.
func (m *generationManager) openSink(contentID string) (*audiosink.Sink, int, error) {
	if err := os.MkdirAll(m.cfg.AudioDir, 0o755); err != nil {
		return nil, 0, fmt.Errorf("create audio dir: %w", err)
	}
	sinkPath := filepath.Join(m.cfg.AudioDir, fmt.Sprintf("chapter_%s.mp3", contentID))

	if m.resumeStore != nil {
		if point, ok := m.resumeStore.Load(contentID); ok && point.SegmentIndex > 0 {
			sink, err := audiosink.Resume(sinkPath, point.Watermark)
			if err == nil {
				m.logger.InfoWithFields("resuming audio generation", map[string]interface{}{
					"content_id": contentID,
					"segment":    point.SegmentIndex,
					"watermark":  point.Watermark,
				})
				return sink, point.SegmentIndex, nil
			}
			m.logger.Error(err, "resume point unusable, restarting from scratch")
		}
	}

	sink, err := audiosink.Open(sinkPath)
	if err != nil {
		return nil, 0, err
	}
	return sink, 0, nil
}

// launch spawns the three stage goroutines plus the completion watcher.
func (m *generationManager) launch(ctx context.Context, record *taskRecord, text string, sink *audiosink.Sink) error {
	task := record.task
	queue := scriptqueue.New(m.cfg.QueueCapacity, m.cfg.QueuePushTimeout)

	scriptDone := make(chan struct{})
	synthDone := make(chan struct{})
	packagingDone := make(chan struct{})

	if err := m.dispatcher.Submit(func() {
		defer close(scriptDone)
		m.scriptStage.Run(ctx, task, text, queue)
	}); err != nil {
		return fmt.Errorf("submit script stage: %w", err)
	}
	if err := m.dispatcher.Submit(func() {
		defer close(synthDone)
		m.synthesis.Run(ctx, task, queue, sink)
	}); err != nil {
		return fmt.Errorf("submit synthesis stage: %w", err)
	}
	if err := m.dispatcher.Submit(func() {
		defer close(packagingDone)
		m.packaging.Run(ctx, task, sink, record.streaming)
	}); err != nil {
		return fmt.Errorf("submit packaging stage: %w", err)
	}

	stagesDone, err := channel_utils.MergeChannels(m.dispatcher, scriptDone, synthDone, packagingDone)
	if err != nil {
		return fmt.Errorf("merge stage channels: %w", err)
	}

	return m.dispatcher.Submit(func() {
		for range stagesDone {
		}
		m.finish(record)
	})
}

// finish runs after all three stages returned: it settles the terminal
// state, archives the outcome and publishes artifacts.
func (m *generationManager) finish(record *taskRecord) {
	task := record.task

	switch {
	case task.Err() != nil:
		task.SetStage(domain.StageFailed)
	case task.Token.Cancelled():
		task.SetStage(domain.StageCancelled)
	default:
		task.SetStage(domain.StageCompleted)
	}
	m.unregister(record)

	status := task.Status()
	m.logger.InfoWithFields("generation task finished", map[string]interface{}{
		"task_id": task.ID,
		"stage":   string(status.Stage),
		"bytes":   status.BytesWritten,
		"sink":    record.sinkPath,
	})

	ctx := context.Background()
	if m.archive != nil {
		if err := m.archive.Archive(ctx, status); err != nil {
			m.logger.Error(err, "failed to archive task outcome")
		}
	}
	if m.publisher != nil && status.Stage == domain.StageCompleted {
		if err := m.publisher.Publish(ctx, task.ActorID, task.ID, record.streaming.Dir()); err != nil {
			m.logger.Error(err, "failed to publish artifacts")
		}
	}
}

func (m *generationManager) unregister(record *taskRecord) {
	m.mu.Lock()
	if current, ok := m.active[record.task.ActorID]; ok && current == record {
		delete(m.active, record.task.ActorID)
	}
	m.mu.Unlock()
}

// Status returns a snapshot of the task, terminal or not.
func (m *generationManager) Status(taskID string) (domain.TaskStatus, error) {
	m.mu.Lock()
	record, ok := m.tasks[taskID]
	m.mu.Unlock()
	if !ok {
		return domain.TaskStatus{}, domain.ErrTaskNotFound
	}
	return record.task.Status(), nil
}

// Cancel requests cooperative stop. Idempotent; cancelling a terminal task
// is a no-op.
func (m *generationManager) Cancel(taskID string) error {
	m.mu.Lock()
	record, ok := m.tasks[taskID]
	m.mu.Unlock()
	if !ok {
		return domain.ErrTaskNotFound
	}
	record.task.Token.Cancel()
	return nil
}

// Streaming exposes the task's playlist state for the HTTP surface.
func (m *generationManager) Streaming(taskID string) (*playlist.State, error) {
	m.mu.Lock()
	record, ok := m.tasks[taskID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return record.streaming, nil
}
