package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/catsite05/novelvoice/application/ports/inbound"
	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/audiosink"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/scriptqueue"
)

type SynthesisStageConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

type synthesisStage struct {
	logger      outbound.LoggerPort
	synthesizer outbound.SpeechSynthesizerPort
	resumeStore outbound.ResumeStorePort
	cfg         SynthesisStageConfig
}

func NewSynthesisStage(logger outbound.LoggerPort, synthesizer outbound.SpeechSynthesizerPort,
	resumeStore outbound.ResumeStorePort, cfg SynthesisStageConfig) inbound.SynthesisStagePort {
	return &synthesisStage{
		logger:      logger,
		synthesizer: synthesizer,
		resumeStore: resumeStore,
		cfg:         cfg,
	}
}

// Run consumes script segments strictly in index order. Bytes for segment
// N+1 are appended only after segment N is fully committed, so on-disk order
// always matches logical order. The sink is finalized on every exit path.
func (s *synthesisStage) Run(ctx context.Context, task *domain.GenerationTask, in *scriptqueue.Queue, sink *audiosink.Sink) {
	defer func() {
		if err := sink.Finalize(); err != nil {
			s.logger.Error(err, "failed to finalize audio sink")
		}
	}()

	completed := false
	defer func() {
		if completed && s.resumeStore != nil {
			if err := s.resumeStore.Clear(task.ContentID); err != nil {
				s.logger.Error(err, "failed to clear resume point")
			}
		}
	}()

	for {
		// Cancellation checkpoint: one per segment boundary.
		if task.Token.Cancelled() {
			s.logger.Info("synthesis stopping on cancellation")
			task.SetStage(domain.StageCancelled)
			return
		}

		segment, ok, err := in.Pop(task.Token)
		if err != nil {
			task.SetStage(domain.StageCancelled)
			return
		}
		if !ok {
			// Producer closed the queue: either the script ran out normally
			// or its stage already drove the task terminal.
			completed = task.Err() == nil && !task.Token.Cancelled()
			return
		}

		task.SetStage(domain.StageSynthesizing)

		if err := s.synthesizeSegment(ctx, task, segment, sink); err != nil {
			task.Fail(domain.KindOf(err, domain.ErrorKindSynthesis), err)
			return
		}

		watermark, err := sink.Commit()
		if err != nil {
			task.Fail(domain.ErrorKindSynthesis, err)
			return
		}
		task.SegmentCommitted()
		if s.resumeStore != nil {
			if err := s.resumeStore.Save(task.ContentID, outbound.ResumePoint{
				SegmentIndex: segment.Index + 1,
				Watermark:    watermark,
			}); err != nil {
				s.logger.Error(err, "failed to save resume point")
			}
		}
	}
}

// synthesizeSegment renders every line of one segment into the sink. A
// permanent per-line failure skips the line with a recorded warning;
// exhausted transient retries abort the segment.
func (s *synthesisStage) synthesizeSegment(ctx context.Context, task *domain.GenerationTask, segment domain.ScriptSegment, sink *audiosink.Sink) error {
	for lineIndex, line := range segment.Lines {
		if task.Token.Cancelled() {
			return domain.ErrCancelled
		}
		if strings.TrimSpace(line.Text) == "" {
			continue
		}

		audio, err := s.synthesizeWithRetry(ctx, task, line)
		if err != nil {
			if err == domain.ErrCancelled {
				return err
			}
			if !domain.IsTransient(err) {
				task.AddWarning(fmt.Sprintf("segment %d line %d (%s): line skipped: %v",
					segment.Index, lineIndex, line.Speaker, err))
				s.logger.WarnWithFields("skipping unsynthesizable line", map[string]interface{}{
					"task_id": task.ID,
					"segment": segment.Index,
					"line":    lineIndex,
					"error":   err.Error(),
				})
				continue
			}
			return fmt.Errorf("synthesize segment %d line %d: %w", segment.Index, lineIndex, err)
		}

		n, err := sink.Append(audio)
		if err != nil {
			return err
		}
		task.AddBytesWritten(int64(n))
	}
	return nil
}

func (s *synthesisStage) synthesizeWithRetry(ctx context.Context, task *domain.GenerationTask, line domain.ScriptLine) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		audio, err := s.synthesizer.Synthesize(ctx, outbound.SynthesizeParams{
			Text:    line.Text,
			VoiceID: line.VoiceID,
			Prosody: line.Prosody,
		})
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			return nil, err
		}
		s.logger.WarnWithFields("tts call failed, retrying", map[string]interface{}{
			"task_id": task.ID,
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
		select {
		case <-time.After(s.cfg.Backoff * time.Duration(attempt+1)):
		case <-task.Token.Done():
			return nil, domain.ErrCancelled
		}
	}
	return nil, lastErr
}
