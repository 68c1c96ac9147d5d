package services

import (
	"context"
	"fmt"
	"time"

	"github.com/catsite05/novelvoice/application/ports/inbound"
	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/audiosink"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/playlist"
)

type PackagingStageConfig struct {
	PollInterval         time.Duration
	MinDelta             int64
	FirstSegmentDuration float64
	SegmentDuration      float64
	FailureBudget        int
}

type streamPackagingStage struct {
	logger     outbound.LoggerPort
	transcoder outbound.SegmentTranscoderPort
	cfg        PackagingStageConfig
}

func NewStreamPackagingStage(logger outbound.LoggerPort, transcoder outbound.SegmentTranscoderPort,
	cfg PackagingStageConfig) inbound.StreamPackagingStagePort {
	return &streamPackagingStage{
		logger:     logger,
		transcoder: transcoder,
		cfg:        cfg,
	}
}

// Run converts committed sink bytes into playable media segments until the
// sink is finalized and fully converted. Each tick converts at most the
// range [lastConverted, watermark): the watermark is read once per tick and
// never overtaken, so the stage cannot observe partially written bytes.
func (s *streamPackagingStage) Run(ctx context.Context, task *domain.GenerationTask, sink *audiosink.Sink, state *playlist.State) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	failures := 0
	tokenDone := task.Token.Done()

	for {
		// Cancellation checkpoint: once per tick. Tail conversion still
		// happens below so committed bytes stay playable after cancel.
		select {
		case <-ticker.C:
		case <-sink.Committed():
		case <-tokenDone:
			tokenDone = nil
		}

		finalized := sink.Finalized()
		watermark := sink.Watermark()
		delta := watermark - state.LastConverted()

		if delta < 0 {
			task.Fail(domain.ErrorKindTranscode,
				fmt.Errorf("conversion offset %d beyond watermark %d", state.LastConverted(), watermark))
			return
		}

		if delta > 0 && (delta >= s.cfg.MinDelta || finalized) {
			consumed, err := s.convertDelta(ctx, task, sink, state, delta)
			switch {
			case err != nil:
				failures++
				s.logger.WarnWithFields("transcode tick failed", map[string]interface{}{
					"task_id":  task.ID,
					"failures": failures,
					"error":    err.Error(),
				})
			case consumed == 0 && finalized:
				// A finalized tail the transcoder refuses to consume will
				// never shrink; burning budget here bounds the retries.
				failures++
			default:
				failures = 0
				if err := state.Write(); err != nil {
					s.logger.Error(err, "failed to write playlist")
				}
			}
			if failures >= s.cfg.FailureBudget {
				if err == nil {
					err = fmt.Errorf("transcoder made no progress on finalized tail")
				}
				task.Fail(domain.ErrorKindTranscode,
					domain.NewPermanent(domain.ErrorKindTranscode,
						fmt.Errorf("transcode failed %d consecutive attempts: %w", failures, err)))
				return
			}
			if err != nil {
				continue
			}
		}

		if finalized && sink.Watermark() == state.LastConverted() {
			s.closeOut(task, state)
			return
		}

		// A failed task stops packaging even with unconverted bytes left;
		// what was already packaged stays on disk for inspection.
		if task.Stage() == domain.StageFailed {
			return
		}
	}
}

// convertDelta feeds exactly the unconverted byte range to the transcoder
// and records whatever it consumed. A short consume (segment-aligned input)
// leaves the remainder for the next tick.
func (s *streamPackagingStage) convertDelta(ctx context.Context, task *domain.GenerationTask, sink *audiosink.Sink, state *playlist.State, delta int64) (int64, error) {
	offset := state.LastConverted()
	source, err := sink.ReadRange(offset, delta)
	if err != nil {
		return 0, err
	}

	duration := s.cfg.SegmentDuration
	if state.NextMediaSequence() == 0 {
		duration = s.cfg.FirstSegmentDuration
	}

	result, err := s.transcoder.Transcode(ctx, outbound.TranscodeParams{
		Source:          source,
		Offset:          offset,
		OutputDir:       state.Dir(),
		MediaSequence:   state.NextMediaSequence(),
		SegmentDuration: duration,
	})
	if err != nil {
		return 0, err
	}
	if result.BytesConsumed < 0 || result.BytesConsumed > delta {
		return 0, fmt.Errorf("transcoder consumed %d of %d bytes", result.BytesConsumed, delta)
	}
	if result.BytesConsumed == 0 && len(result.Segments) == 0 {
		return 0, nil
	}

	if err := state.Append(result.Segments, result.BytesConsumed); err != nil {
		return 0, err
	}

	if sink.Finalized() {
		// Synthesis is done; what remains is repackaging the tail.
		task.SetStage(domain.StageStreamPackaging)
	}
	s.logger.DebugWithFields("converted sink delta", map[string]interface{}{
		"task_id":  task.ID,
		"offset":   offset,
		"consumed": result.BytesConsumed,
		"segments": len(result.Segments),
	})
	return result.BytesConsumed, nil
}

// closeOut writes the terminal playlist marker. Reached on normal
// completion and on cancellation, after the finalized sink's tail was
// converted: bytes committed before the stop remain playable.
func (s *streamPackagingStage) closeOut(task *domain.GenerationTask, state *playlist.State) {
	task.SetStage(domain.StageFinalizing)
	state.Close()
	if err := state.Write(); err != nil {
		s.logger.Error(err, "failed to write closed playlist")
		return
	}
	s.logger.InfoWithFields("playlist closed", map[string]interface{}{
		"task_id":  task.ID,
		"segments": len(state.Segments()),
		"duration": state.TotalDuration(),
	})
}
