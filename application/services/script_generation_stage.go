package services

import (
	"context"
	"fmt"
	"time"

	"github.com/catsite05/novelvoice/application/ports/inbound"
	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/scriptqueue"
)

type ScriptStageConfig struct {
	Segmenter  SegmenterConfig
	MaxRetries int
	Backoff    time.Duration
}

type scriptGenerationStage struct {
	logger      outbound.LoggerPort
	oracle      outbound.ScriptOraclePort
	resolver    outbound.VoiceResolverPort
	scriptCache outbound.ScriptCachePort
	cfg         ScriptStageConfig
}

func NewScriptGenerationStage(logger outbound.LoggerPort, oracle outbound.ScriptOraclePort,
	resolver outbound.VoiceResolverPort, scriptCache outbound.ScriptCachePort,
	cfg ScriptStageConfig) inbound.ScriptGenerationStagePort {
	return &scriptGenerationStage{
		logger:      logger,
		oracle:      oracle,
		resolver:    resolver,
		scriptCache: scriptCache,
		cfg:         cfg,
	}
}

func (s *scriptGenerationStage) Run(ctx context.Context, task *domain.GenerationTask, text string, out *scriptqueue.Queue) {
	defer out.Close()

	task.SetStage(domain.StageScriptGenerating)

	segments := SplitIntoSegments(text, s.cfg.Segmenter)
	task.SetTotalSegments(len(segments))
	s.logger.InfoWithFields("split content into script segments", map[string]interface{}{
		"task_id":  task.ID,
		"segments": len(segments),
	})

	for i, segment := range segments {
		// Segments below ResumeFrom were committed by a previous run.
		if i < task.ResumeFrom {
			continue
		}
		// Cancellation checkpoint: one per segment boundary.
		if task.Token.Cancelled() {
			s.logger.Info("script generation stopping on cancellation")
			task.SetStage(domain.StageCancelled)
			return
		}

		script, err := s.generateWithRetry(ctx, task, i, segment)
		if err != nil {
			task.Fail(domain.KindOf(err, domain.ErrorKindOracle), err)
			return
		}
		if s.scriptCache != nil {
			if err := s.scriptCache.Put(task.ContentID, i, script); err != nil {
				s.logger.WarnWithFields("failed to cache oracle script", map[string]interface{}{
					"task_id": task.ID,
					"segment": i,
					"error":   err.Error(),
				})
			}
		}

		scriptSegment := s.resolveVoices(i, script)

		if err := out.Push(task.Token, scriptSegment); err != nil {
			if err == domain.ErrCancelled {
				task.SetStage(domain.StageCancelled)
				return
			}
			task.Fail(domain.ErrorKindOracle, err)
			return
		}
	}
}

// generateWithRetry asks the oracle for one segment's script, going through
// the cache first. Transient failures are retried with increasing backoff up
// to the configured budget; permanent ones fail immediately.
func (s *scriptGenerationStage) generateWithRetry(ctx context.Context, task *domain.GenerationTask, index int, segment string) (*domain.OracleScript, error) {
	if s.scriptCache != nil {
		if cached, ok := s.scriptCache.Get(task.ContentID, index); ok {
			return cached, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if task.Token.Cancelled() {
			return nil, domain.ErrCancelled
		}
		script, err := s.oracle.GenerateScript(ctx, segment)
		if err == nil {
			return script, nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			break
		}
		s.logger.WarnWithFields("oracle call failed, retrying", map[string]interface{}{
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
	return nil, fmt.Errorf("script oracle: %w", lastErr)
}

// resolveVoices maps every span through the voice resolver, carrying the
// oracle's prosody hints over the resolver defaults.
func (s *scriptGenerationStage) resolveVoices(index int, script *domain.OracleScript) domain.ScriptSegment {
	byName := make(map[string]domain.Speaker, len(script.Speakers))
	for _, speaker := range script.Speakers {
		byName[speaker.Name] = speaker
	}

	lines := make([]domain.ScriptLine, 0, len(script.Spans))
	for _, span := range script.Spans {
		var selection outbound.VoiceSelection
		if speaker, ok := byName[span.Speaker]; ok && span.Speaker != domain.NarratorName {
			selection = s.resolver.Resolve(speaker)
		} else {
			selection = s.resolver.Narrator()
		}

		prosody := selection.Prosody
		if span.Rate != "" {
			prosody.Rate = span.Rate
		}
		if span.Pitch != "" {
			prosody.Pitch = span.Pitch
		}
		if span.Volume != "" {
			prosody.Volume = span.Volume
		}

		lines = append(lines, domain.ScriptLine{
			Speaker: span.Speaker,
			VoiceID: selection.VoiceID,
			Text:    span.Text,
			Prosody: prosody,
		})
	}

	return domain.ScriptSegment{Index: index, Lines: lines}
}
