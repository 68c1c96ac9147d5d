package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/infrastructure/adapters"
	"github.com/catsite05/novelvoice/scriptqueue"
)

func newScriptStageConfig() ScriptStageConfig {
	return ScriptStageConfig{
		Segmenter:  segmenterConfig,
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	}
}

func TestScriptGenerationStage_RetriesTransientFailures(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	oracle := &fakeOracle{fn: func(call int, text string) (*domain.OracleScript, error) {
		if call < 2 {
			return nil, domain.NewTransient(domain.ErrorKindOracle, errors.New("status 503"))
		}
		return oracleScriptFor(text), nil
	}}

	stage := NewScriptGenerationStage(logger, oracle, fakeResolver{}, nil, newScriptStageConfig())

	task := domain.NewGenerationTask("task-1", "actor-1", "content-1")
	queue := scriptqueue.New(10, 0)

	stage.Run(context.Background(), task, "A short chapter about rain.", queue)

	if err := task.Err(); err != nil {
		t.Fatal("task failed:", err)
	}
	if oracle.callCount() != 3 {
		t.Fatal("unexpected oracle call count:", oracle.callCount())
	}

	segment, ok, err := queue.Pop(task.Token)
	if err != nil || !ok {
		t.Fatal("no segment produced:", ok, err)
	}
	if segment.Index != 0 || len(segment.Lines) != 1 {
		t.Fatalf("unexpected segment: index %d, %d lines", segment.Index, len(segment.Lines))
	}
	if segment.Lines[0].VoiceID != "voice-narrator" {
		t.Fatal("narrator span got voice:", segment.Lines[0].VoiceID)
	}

	if _, ok, _ := queue.Pop(task.Token); ok {
		t.Fatal("more than one segment for a short text")
	}
}

func TestScriptGenerationStage_PermanentFailureFailsTask(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	oracle := &fakeOracle{fn: func(int, string) (*domain.OracleScript, error) {
		return nil, domain.NewPermanent(domain.ErrorKindOracle, errors.New("status 401"))
	}}

	stage := NewScriptGenerationStage(logger, oracle, fakeResolver{}, nil, newScriptStageConfig())

	task := domain.NewGenerationTask("task-1", "actor-1", "content-1")
	queue := scriptqueue.New(10, 0)

	stage.Run(context.Background(), task, "A short chapter about rain.", queue)

	if task.Stage() != domain.StageFailed {
		t.Fatal("task not FAILED:", task.Stage())
	}
	if oracle.callCount() != 1 {
		t.Fatal("permanent failure was retried, calls:", oracle.callCount())
	}
	if task.Status().ErrorKind != domain.ErrorKindOracle {
		t.Fatal("wrong error kind:", task.Status().ErrorKind)
	}
}

func TestScriptGenerationStage_CancellationStopsGeneration(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	oracle := &fakeOracle{fn: func(int, string) (*domain.OracleScript, error) {
		return oracleScriptFor("span"), nil
	}}

	stage := NewScriptGenerationStage(logger, oracle, fakeResolver{}, nil, newScriptStageConfig())

	task := domain.NewGenerationTask("task-1", "actor-1", "content-1")
	task.Token.Cancel()
	queue := scriptqueue.New(10, 0)

	stage.Run(context.Background(), task, "A short chapter about rain.", queue)

	if task.Stage() != domain.StageCancelled {
		t.Fatal("cancelled task in stage:", task.Stage())
	}
	if oracle.callCount() != 0 {
		t.Fatal("oracle called after cancellation")
	}
	if _, ok, _ := queue.Pop(task.Token); ok {
		t.Fatal("segments pushed after cancellation")
	}
}

func TestScriptGenerationStage_ServesFromCache(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	oracle := &fakeOracle{fn: func(int, string) (*domain.OracleScript, error) {
		return nil, domain.NewPermanent(domain.ErrorKindOracle, errors.New("should not be called"))
	}}

	cache := adapters.NewFileScriptCache(logger, t.TempDir())
	if err := cache.Put("content-1", 0, oracleScriptFor("cached span")); err != nil {
		t.Fatal("failed to seed cache:", err)
	}

	stage := NewScriptGenerationStage(logger, oracle, fakeResolver{}, cache, newScriptStageConfig())

	task := domain.NewGenerationTask("task-1", "actor-1", "content-1")
	queue := scriptqueue.New(10, 0)

	stage.Run(context.Background(), task, "A short chapter about rain.", queue)

	if err := task.Err(); err != nil {
		t.Fatal("task failed:", err)
	}
	if oracle.callCount() != 0 {
		t.Fatal("oracle invoked despite cached script")
	}

	segment, ok, _ := queue.Pop(task.Token)
	if !ok || segment.Lines[0].Text != "cached span" {
		t.Fatal("cached script not used")
	}
}
