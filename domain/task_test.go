package domain

import (
	"errors"
	"testing"
)

func TestGenerationTask_TerminalStagesAbsorb(t *testing.T) {
	task := NewGenerationTask("task-1", "actor-1", "content-1")

	if task.Stage() != StagePending {
		t.Fatal("new task not PENDING:", task.Stage())
	}

	task.SetStage(StageScriptGenerating)
	task.SetStage(StageCancelled)
	task.SetStage(StageSynthesizing)

	if task.Stage() != StageCancelled {
		t.Fatal("terminal stage overwritten:", task.Stage())
	}
	select {
	case <-task.Done():
	default:
		t.Fatal("Done not closed on terminal stage")
	}
}

func TestGenerationTask_FirstFailureWins(t *testing.T) {
	task := NewGenerationTask("task-1", "actor-1", "content-1")

	first := errors.New("oracle exploded")
	task.Fail(ErrorKindOracle, first)
	task.Fail(ErrorKindSynthesis, errors.New("later failure"))

	if task.Stage() != StageFailed {
		t.Fatal("task not FAILED:", task.Stage())
	}
	if !errors.Is(task.Err(), first) {
		t.Fatal("recorded error is not the first failure:", task.Err())
	}

	status := task.Status()
	if status.ErrorKind != ErrorKindOracle {
		t.Fatal("status carries wrong error kind:", status.ErrorKind)
	}
}

func TestGenerationTask_StatusProgress(t *testing.T) {
	task := NewGenerationTask("task-1", "actor-1", "content-1")
	task.SetTotalSegments(4)
	task.SegmentCommitted()
	task.AddBytesWritten(2048)
	task.AddWarning("segment 0 line 3: line skipped")

	status := task.Status()
	if status.Percent != 25 {
		t.Fatal("wrong percent:", status.Percent)
	}
	if status.BytesWritten != 2048 {
		t.Fatal("wrong bytes written:", status.BytesWritten)
	}
	if len(status.Warnings) != 1 {
		t.Fatal("warning not reported")
	}

	task.SetStage(StageCompleted)
	if task.Status().Percent != 100 {
		t.Fatal("completed task not at 100 percent")
	}
}
