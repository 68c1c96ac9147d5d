package inbound

import (
	"context"

	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/scriptqueue"
)

// ScriptGenerationStagePort splits the input text, resolves voices and feeds
// ordered script segments into the queue. Run blocks until the stage reaches
// its terminal state and always closes the queue before returning.
type ScriptGenerationStagePort interface {
	Run(ctx context.Context, task *domain.GenerationTask, text string, out *scriptqueue.Queue)
}
