package inbound

import (
	"context"

	"github.com/catsite05/novelvoice/audiosink"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/scriptqueue"
)

// SynthesisStagePort consumes script segments in index order, synthesizes
// each line and appends the audio to the sink. Run blocks until the stage
// reaches its terminal state and always finalizes the sink before returning,
// so the packaging stage can close out the stream.
type SynthesisStagePort interface {
	Run(ctx context.Context, task *domain.GenerationTask, in *scriptqueue.Queue, sink *audiosink.Sink)
}
