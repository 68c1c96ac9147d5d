package inbound

import (
	"context"

	"github.com/catsite05/novelvoice/audiosink"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/playlist"
)

// StreamPackagingStagePort watches the sink's committed-length watermark and
// repackages newly committed byte ranges into playable media segments. Run
// blocks until the sink is finalized and fully converted (or the task turns
// terminal), closing the playlist on the way out.
type StreamPackagingStagePort interface {
	Run(ctx context.Context, task *domain.GenerationTask, sink *audiosink.Sink, state *playlist.State)
}
