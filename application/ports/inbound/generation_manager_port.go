package inbound

import (
	"context"

	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/playlist"
)

type StartGenerationParams struct {
	ActorID   string
	ContentID string
	Text      string
}

// GenerationManagerPort owns the actor→task registry and task lifecycle.
// Start atomically cancels the actor's previous non-terminal task; Cancel is
// idempotent; Status and Streaming are safe concurrently with a running
// task.
type GenerationManagerPort interface {
	Start(ctx context.Context, params StartGenerationParams) (string, error)
	Status(taskID string) (domain.TaskStatus, error)
	Cancel(taskID string) error
	Streaming(taskID string) (*playlist.State, error)
}
