package outbound

import (
	"context"

	"github.com/catsite05/novelvoice/domain"
)

// TaskArchivePort records terminal task outcomes for the catalog side of the
// system. Archiving is best-effort: a failed archive is logged, never
// surfaced to the task.
type TaskArchivePort interface {
	Archive(ctx context.Context, status domain.TaskStatus) error
}
