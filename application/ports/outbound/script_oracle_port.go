package outbound

import (
	"context"

	"github.com/catsite05/novelvoice/domain"
)

// ScriptOraclePort is the external service that turns a bounded text segment
// into structured speaker and dialogue annotations. Implementations classify
// their failures through domain.ClassifiedError: transient ones are retried
// by the script stage, permanent ones fail the task.
type ScriptOraclePort interface {
	GenerateScript(ctx context.Context, text string) (*domain.OracleScript, error)
}
