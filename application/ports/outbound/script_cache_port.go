package outbound

import "github.com/catsite05/novelvoice/domain"

// ScriptCachePort stores oracle output per (content, segment index) so a
// retried task does not re-invoke the oracle for segments it already paid
// for. A miss returns ok=false, never an error.
type ScriptCachePort interface {
	Get(contentID string, segmentIndex int) (*domain.OracleScript, bool)
	Put(contentID string, segmentIndex int, script *domain.OracleScript) error
}
