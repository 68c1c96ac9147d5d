package outbound

import (
	"context"

	"github.com/catsite05/novelvoice/domain"
)

type SynthesizeParams struct {
	Text    string
	VoiceID string
	Prosody domain.Prosody
}

// SpeechSynthesizerPort is the external text-to-speech engine. It returns
// raw audio bytes in the sink's container format; the synthesis stage
// appends them without re-encoding. Failures carry a transient/permanent
// classification.
type SpeechSynthesizerPort interface {
	Synthesize(ctx context.Context, params SynthesizeParams) ([]byte, error)
}
