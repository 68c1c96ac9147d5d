package outbound

import (
	"context"

	"github.com/catsite05/novelvoice/playlist"
)

type TranscodeParams struct {
	// Source is the byte range of the growing container audio file to
	// convert, starting at Offset in the sink.
	Source []byte
	Offset int64
	// OutputDir receives the packaged media segment files.
	OutputDir string
	// MediaSequence is the index the first produced segment must carry.
	MediaSequence int
	// SegmentDuration is the target duration per packaged segment, seconds.
	SegmentDuration float64
}

type TranscodeResult struct {
	Segments []playlist.SegmentDescriptor
	// BytesConsumed may be less than len(Source) when the transcoder needs
	// segment-aligned input; the caller retries the remainder next tick.
	BytesConsumed int64
}

// SegmentTranscoderPort is the external segmenting transcoder. Conversion is
// keyed by byte offset above this port, so repeated invocations over an
// already-converted range must be a no-op for the caller.
type SegmentTranscoderPort interface {
	Transcode(ctx context.Context, params TranscodeParams) (*TranscodeResult, error)
}
