package playlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catsite05/novelvoice/domain"
)

func TestState_RenderWhileOpenHasNoEndMarker(t *testing.T) {
	state := NewState(t.TempDir(), 60)

	err := state.Append([]SegmentDescriptor{
		{Index: 0, Duration: 6.0, ByteSize: 1000, URI: "segment_000.ts"},
		{Index: 1, Duration: 60.0, ByteSize: 9000, URI: "segment_001.ts"},
	}, 10000)
	if err != nil {
		t.Fatal("append failed:", err)
	}

	doc := state.Render()
	if strings.Contains(doc, "#EXT-X-ENDLIST") {
		t.Fatal("open playlist carries end marker")
	}
	if !strings.Contains(doc, "#EXTINF:6.000000,\nsegment_000.ts") {
		t.Fatal("first segment missing from playlist:\n" + doc)
	}
	if !strings.Contains(doc, "#EXT-X-TARGETDURATION:60") {
		t.Fatal("wrong target duration:\n" + doc)
	}
}

func TestState_CloseAddsEndMarker(t *testing.T) {
	state := NewState(t.TempDir(), 60)
	if err := state.Append([]SegmentDescriptor{{Index: 0, Duration: 6, URI: "segment_000.ts"}}, 500); err != nil {
		t.Fatal("append failed:", err)
	}

	state.Close()
	state.Close()

	if !strings.HasSuffix(state.Render(), "#EXT-X-ENDLIST\n") {
		t.Fatal("closed playlist lacks end marker")
	}
	if err := state.Append([]SegmentDescriptor{{Index: 1, Duration: 6, URI: "segment_001.ts"}}, 500); err != domain.ErrPlaylistClosed {
		t.Fatal("append after close not rejected:", err)
	}
}

func TestState_RejectsOutOfSequenceSegments(t *testing.T) {
	state := NewState(t.TempDir(), 60)

	if err := state.Append([]SegmentDescriptor{{Index: 1, Duration: 6, URI: "segment_001.ts"}}, 500); err == nil {
		t.Fatal("out-of-sequence segment accepted")
	}
	if state.LastConverted() != 0 {
		t.Fatal("rejected append advanced conversion offset")
	}
}

func TestState_TracksConversionOffsetAndDuration(t *testing.T) {
	state := NewState(t.TempDir(), 60)

	if err := state.Append([]SegmentDescriptor{{Index: 0, Duration: 6, URI: "segment_000.ts"}}, 4096); err != nil {
		t.Fatal("append failed:", err)
	}
	if err := state.Append([]SegmentDescriptor{{Index: 1, Duration: 60, URI: "segment_001.ts"}}, 65536); err != nil {
		t.Fatal("append failed:", err)
	}

	if state.LastConverted() != 4096+65536 {
		t.Fatal("wrong conversion offset:", state.LastConverted())
	}
	if state.NextMediaSequence() != 2 {
		t.Fatal("wrong next media sequence:", state.NextMediaSequence())
	}
	if state.TotalDuration() != 66 {
		t.Fatal("wrong total duration:", state.TotalDuration())
	}
}

func TestState_WritePersistsPlaylist(t *testing.T) {
	dir := t.TempDir()
	state := NewState(dir, 60)
	if err := state.Append([]SegmentDescriptor{{Index: 0, Duration: 6, URI: "segment_000.ts"}}, 500); err != nil {
		t.Fatal("append failed:", err)
	}

	if err := state.Write(); err != nil {
		t.Fatal("write failed:", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "playlist.m3u8"))
	if err != nil {
		t.Fatal("playlist file missing:", err)
	}
	if string(data) != state.Render() {
		t.Fatal("written playlist differs from rendered state")
	}
}
