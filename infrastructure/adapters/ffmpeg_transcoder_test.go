package adapters

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSegmentIndex(t *testing.T) {
	index := `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:60
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:6.016000,
part_000.ts
#EXTINF:60.000000,
part_001.ts
#EXTINF:13.456000,
part_002.ts
#EXT-X-ENDLIST
`
	path := filepath.Join(t.TempDir(), "index.m3u8")
	if err := os.WriteFile(path, []byte(index), 0o644); err != nil {
		t.Fatal("failed to write index:", err)
	}

	durations, names, err := parseSegmentIndex(path)
	if err != nil {
		t.Fatal("parse failed:", err)
	}
	if len(names) != 3 || names[0] != "part_000.ts" || names[2] != "part_002.ts" {
		t.Fatal("wrong segment names:", names)
	}
	if durations[0] != 6.016 || durations[1] != 60 || durations[2] != 13.456 {
		t.Fatal("wrong durations:", durations)
	}
}

func TestParseSegmentIndex_EmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.m3u8")
	if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal("failed to write index:", err)
	}

	if _, _, err := parseSegmentIndex(path); err == nil {
		t.Fatal("empty index accepted")
	}
}
