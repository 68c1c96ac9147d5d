package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/domain"
)

func TestFileResumeStore_RoundTrip(t *testing.T) {
	store := NewFileResumeStore(NewZerologWrapper(), t.TempDir())

	_, ok := store.Load("content-1")
	require.False(t, ok, "load on empty store")

	point := outbound.ResumePoint{SegmentIndex: 4, Watermark: 123456}
	require.NoError(t, store.Save("content-1", point))

	loaded, ok := store.Load("content-1")
	require.True(t, ok)
	require.Equal(t, point, loaded)

	require.NoError(t, store.Clear("content-1"))
	require.NoError(t, store.Clear("content-1"), "clear must be idempotent")

	_, ok = store.Load("content-1")
	require.False(t, ok, "load after clear")
}

func TestFileResumeStore_RejectsCorruptPoint(t *testing.T) {
	dir := t.TempDir()
	store := NewFileResumeStore(NewZerologWrapper(), dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "chapter_content-1.resume.json"), []byte("{broken"), 0o644))

	_, ok := store.Load("content-1")
	require.False(t, ok, "corrupt point must read as a miss")
}

func TestFileScriptCache_RoundTrip(t *testing.T) {
	cache := NewFileScriptCache(NewZerologWrapper(), t.TempDir())

	_, ok := cache.Get("content-1", 0)
	require.False(t, ok, "get on empty cache")

	script := &domain.OracleScript{
		Speakers: []domain.Speaker{{Name: "Chen", Gender: "Male", Personality: "Professional"}},
		Spans:    []domain.OracleSpan{{Speaker: "Chen", Text: "We should go."}},
	}
	require.NoError(t, cache.Put("content-1", 0, script))

	loaded, ok := cache.Get("content-1", 0)
	require.True(t, ok)
	require.Equal(t, script, loaded)

	_, ok = cache.Get("content-1", 1)
	require.False(t, ok, "different segment index must miss")
	_, ok = cache.Get("content-2", 0)
	require.False(t, ok, "different content must miss")
}
