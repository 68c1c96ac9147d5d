package services

import (
	"strings"
	"testing"
	"unicode/utf8"
)

var segmenterConfig = SegmenterConfig{
	FirstTarget:  200,
	SecondTarget: 400,
	Target:       1500,
	MinTail:      100,
}

func runeLengths(segments []string) []int {
	lengths := make([]int, len(segments))
	for i, s := range segments {
		lengths[i] = utf8.RuneCountInString(s)
	}
	return lengths
}

func TestSplitIntoSegments_Staircase(t *testing.T) {
	paragraphs := []string{
		strings.Repeat("a", 180),
		strings.Repeat("b", 350),
		strings.Repeat("c", 1400),
		strings.Repeat("d", 50),
	}
	text := strings.Join(paragraphs, "\n")

	segments := SplitIntoSegments(text, segmenterConfig)

	wantLengths := []int{180, 350, 1451}
	got := runeLengths(segments)
	if len(got) != len(wantLengths) {
		t.Fatalf("got %d segments %v, want %v", len(got), got, wantLengths)
	}
	for i, want := range wantLengths {
		if got[i] != want {
			t.Fatalf("segment %d has length %d, want %d", i, got[i], want)
		}
	}
}

func TestSplitIntoSegments_HardSplitFollowsStaircase(t *testing.T) {
	segments := SplitIntoSegments(strings.Repeat("a", 4000), segmenterConfig)

	// One giant paragraph must be cut at the staircase targets, not into a
	// pile of first-tier slices.
	wantLengths := []int{200, 400, 1500, 1500, 400}
	got := runeLengths(segments)
	if len(got) != len(wantLengths) {
		t.Fatalf("got %d segments %v, want %v", len(got), got, wantLengths)
	}
	for i, want := range wantLengths {
		if got[i] != want {
			t.Fatalf("segment %d has length %d, want %d", i, got[i], want)
		}
	}
}

func TestSplitIntoSegments_SplitsMultibyteTextOnRuneBoundaries(t *testing.T) {
	sentence := "夜色渐深，雨声敲打着窗棂。"
	text := strings.Repeat(sentence, 200) // 2600 runes, one paragraph

	segments := SplitIntoSegments(text, segmenterConfig)

	wantLengths := []int{200, 400, 1500, 500}
	got := runeLengths(segments)
	if len(got) != len(wantLengths) {
		t.Fatalf("got %d segments %v, want %v", len(got), got, wantLengths)
	}
	for i, segment := range segments {
		if !utf8.ValidString(segment) {
			t.Fatalf("segment %d is not valid UTF-8", i)
		}
		if got[i] != wantLengths[i] {
			t.Fatalf("segment %d has length %d, want %d", i, got[i], wantLengths[i])
		}
	}
	if strings.Join(segments, "") != text {
		t.Fatal("splitting lost or reordered characters")
	}
}

func TestSplitIntoSegments_PreservesEveryCharacter(t *testing.T) {
	text := strings.Repeat("The night train rolled on through the dark.\n", 80)

	segments := SplitIntoSegments(text, segmenterConfig)
	if len(segments) < 3 {
		t.Fatal("expected several segments, got:", len(segments))
	}

	strip := func(s string) string {
		return strings.ReplaceAll(s, "\n", "")
	}
	joined := strip(strings.Join(segments, ""))
	if joined != strip(text) {
		t.Fatal("splitting lost or reordered characters")
	}
}

func TestSplitIntoSegments_MergesShortTail(t *testing.T) {
	text := strings.Repeat("a", 180) + "\n" + strings.Repeat("b", 30)

	segments := SplitIntoSegments(text, segmenterConfig)
	if len(segments) != 1 {
		t.Fatal("short tail not merged, segments:", len(segments))
	}
	if len(segments[0]) != 180+1+30 {
		t.Fatal("merged segment has wrong length:", len(segments[0]))
	}
}

func TestSplitIntoSegments_EmptyInput(t *testing.T) {
	if segments := SplitIntoSegments("  \n\n  ", segmenterConfig); segments != nil {
		t.Fatal("blank input produced segments:", segments)
	}
}
