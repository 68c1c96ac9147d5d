package services

import (
	"strings"
	"unicode/utf8"
)

// SegmenterConfig controls the staircase splitting strategy: a short first
// segment for fast playback start, a medium second one, full-size afterwards.
// All sizes are in runes, not bytes.
type SegmenterConfig struct {
	FirstTarget  int
	SecondTarget int
	Target       int
	// MinTail merges a trailing segment shorter than this into its
	// predecessor.
	MinTail int
}

// SplitIntoSegments splits text into bounded segments at paragraph
// boundaries. A single paragraph longer than the current ceiling is
// hard-split at the staircase target for its position. Splits always fall on
// rune boundaries; concatenating the result reconstructs the input up to
// whitespace normalization.
func SplitIntoSegments(text string, cfg SegmenterConfig) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	staircase := []int{cfg.FirstTarget, cfg.SecondTarget}

	var segments []string
	var current []rune
	segmentIndex := 0

	targets := func() (target, min, max int) {
		if segmentIndex < len(staircase) && staircase[segmentIndex] > 0 {
			t := staircase[segmentIndex]
			return t, t * 7 / 10, t * 13 / 10
		}
		return cfg.Target, 200, cfg.Target
	}

	flush := func() {
		if len(current) > 0 {
			segments = append(segments, string(current))
			current = current[:0]
			segmentIndex++
		}
	}

	appendParagraph := func(p []rune) {
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, p...)
	}

	for _, p := range paragraphs {
		paragraph := []rune(p)
		target, min, max := targets()

		// An oversized paragraph is the only case where we cut inside one.
		// Each cut advances the staircase, so the target is recomputed per
		// emitted piece.
		if len(paragraph) > max {
			flush()
			for {
				target, _, _ = targets()
				if len(paragraph) <= target {
					break
				}
				segments = append(segments, string(paragraph[:target]))
				segmentIndex++
				paragraph = paragraph[target:]
			}
			if len(paragraph) > 0 {
				appendParagraph(paragraph)
			}
			continue
		}

		potential := len(current) + len(paragraph)
		if len(current) > 0 {
			potential++ // joining newline
		}

		switch {
		case potential > max && len(current) >= min:
			flush()
			appendParagraph(paragraph)
		case len(current) >= min && potential > target:
			flush()
			appendParagraph(paragraph)
		default:
			appendParagraph(paragraph)
		}
	}
	flush()

	// A stub tail reads badly on its own; fold it into the previous segment.
	if n := len(segments); n > 1 && utf8.RuneCountInString(segments[n-1]) < cfg.MinTail {
		segments[n-2] += "\n" + segments[n-1]
		segments = segments[:n-1]
	}

	return segments
}
