package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/domain"
	"github.com/catsite05/novelvoice/playlist"
)

type ffmpegTranscoder struct {
	logger outbound.LoggerPort
}

// NewFFMPEGTranscoder builds the transcoder that packages MP3 byte ranges
// into MPEG-TS media segments via the ffmpeg binary.
func NewFFMPEGTranscoder(logger outbound.LoggerPort) outbound.SegmentTranscoderPort {
	return &ffmpegTranscoder{logger: logger}
}

func (t *ffmpegTranscoder) Transcode(ctx context.Context, params outbound.TranscodeParams) (*outbound.TranscodeResult, error) {
	// The scratch dir lives under the output dir so renames stay on one
	// filesystem.
	workDir, err := os.MkdirTemp(params.OutputDir, ".work-")
	if err != nil {
		return nil, domain.NewPermanent(domain.ErrorKindTranscode, fmt.Errorf("create transcode work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			t.logger.Error(err, "failed to remove transcode work dir")
		}
	}()

	indexFile := filepath.Join(workDir, "index.m3u8")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", "mp3", "-i", "pipe:0",
		"-c:a", "aac", "-b:a", "192k",
		"-f", "hls",
		"-hls_time", strconv.FormatFloat(params.SegmentDuration, 'f', -1, 64),
		"-hls_list_size", "0",
		"-hls_flags", "independent_segments",
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", filepath.Join(workDir, "part_%03d.ts"),
		indexFile)
	cmd.Stdin = bytes.NewReader(params.Source)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.logger.ErrorWithFields(err, "ffmpeg segmenting failed", map[string]interface{}{
			"offset": params.Offset,
			"bytes":  len(params.Source),
			"stderr": stderr.String(),
		})
		return nil, domain.NewTransient(domain.ErrorKindTranscode, fmt.Errorf("ffmpeg: %w", err))
	}

	durations, names, err := parseSegmentIndex(indexFile)
	if err != nil {
		return nil, domain.NewPermanent(domain.ErrorKindTranscode, err)
	}

	descriptors := make([]playlist.SegmentDescriptor, 0, len(names))
	for i, name := range names {
		finalName := fmt.Sprintf("segment_%03d.ts", params.MediaSequence+i)
		src := filepath.Join(workDir, name)
		dst := filepath.Join(params.OutputDir, finalName)

		info, err := os.Stat(src)
		if err != nil {
			return nil, domain.NewPermanent(domain.ErrorKindTranscode, fmt.Errorf("stat media segment: %w", err))
		}
		if err := os.Rename(src, dst); err != nil {
			return nil, domain.NewPermanent(domain.ErrorKindTranscode, fmt.Errorf("move media segment: %w", err))
		}

		descriptors = append(descriptors, playlist.SegmentDescriptor{
			Index:    params.MediaSequence + i,
			Duration: durations[i],
			ByteSize: info.Size(),
			URI:      finalName,
		})
	}

	// MP3 is a self-synchronizing frame stream, so ffmpeg consumes the whole
	// range even when it starts mid-frame.
	return &outbound.TranscodeResult{
		Segments:      descriptors,
		BytesConsumed: int64(len(params.Source)),
	}, nil
}

// parseSegmentIndex reads the playlist ffmpeg wrote next to the segments and
// returns the per-segment durations and file names in order.
func parseSegmentIndex(path string) ([]float64, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read segment index: %w", err)
	}

	var (
		durations []float64
		names     []string
		pending   float64
		hasInf    bool
	)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			value := strings.TrimSuffix(strings.TrimPrefix(line, "#EXTINF:"), ",")
			d, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("parse segment duration %q: %w", value, err)
			}
			pending = d
			hasInf = true
		case line != "" && !strings.HasPrefix(line, "#"):
			if !hasInf {
				return nil, nil, fmt.Errorf("segment %q without duration in index", line)
			}
			durations = append(durations, pending)
			names = append(names, line)
			hasInf = false
		}
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("ffmpeg produced no media segments")
	}
	return durations, names, nil
}
