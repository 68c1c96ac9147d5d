package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catsite05/novelvoice/application/ports/outbound"
)

type fileResumeStore struct {
	logger outbound.LoggerPort
	dir    string
}

// NewFileResumeStore keeps one resume point file per content next to the
// audio it describes.
func NewFileResumeStore(logger outbound.LoggerPort, dir string) outbound.ResumeStorePort {
	return &fileResumeStore{logger: logger, dir: dir}
}

func (s *fileResumeStore) Save(contentID string, point outbound.ResumePoint) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create resume dir: %w", err)
	}

	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("marshal resume point: %w", err)
	}

	// Write-then-rename so a crash never leaves a half-written point behind.
	tmp := s.path(contentID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write resume point: %w", err)
	}
	if err := os.Rename(tmp, s.path(contentID)); err != nil {
		return fmt.Errorf("commit resume point: %w", err)
	}
	return nil
}

func (s *fileResumeStore) Load(contentID string) (outbound.ResumePoint, bool) {
	data, err := os.ReadFile(s.path(contentID))
	if err != nil {
		return outbound.ResumePoint{}, false
	}

	var point outbound.ResumePoint
	if err := json.Unmarshal(data, &point); err != nil {
		s.logger.WarnWithFields("discarding corrupt resume point", map[string]interface{}{
			"content_id": contentID,
			"error":      err.Error(),
		})
		return outbound.ResumePoint{}, false
	}
	if point.SegmentIndex < 0 || point.Watermark < 0 {
		return outbound.ResumePoint{}, false
	}
	return point, true
}

func (s *fileResumeStore) Clear(contentID string) error {
	err := os.Remove(s.path(contentID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear resume point: %w", err)
	}
	return nil
}

func (s *fileResumeStore) path(contentID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("chapter_%s.resume.json", contentID))
}
