package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/domain"
)

type fileScriptCache struct {
	logger outbound.LoggerPort
	dir    string
}

// NewFileScriptCache stores oracle scripts as one JSON file per content
// segment, so retried runs skip paid oracle calls.
func NewFileScriptCache(logger outbound.LoggerPort, dir string) outbound.ScriptCachePort {
	return &fileScriptCache{logger: logger, dir: dir}
}

func (c *fileScriptCache) Get(contentID string, segmentIndex int) (*domain.OracleScript, bool) {
	data, err := os.ReadFile(c.path(contentID, segmentIndex))
	if err != nil {
		return nil, false
	}

	var script domain.OracleScript
	if err := json.Unmarshal(data, &script); err != nil {
		c.logger.WarnWithFields("discarding corrupt cached script", map[string]interface{}{
			"content_id": contentID,
			"segment":    segmentIndex,
			"error":      err.Error(),
		})
		return nil, false
	}
	return &script, true
}

func (c *fileScriptCache) Put(contentID string, segmentIndex int, script *domain.OracleScript) error {
	if err := os.MkdirAll(c.contentDir(contentID), 0o755); err != nil {
		return fmt.Errorf("create script cache dir: %w", err)
	}

	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	if err := os.WriteFile(c.path(contentID, segmentIndex), data, 0o644); err != nil {
		return fmt.Errorf("write cached script: %w", err)
	}
	return nil
}

func (c *fileScriptCache) contentDir(contentID string) string {
	return filepath.Join(c.dir, contentID)
}

func (c *fileScriptCache) path(contentID string, segmentIndex int) string {
	return filepath.Join(c.contentDir(contentID), fmt.Sprintf("segment_%d.json", segmentIndex))
}
