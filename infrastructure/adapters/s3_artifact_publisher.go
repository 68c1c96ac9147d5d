package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/config"
)

type s3ArtifactPublisher struct {
	logger        outbound.LoggerPort
	s3Svc         *s3.S3
	storageConfig *config.StorageConfig
}

func NewS3ArtifactPublisher(logger outbound.LoggerPort, storageConfig *config.StorageConfig) outbound.ArtifactPublisherPort {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(storageConfig.Region)})
	if err != nil {
		logger.Error(err, "failed to create session")
	}
	return &s3ArtifactPublisher{
		logger:        logger,
		s3Svc:         s3.New(sess),
		storageConfig: storageConfig,
	}
}

// Publish uploads the playlist and every media segment under artifactDir.
// The local files stay in place for direct serving.
func (p *s3ArtifactPublisher) Publish(ctx context.Context, actorID, taskID, artifactDir string) error {
	entries, err := os.ReadDir(artifactDir)
	if err != nil {
		p.logger.Error(err, "failed to read artifact dir")
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := p.uploadFile(ctx, actorID, taskID, artifactDir, entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (p *s3ArtifactPublisher) uploadFile(ctx context.Context, actorID, taskID, artifactDir, name string) error {
	file, err := os.Open(filepath.Join(artifactDir, name))
	if err != nil {
		p.logger.Error(err, "failed to open artifact file")
		return err
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			p.logger.Error(err, "failed to close artifact file")
		}
	}(file)

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(p.storageConfig.PublishBucket),
		Key:         aws.String(p.getS3ItemPath(actorID, taskID, name)),
		Body:        file,
		ContentType: aws.String(artifactContentType(name)),
	}

	_, err = p.s3Svc.PutObjectWithContext(ctx, putInput)
	if err != nil {
		p.logger.ErrorWithFields(err, "failed to upload artifact to S3", map[string]interface{}{
			"file": name,
		})
		return err
	}
	return nil
}

func (p *s3ArtifactPublisher) getS3ItemPath(actorID, taskID, name string) string {
	return fmt.Sprintf("user/%s/task/%s/%s", actorID, taskID, name)
}

func artifactContentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.HasSuffix(name, ".ts"):
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}
