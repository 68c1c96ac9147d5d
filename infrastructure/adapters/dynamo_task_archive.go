package adapters

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"github.com/catsite05/novelvoice/application/ports/outbound"
	"github.com/catsite05/novelvoice/config"
	"github.com/catsite05/novelvoice/domain"
)

type dynamoTaskItem struct {
	ActorID           string   `dynamodbav:"actor_id"`
	TaskID            string   `dynamodbav:"task_id"`
	ContentID         string   `dynamodbav:"content_id"`
	Stage             string   `dynamodbav:"stage"`
	BytesWritten      int64    `dynamodbav:"bytes_written"`
	SegmentsCommitted int64    `dynamodbav:"segments_committed"`
	TotalSegments     int64    `dynamodbav:"total_segments"`
	ErrorKind         string   `dynamodbav:"error_kind,omitempty"`
	Error             string   `dynamodbav:"error,omitempty"`
	Warnings          []string `dynamodbav:"warnings,omitempty"`
	FinishedAt        int64    `dynamodbav:"finished_at"`
}

type dynamoTaskArchive struct {
	logger        outbound.LoggerPort
	dynamoSvc     *dynamodb.DynamoDB
	storageConfig *config.StorageConfig
}

func NewDynamoTaskArchive(logger outbound.LoggerPort, dynamoSvc *dynamodb.DynamoDB, storageConfig *config.StorageConfig) outbound.TaskArchivePort {
	return &dynamoTaskArchive{
		logger:        logger,
		dynamoSvc:     dynamoSvc,
		storageConfig: storageConfig,
	}
}

func (a *dynamoTaskArchive) Archive(ctx context.Context, status domain.TaskStatus) error {
	item := dynamoTaskItem{
		ActorID:           status.ActorID,
		TaskID:            status.TaskID,
		ContentID:         status.ContentID,
		Stage:             string(status.Stage),
		BytesWritten:      status.BytesWritten,
		SegmentsCommitted: status.SegmentsCommitted,
		TotalSegments:     status.TotalSegments,
		ErrorKind:         string(status.ErrorKind),
		Error:             status.Error,
		Warnings:          status.Warnings,
		FinishedAt:        time.Now().Unix(),
	}
	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		a.logger.ErrorWithFields(err, "failed to marshal task item", map[string]interface{}{
			"task_id": status.TaskID,
		})
		return err
	}

	input := &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(a.storageConfig.ArchiveTable),
	}

	_, err = a.dynamoSvc.PutItemWithContext(ctx, input)
	if err != nil {
		a.logger.ErrorWithFields(err, "failed to archive task item", map[string]interface{}{
			"task_id": status.TaskID,
		})
		return err
	}

	return nil
}
