package jobqueue

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/loglens/loglens/internal/pkg/export"
)

// exportUploader is the narrow surface of export.Client the processor needs.
type exportUploader interface {
	UploadFile(localFilePath, objectKey string) (*export.UploadResult, error)
}

var (
	exportClientOnce sync.Once
	exportClient     exportUploader
	exportClientErr  error
)

// newExportClient is swapped out by tests.
var newExportClient = func() (exportUploader, error) {
	cfg, err := export.LoadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("recording export is disabled")
	}
	return export.NewClient(cfg)
}

func getExportClient() (exportUploader, error) {
	exportClientOnce.Do(func() {
		exportClient, exportClientErr = newExportClient()
	})
	return exportClient, exportClientErr
}

// resetExportClient clears the cached client, used by tests.
func resetExportClient() {
	exportClientOnce = sync.Once{}
	exportClient = nil
	exportClientErr = nil
}

// processRecordingExportJob uploads a staged recording file to S3
func (q *Queue) processRecordingExportJob(ctx context.Context, job *Job) error {
	_ = ctx

	payload, err := RecordingExportJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid recording export payload: %w", err)
	}
	if payload.FilePath == "" || payload.ObjectKey == "" {
		return fmt.Errorf("recording export payload missing file path or object key")
	}

	client, err := getExportClient()
	if err != nil {
		return fmt.Errorf("export client unavailable: %w", err)
	}

	result, err := client.UploadFile(payload.FilePath, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to export recording %s: %w", payload.RecordingUUID, err)
	}

	log.Infof("[JobQueue] Exported recording %s to s3://%s/%s (%d bytes)",
		payload.RecordingUUID, result.BucketName, result.ObjectKey, result.Size)

	if payload.DeleteAfter {
		if err := os.Remove(payload.FilePath); err != nil && !os.IsNotExist(err) {
			log.Warnf("[JobQueue] Failed to remove staged export %s: %v", payload.FilePath, err)
		}
	}
	return nil
}
