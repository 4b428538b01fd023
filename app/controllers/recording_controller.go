package controllers

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/loglens/loglens/internal/pkg/entitlements"
	"github.com/loglens/loglens/internal/pkg/export"
	"github.com/loglens/loglens/internal/pkg/jobqueue"
)

// HandleRecordingExport stages an uploaded recording and queues its archive
// upload. The request body is the raw NDJSON recording; it is gzipped to a
// local staging file so the HTTP request finishes before the S3 upload runs.
func HandleRecordingExport(c *fiber.Ctx) error {
	subject, plan, ok := licenseIdentity(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing license token"})
	}

	if !entitlements.GetEntitlements(plan).Export {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "Recording export requires a trial or paid plan",
		})
	}

	cfg, err := export.LoadConfig()
	if err != nil || !cfg.IsEnabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "export_disabled", "message": "Recording export is not configured"})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Empty recording body"})
	}

	recordingUUID := uuid.NewString()
	stagingPath := filepath.Join(os.TempDir(), fmt.Sprintf("loglens-export-%s.ndjson.gz", recordingUUID))
	if err := writeGzipFile(stagingPath, body); err != nil {
		log.Printf("recording staging failed for %s: %v", subject, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Export staging failed"})
	}

	now := time.Now().UTC()
	payload := jobqueue.RecordingExportJobPayload{
		RecordingUUID: recordingUUID,
		Subject:       subject,
		FilePath:      stagingPath,
		ObjectKey:     cfg.GetObjectKey(recordingUUID, now.Year(), int(now.Month())),
		DeleteAfter:   true,
	}
	job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeRecordingExport, payload.ToMap())
	if err != nil {
		_ = os.Remove(stagingPath)
		log.Printf("recording export enqueue failed for %s: %v", subject, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Export enqueue failed"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"recording_uuid": recordingUUID,
		"job_id":         job.ID,
		"object_key":     payload.ObjectKey,
	})
}

func writeGzipFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		_ = gz.Close()
		_ = f.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
