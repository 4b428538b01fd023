package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeRecordingExport JobType = "recording_export"
	JobTypeSendEmail       JobType = "send_email"
	JobTypeUsageFlush      JobType = "usage_flush"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// RecordingExportJobPayload contains the payload for recording export jobs
type RecordingExportJobPayload struct {
	RecordingUUID string `json:"recording_uuid"`
	Subject       string `json:"subject"`   // user ID or installation ID
	FilePath      string `json:"file_path"` // local path of the staged export
	ObjectKey     string `json:"object_key"`
	DeleteAfter   bool   `json:"delete_after"` // remove the staged file after upload
}

// ToMap converts the payload to a map for storage
func (p RecordingExportJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"recording_uuid": p.RecordingUUID,
		"subject":        p.Subject,
		"file_path":      p.FilePath,
		"object_key":     p.ObjectKey,
		"delete_after":   p.DeleteAfter,
	}
}

// RecordingExportJobPayloadFromMap creates a payload from a map
func RecordingExportJobPayloadFromMap(data map[string]interface{}) (*RecordingExportJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload RecordingExportJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// SendEmailJobPayload contains the payload for outbound email jobs
type SendEmailJobPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ToMap converts the payload to a map for storage
func (p SendEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"to":      p.To,
		"subject": p.Subject,
		"body":    p.Body,
	}
}

// SendEmailJobPayloadFromMap creates a payload from a map
func SendEmailJobPayloadFromMap(data map[string]interface{}) (*SendEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload SendEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// UsageFlushJobPayload contains the payload for usage flush jobs
type UsageFlushJobPayload struct {
	Day string `json:"day"` // YYYY-MM-DD; empty means previous UTC day
}

// ToMap converts the payload to a map for storage
func (p UsageFlushJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"day": p.Day,
	}
}

// UsageFlushJobPayloadFromMap creates a payload from a map
func UsageFlushJobPayloadFromMap(data map[string]interface{}) (*UsageFlushJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload UsageFlushJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
