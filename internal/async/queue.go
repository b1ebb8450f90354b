package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

// Job is one document waiting to be processed.
type Job struct {
	ID          string
	Path        string
	SubmittedAt time.Time
}

// NewJob stamps a path with a fresh id.
func NewJob(path string) Job {
	return Job{ID: uuid.NewString(), Path: path, SubmittedAt: time.Now()}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Status(id string) (constants.JobStatus, bool)
	Shutdown(ctx context.Context)
}
