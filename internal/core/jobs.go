package core

import (
	"github.com/target/harvester/internal/domain/model"
)

// JobType is re-exported for HTTP handlers so they do not depend on the model package directly.
type JobType = model.JobType

// CreateJobRequest is re-exported for the same reason as JobType.
type CreateJobRequest = model.CreateJobRequest
