package repository

import "context"

type ProjectRepository interface {
	Exists(ctx context.Context, projectID int64) (bool, error)
}
