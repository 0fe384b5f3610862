package repository

import (
	"context"
	"time"
)

type ErrorLogEntry struct {
	Endpoint  string
	Code      int
	Severity  int
	Message   string
	Details   string
	UserID    *int64
	IPAddress string
	Ticket    string
	CreatedAt time.Time
}

type ErrorLogRepository interface {
	Insert(ctx context.Context, entry *ErrorLogEntry) error
}
