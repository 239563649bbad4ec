package ports

import (
	"context"

	"github.com/bnema/wns-cli/internal/domain"
)

// StateStore is the durable record of workflow progress. It owns
// CheckpointRecord persistence exclusively; one run has a single writer,
// while concurrent readers (such as a status view) are allowed.
type StateStore interface {
	Append(ctx context.Context, record domain.CheckpointRecord) error
	Records(ctx context.Context) ([]domain.CheckpointRecord, error)
	Reset(ctx context.Context) error
}
