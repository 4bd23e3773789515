package domain

import (
	"context"
	"time"
)

type Service interface {
	Check(ctx context.Context) (CheckResult, error)
	// Build refuses with a *BlockedError while any occupant is incomplete.
	Build(ctx context.Context, date time.Time) (Register, error)
	ExportXLSX(ctx context.Context, date time.Time) ([]byte, error)
	ExportPDF(ctx context.Context, date time.Time) ([]byte, error)
}
