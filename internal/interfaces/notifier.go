package interfaces

import (
	"context"

	"trade-briefing/internal/types"
)

type Notifier interface {
	SendText(ctx context.Context, text string) error
	SendSummary(ctx context.Context, data types.BriefingData, dashboardURL string) error
}
