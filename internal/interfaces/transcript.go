package interfaces

import (
	"context"

	"trade-briefing/internal/types"
)

// TranscriptSource retrieves metadata and raw caption text for a video.
type TranscriptSource interface {
	Info(ctx context.Context, videoURL string) (types.VideoInfo, error)
	Captions(ctx context.Context, videoURL string) (string, error)
}

// VideoDiscoverer resolves a channel to its recent videos.
type VideoDiscoverer interface {
	Latest(ctx context.Context, channelID string, limit int) ([]types.VideoInfo, error)
}
