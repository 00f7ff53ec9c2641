package interfaces

import "trade-briefing/internal/types"

type Renderer interface {
	Render(data types.BriefingData, narrative string) ([]byte, error)
}
