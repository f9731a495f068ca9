package quota

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
	"solidwriter-api/internal/domain/service"
)

// UsageRecorder 将生成流水落库，由 usage-worker 调用
type UsageRecorder struct {
	events repository.UsageEventRepository
}

// NewUsageRecorder 创建流水记录器
func NewUsageRecorder(events repository.UsageEventRepository) *UsageRecorder {
	return &UsageRecorder{events: events}
}

// Record 写入一条流水，EventID 相同的重复投递只落一次
func (r *UsageRecorder) Record(ctx context.Context, in service.GenerationUsage) error {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return fmt.Errorf("usage event missing user id")
	}
	if in.Units < 0 {
		return fmt.Errorf("invalid units: %d", in.Units)
	}

	id := strings.TrimSpace(in.EventID)
	if id == "" {
		id = uuid.NewString()
	}

	evt := &entity.GenerationUsageEvent{
		ID:         id,
		UserID:     userID,
		DocumentID: strings.TrimSpace(in.DocumentID),
		Mode:       in.Mode,
		Provider:   strings.TrimSpace(in.Provider),
		Model:      strings.TrimSpace(in.Model),
		Units:      in.Units,
		Streamed:   in.Streamed,
		DurationMs: in.DurationMs,
		CreatedAt:  in.OccurredAt,
	}
	return r.events.Create(ctx, evt)
}
