package quota

import (
	"context"
	"errors"

	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
	"solidwriter-api/internal/domain/service"
	"solidwriter-api/pkg/logger"
)

// ErrUserNotFound 身份键没有对应的用户记录
var ErrUserNotFound = errors.New("user not found")

// UsageService 额度读取与流水查询
type UsageService struct {
	users  repository.UserRepository
	events repository.UsageEventRepository
	ledger *Ledger
	cache  service.UsageSnapshotCache
}

// NewUsageService 创建额度读取服务，cache 可为 nil
func NewUsageService(users repository.UserRepository, events repository.UsageEventRepository, ledger *Ledger, cache service.UsageSnapshotCache) *UsageService {
	return &UsageService{users: users, events: events, ledger: ledger, cache: cache}
}

// Get 读取额度快照，未命中缓存时回源并执行旧上限迁移
func (s *UsageService) Get(ctx context.Context, identity string) (*service.UsageSnapshot, error) {
	identity = entity.NormalizeEmail(identity)
	load := func() (*service.UsageSnapshot, error) {
		return s.load(ctx, identity)
	}
	if s.cache == nil {
		return load()
	}

	snap, err := s.cache.GetOrLoad(ctx, identity, load)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		// 缓存不可用时直接回源
		logger.Warn(ctx, "usage cache unavailable, falling back to store", "error", err.Error())
		return load()
	}
	return snap, nil
}

func (s *UsageService) load(ctx context.Context, identity string) (*service.UsageSnapshot, error) {
	user, err := s.users.GetByEmail(ctx, identity)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	user, _, err = s.ledger.MigrateLegacy(ctx, user)
	if err != nil {
		return nil, err
	}
	return service.SnapshotFromUser(user), nil
}

// Invalidate 使快照缓存失效，失败只记录日志
func (s *UsageService) Invalidate(ctx context.Context, identity string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, entity.NormalizeEmail(identity)); err != nil {
		logger.Warn(ctx, "failed to invalidate usage cache", "error", err.Error())
	}
}

// ListEvents 分页列出用户的生成流水
func (s *UsageService) ListEvents(ctx context.Context, identity string, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationUsageEvent], error) {
	user, err := s.users.GetByEmail(ctx, entity.NormalizeEmail(identity))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.events.ListByUser(ctx, user.ID, pagination)
}
