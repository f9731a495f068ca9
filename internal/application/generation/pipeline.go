package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"solidwriter-api/internal/application/quota"
	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
	"solidwriter-api/internal/domain/service"
	"solidwriter-api/internal/workflow/node"
	workflowprompt "solidwriter-api/internal/workflow/prompt"
	apperrors "solidwriter-api/pkg/errors"
	"solidwriter-api/pkg/logger"
	"solidwriter-api/pkg/metrics"
	"solidwriter-api/pkg/tracer"
)

// 上游错误原文写入 Detail 时的最大长度
const maxProviderDetailRunes = 2000

var errEmptyCompletion = errors.New("model returned empty content")

// Pipeline 生成流水线
//
// 顺序：身份 → 用户 → 额度闸门 → 参数校验 → 文档 → 指令 → 模型 → 结构化解析 → 结算 → 响应。
// 额度检查与提交之间不加锁，同一用户的并发请求可能短暂超额，下一次请求时拦截。
type Pipeline struct {
	users      repository.UserRepository
	docs       repository.DocumentRepository
	txMgr      repository.Transactor
	ledger     *quota.Ledger
	accountant *quota.Accountant
	usage      *quota.UsageService
	builder    *workflowprompt.Builder
	invoker    *Invoker
	publisher  service.UsagePublisher
}

// NewPipeline 创建生成流水线，publisher 可为 nil
func NewPipeline(
	users repository.UserRepository,
	docs repository.DocumentRepository,
	txMgr repository.Transactor,
	ledger *quota.Ledger,
	accountant *quota.Accountant,
	usage *quota.UsageService,
	builder *workflowprompt.Builder,
	invoker *Invoker,
	publisher service.UsagePublisher,
) *Pipeline {
	return &Pipeline{
		users:      users,
		docs:       docs,
		txMgr:      txMgr,
		ledger:     ledger,
		accountant: accountant,
		usage:      usage,
		builder:    builder,
		invoker:    invoker,
		publisher:  publisher,
	}
}

// prepared 进入模型调用前已通过全部闸门的请求
type prepared struct {
	identity    string
	user        *entity.User
	doc         *entity.Document
	req         entity.GenerationRequest
	instruction *workflowprompt.Instruction
	start       time.Time
}

func (p *prepared) mode() entity.Mode {
	return p.req.Mode()
}

// Generate 非流式生成
func (p *Pipeline) Generate(ctx context.Context, identity string, req entity.GenerationRequest) (*entity.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "generation.Pipeline.Generate")
	defer span.End()

	prep, err := p.prepare(ctx, identity, req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	mode := prep.mode()
	span.SetAttributes(attribute.String("generation.mode", string(mode)))

	raw, err := p.invoker.Invoke(ctx, mode, prep.instruction)
	if err != nil {
		appErr := p.fail(ctx, mode, err)
		tracer.RecordError(span, appErr)
		return nil, appErr
	}

	result := &entity.GenerationResult{Mode: mode, Text: strings.TrimSpace(raw)}
	if result.Text == "" && !mode.IsStructured() {
		appErr := p.fail(ctx, mode, p.emptyCompletion())
		tracer.RecordError(span, appErr)
		return nil, appErr
	}
	if mode.IsStructured() {
		items, err := node.NormalizeArray(raw)
		if err != nil {
			logger.Warn(ctx, "structured output could not be parsed",
				"mode", string(mode),
				"raw", node.TruncateByRunes(raw, 500),
			)
			appErr := p.fail(ctx, mode, err)
			tracer.RecordError(span, appErr)
			return nil, appErr
		}
		result.Items = items
		result.Text = node.EncodeArray(items)
	}

	if err := p.settle(ctx, prep, result, false); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// prepare 执行模型调用之前的全部闸门，任一失败即终止
func (p *Pipeline) prepare(ctx context.Context, identity string, req entity.GenerationRequest) (*prepared, error) {
	start := time.Now()

	identity = entity.NormalizeEmail(identity)
	if identity == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if req == nil {
		req = entity.FreeformRequest{}
	}
	mode := req.Mode()

	user, err := p.users.GetByEmail(ctx, identity)
	if err != nil {
		return nil, p.fail(ctx, mode, err)
	}
	if user == nil {
		return nil, p.fail(ctx, mode, quota.ErrUserNotFound)
	}

	user, migrated, err := p.ledger.MigrateLegacy(ctx, user)
	if err != nil {
		return nil, p.fail(ctx, mode, err)
	}
	if migrated {
		logger.Info(ctx, "legacy unit limit migrated", "user_id", user.ID, "unit_limit", user.UnitLimit)
		p.usage.Invalidate(ctx, identity)
	}

	if err := p.ledger.CheckAvailable(user); err != nil {
		metrics.QuotaRejections.Inc()
		return nil, p.fail(ctx, mode, err)
	}

	if err := req.Validate(); err != nil {
		return nil, p.fail(ctx, mode, err)
	}

	var doc *entity.Document
	if docID := strings.TrimSpace(req.Common().DocumentID); docID != "" {
		doc, err = p.docs.GetByID(ctx, docID)
		if err != nil {
			return nil, p.fail(ctx, mode, err)
		}
		if !doc.OwnedBy(user.ID) {
			return nil, p.fail(ctx, mode, apperrors.ErrDocumentNotFound.WithDetail(docID))
		}
	}

	ins, err := p.builder.Build(ctx, req)
	if err != nil {
		return nil, p.fail(ctx, mode, err)
	}

	return &prepared{
		identity:    identity,
		user:        user,
		doc:         doc,
		req:         req,
		instruction: ins,
		start:       start,
	}, nil
}

// emptyCompletion 模型只返回空白时按上游失败处理，不写回文档也不扣减
func (p *Pipeline) emptyCompletion() error {
	return &ProviderError{Provider: p.invoker.Info().Provider, Err: errEmptyCompletion}
}

// settle 在同一事务中写回文档并提交消耗，随后 best-effort 发布流水
func (p *Pipeline) settle(ctx context.Context, prep *prepared, result *entity.GenerationResult, streamed bool) error {
	mode := prep.mode()

	err := p.txMgr.WithTransaction(ctx, func(txCtx context.Context) error {
		if mode.IsFinalContent() && prep.doc != nil {
			if err := p.docs.UpdateContent(txCtx, prep.doc.ID, result.Text); err != nil {
				return err
			}
		}
		units, _, err := p.accountant.Settle(txCtx, prep.user, mode, result.Text)
		if err != nil {
			return err
		}
		result.UnitsConsumed = units
		return nil
	})
	if err != nil {
		result.UnitsConsumed = 0
		return p.fail(ctx, mode, err)
	}

	p.usage.Invalidate(ctx, prep.identity)

	elapsed := time.Since(prep.start)
	metrics.GenerationTotal.WithLabelValues(string(mode), "success").Inc()
	metrics.GenerationDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	metrics.GenerationUnits.WithLabelValues(string(mode)).Add(float64(result.UnitsConsumed))

	logger.Info(ctx, "generation completed",
		"user_id", prep.user.ID,
		"mode", string(mode),
		"units", result.UnitsConsumed,
		"streamed", streamed,
		"duration_ms", elapsed.Milliseconds(),
	)

	p.publish(ctx, prep, result, streamed, elapsed)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, prep *prepared, result *entity.GenerationResult, streamed bool, elapsed time.Duration) {
	if p.publisher == nil {
		return
	}
	info := p.invoker.Info()
	usage := service.GenerationUsage{
		EventID:    uuid.NewString(),
		UserID:     prep.user.ID,
		Mode:       result.Mode,
		Provider:   info.Provider,
		Model:      info.ModelName(),
		Units:      result.UnitsConsumed,
		Streamed:   streamed,
		DurationMs: elapsed.Milliseconds(),
		OccurredAt: time.Now().UTC(),
	}
	if prep.doc != nil {
		usage.DocumentID = prep.doc.ID
	}
	if err := p.publisher.Publish(ctx, usage); err != nil {
		logger.Warn(ctx, "failed to publish generation usage", "error", err.Error(), "user_id", prep.user.ID, "model", info.String())
	}
}

// fail 将内部错误映射为对外错误码并记录失败指标
func (p *Pipeline) fail(ctx context.Context, mode entity.Mode, err error) error {
	appErr := toAppError(err)
	if appErr.Code == apperrors.CodeInternalError {
		logger.Error(ctx, "generation failed", err, "mode", string(mode))
	}
	metrics.GenerationTotal.WithLabelValues(string(mode), statusLabel(appErr)).Inc()
	return appErr
}

func toAppError(err error) *apperrors.AppError {
	var (
		appErr      *apperrors.AppError
		exceeded    *quota.ExceededError
		fieldErr    *entity.FieldError
		providerErr *ProviderError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &exceeded):
		return apperrors.ErrQuotaExceeded.WithError(err)
	case errors.Is(err, quota.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.As(err, &fieldErr):
		return apperrors.ErrInvalidParam.WithDetail(fieldErr.Error())
	case errors.As(err, &providerErr):
		return apperrors.ErrProviderError.
			WithDetail(node.TruncateByRunes(providerErr.Err.Error(), maxProviderDetailRunes)).
			WithError(err)
	case errors.Is(err, node.ErrMalformedOutput):
		return apperrors.ErrMalformedOutput.WithError(err)
	default:
		return apperrors.ErrInternalError.WithError(err)
	}
}

func statusLabel(e *apperrors.AppError) string {
	switch e.Code {
	case apperrors.CodeQuotaExceeded:
		return "quota_exceeded"
	case apperrors.CodeLLMProviderError:
		return "provider_error"
	case apperrors.CodeMalformedOutput:
		return "malformed_output"
	case apperrors.CodeInvalidParam:
		return "invalid"
	case apperrors.CodeUnauthorized, apperrors.CodeUserNotFound, apperrors.CodeDocumentNotFound:
		return "rejected"
	default:
		return "error"
	}
}
