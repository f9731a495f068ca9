package generation

import (
	"context"
	"errors"
	"io"
	"strings"

	"solidwriter-api/internal/domain/entity"
	apperrors "solidwriter-api/pkg/errors"
	"solidwriter-api/pkg/metrics"
)

// StreamSession 一次流式生成
//
// 文本块按上游顺序经 Next 交付；读到结尾后才写回文档并结算额度，
// 中途失败不产生任何持久化副作用。
type StreamSession struct {
	pipeline *Pipeline
	prep     *prepared
	stream   *TextStream
	ctx      context.Context

	buf    strings.Builder
	result *entity.GenerationResult
	err    error
	closed bool
}

// Stream 开启流式生成。结构化模式需要完整输出才能解析，不支持流式
func (p *Pipeline) Stream(ctx context.Context, identity string, req entity.GenerationRequest) (*StreamSession, error) {
	prep, err := p.prepare(ctx, identity, req)
	if err != nil {
		return nil, err
	}
	// 身份与额度闸门优先，模式限制在模型调用前检查
	if mode := prep.mode(); mode.IsStructured() {
		return nil, p.fail(ctx, mode, apperrors.ErrInvalidParam.WithDetail("mode "+string(mode)+" does not support streaming"))
	}

	ts, err := p.invoker.Stream(ctx, prep.mode(), prep.instruction)
	if err != nil {
		return nil, p.fail(ctx, prep.mode(), err)
	}

	metrics.ActiveStreams.Inc()
	return &StreamSession{
		pipeline: p,
		prep:     prep,
		stream:   ts,
		ctx:      ctx,
	}, nil
}

// Mode 本次生成的模式
func (s *StreamSession) Mode() entity.Mode {
	return s.prep.mode()
}

// Next 返回下一个文本块；流结束且结算成功后返回 io.EOF，之后可通过 Result 取结果
func (s *StreamSession) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.result != nil {
		return "", io.EOF
	}

	chunk, err := s.stream.Next()
	if err == nil {
		s.buf.WriteString(chunk)
		return chunk, nil
	}
	s.Close()

	if !errors.Is(err, io.EOF) {
		s.err = s.pipeline.fail(s.ctx, s.Mode(), err)
		return "", s.err
	}

	// 结算不受调用方取消影响
	ctx := context.WithoutCancel(s.ctx)
	result := &entity.GenerationResult{Mode: s.Mode(), Text: strings.TrimSpace(s.buf.String())}
	if result.Text == "" {
		s.err = s.pipeline.fail(ctx, s.Mode(), s.pipeline.emptyCompletion())
		return "", s.err
	}
	if err := s.pipeline.settle(ctx, s.prep, result, true); err != nil {
		s.err = err
		return "", s.err
	}
	s.result = result
	return "", io.EOF
}

// Result 流读完后的结果，未完成时为 nil
func (s *StreamSession) Result() *entity.GenerationResult {
	return s.result
}

// Close 释放上游连接，可重复调用
func (s *StreamSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.stream.Close()
	metrics.ActiveStreams.Dec()
}
