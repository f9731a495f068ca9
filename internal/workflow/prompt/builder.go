package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"solidwriter-api/internal/domain/entity"
)

// Instruction 一次生成的系统指令与用户指令
type Instruction struct {
	PromptID PromptID
	Messages []*schema.Message
}

// System 系统指令文本
func (i *Instruction) System() string {
	return i.content(schema.System)
}

// User 用户指令文本
func (i *Instruction) User() string {
	return i.content(schema.User)
}

func (i *Instruction) content(role schema.RoleType) string {
	for _, m := range i.Messages {
		if m != nil && m.Role == role {
			return m.Content
		}
	}
	return ""
}

// Builder 按模式把请求映射为指令对
type Builder struct {
	registry *Registry
}

// NewBuilder 创建指令构造器
func NewBuilder(registry *Registry) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Builder{registry: registry}
}

// Build 渲染请求对应的模板。无法识别的请求按 freeform 处理
func (b *Builder) Build(ctx context.Context, req entity.GenerationRequest) (*Instruction, error) {
	id, vars := Resolve(req)

	tpl, err := b.registry.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to format prompt %s: %w", id, err)
	}
	return &Instruction{PromptID: id, Messages: msgs}, nil
}

// Resolve 选择模板并组装变量
func Resolve(req entity.GenerationRequest) (PromptID, map[string]any) {
	switch r := req.(type) {
	case entity.TitlesRequest:
		return PromptTitlesV1, map[string]any{
			"tone":     r.ToneOrDefault(),
			"topic":    clean(r.Topic),
			"keywords": orNone(r.Keywords),
		}
	case entity.OutlineRequest:
		return PromptOutlineV1, map[string]any{
			"tone":     r.ToneOrDefault(),
			"title":    orNone(r.Title),
			"topic":    orNone(r.Topic),
			"keywords": orNone(r.Keywords),
		}
	case entity.ArticleRequest:
		return PromptArticleV1, map[string]any{
			"tone":     r.ToneOrDefault(),
			"title":    clean(r.Title),
			"keywords": orNone(r.Keywords),
			"outline":  outlineBlock(r.Outline),
		}
	case entity.SocialRequest:
		return PromptSocialV1, map[string]any{
			"tone":     r.ToneOrDefault(),
			"platform": clean(r.Platform),
			"topic":    clean(r.Topic),
			"keywords": orNone(r.Keywords),
		}
	case entity.AdsRequest:
		return PromptAdsV1, map[string]any{
			"tone":     r.ToneOrDefault(),
			"platform": clean(r.Platform),
			"topic":    clean(r.Topic),
			"keywords": orNone(r.Keywords),
		}
	case entity.CopywritingRequest:
		return PromptCopywritingV1, map[string]any{
			"tone":      r.ToneOrDefault(),
			"framework": clean(r.Framework),
			"topic":     clean(r.Topic),
			"keywords":  orNone(r.Keywords),
		}
	case entity.FreeformRequest:
		return PromptFreeformV1, freeformVars(r.Common(), r.Prompt)
	default:
		var common entity.RequestCommon
		if req != nil {
			common = req.Common()
		}
		return PromptFreeformV1, freeformVars(common, "")
	}
}

func freeformVars(common entity.RequestCommon, prompt string) map[string]any {
	return map[string]any{
		"tone":   common.ToneOrDefault(),
		"prompt": strings.TrimSpace(prompt),
	}
}

// outlineBlock 大纲逐行编号；为空时交给模型自行组织
func outlineBlock(outline []string) string {
	var sb strings.Builder
	n := 0
	for _, h := range outline {
		h = clean(h)
		if h == "" {
			continue
		}
		n++
		if n > 1 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", n, h)
	}
	if n == 0 {
		return "(no outline provided, choose suitable sections)"
	}
	return sb.String()
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func orNone(s string) string {
	if s = clean(s); s != "" {
		return s
	}
	return "none"
}
