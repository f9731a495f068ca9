package dto

import (
	"strings"

	"solidwriter-api/internal/domain/entity"
)

// GenerateRequest 生成请求
// type 为模式判别字段，mode 为其别名；两者都缺省或无法识别时按 freeform 处理
type GenerateRequest struct {
	Type      string   `json:"type"`
	Mode      string   `json:"mode"`
	Topic     string   `json:"topic"`
	Keywords  string   `json:"keywords"`
	Tone      string   `json:"tone"`
	Title     string   `json:"title"`
	Outline   []string `json:"outline"`
	Platform  string   `json:"platform"`
	Framework string   `json:"framework"`
	Prompt    string   `json:"prompt"`

	DocumentID string `json:"documentId"`
	// DocumentIDAlt 兼容 snake_case 写法
	DocumentIDAlt string `json:"document_id"`
}

// ResolveMode 解析模式
func (r *GenerateRequest) ResolveMode() entity.Mode {
	if t := strings.TrimSpace(r.Type); t != "" {
		return entity.ParseMode(t)
	}
	return entity.ParseMode(r.Mode)
}

// ToEntity 转为领域层的模式变体，每个变体只携带自己需要的字段
func (r *GenerateRequest) ToEntity() entity.GenerationRequest {
	docID := strings.TrimSpace(r.DocumentID)
	if docID == "" {
		docID = strings.TrimSpace(r.DocumentIDAlt)
	}
	common := entity.RequestCommon{Tone: r.Tone, DocumentID: docID}

	switch r.ResolveMode() {
	case entity.ModeTitles:
		return entity.TitlesRequest{RequestCommon: common, Topic: r.Topic, Keywords: r.Keywords}
	case entity.ModeOutline:
		return entity.OutlineRequest{RequestCommon: common, Title: r.Title, Topic: r.Topic, Keywords: r.Keywords}
	case entity.ModeArticle:
		return entity.ArticleRequest{RequestCommon: common, Title: r.Title, Keywords: r.Keywords, Outline: r.Outline}
	case entity.ModeSocial:
		return entity.SocialRequest{RequestCommon: common, Platform: r.Platform, Topic: r.Topic, Keywords: r.Keywords}
	case entity.ModeAds:
		return entity.AdsRequest{RequestCommon: common, Platform: r.Platform, Topic: r.Topic, Keywords: r.Keywords}
	case entity.ModeCopywriting:
		return entity.CopywritingRequest{RequestCommon: common, Framework: r.Framework, Topic: r.Topic, Keywords: r.Keywords}
	default:
		return entity.FreeformRequest{RequestCommon: common, Prompt: r.Prompt}
	}
}

// GenerateResponse 生成结果
// result 与 content 相同；结构化模式下两者为数组的 JSON 文本，items 为解析后的数组
type GenerateResponse struct {
	Content       string      `json:"content"`
	Result        string      `json:"result"`
	UnitsConsumed int64       `json:"units_consumed"`
	Mode          entity.Mode `json:"mode"`
	Items         []string    `json:"items,omitempty"`
}

// ToGenerateResponse 转换生成结果
func ToGenerateResponse(res *entity.GenerationResult) *GenerateResponse {
	return &GenerateResponse{
		Content:       res.Text,
		Result:        res.Text,
		UnitsConsumed: res.UnitsConsumed,
		Mode:          res.Mode,
		Items:         res.Items,
	}
}

// UsageResponse 额度读数
type UsageResponse struct {
	ConsumedUnits int64           `json:"consumed_units"`
	UnitLimit     int64           `json:"unit_limit"`
	Remaining     int64           `json:"remaining"`
	Plan          entity.PlanTier `json:"plan"`
}

// UsageEventResponse 生成流水
type UsageEventResponse struct {
	ID         string      `json:"id"`
	DocumentID string      `json:"document_id,omitempty"`
	Mode       entity.Mode `json:"mode"`
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	Units      int64       `json:"units"`
	Streamed   bool        `json:"streamed"`
	DurationMs int64       `json:"duration_ms"`
	CreatedAt  string      `json:"created_at"`
}

// ToUsageEventResponses 转换流水列表
func ToUsageEventResponses(events []*entity.GenerationUsageEvent) []*UsageEventResponse {
	out := make([]*UsageEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, &UsageEventResponse{
			ID:         e.ID,
			DocumentID: e.DocumentID,
			Mode:       e.Mode,
			Provider:   e.Provider,
			Model:      e.Model,
			Units:      e.Units,
			Streamed:   e.Streamed,
			DurationMs: e.DurationMs,
			CreatedAt:  e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}
