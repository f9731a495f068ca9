package entity

import (
	"errors"
	"strings"
)

// Mode 生成模式
type Mode string

const (
	ModeTitles      Mode = "titles"
	ModeOutline     Mode = "outline"
	ModeArticle     Mode = "article"
	ModeSocial      Mode = "social"
	ModeAds         Mode = "ads"
	ModeCopywriting Mode = "copywriting"
	ModeFreeform    Mode = "freeform"
)

// DefaultTone 未指定语气时使用
const DefaultTone = "Professional"

// ParseMode 解析模式，未知或为空时回落到 freeform
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTitles, ModeOutline, ModeArticle, ModeSocial, ModeAds, ModeCopywriting:
		return m
	default:
		return ModeFreeform
	}
}

// IsFinalContent 成文模式：按字数计费并写回文档
func (m Mode) IsFinalContent() bool {
	switch m {
	case ModeArticle, ModeSocial, ModeAds, ModeCopywriting:
		return true
	}
	return false
}

// IsStructured 结构化模式：输出必须解析为字符串数组
func (m Mode) IsStructured() bool {
	return m == ModeTitles || m == ModeOutline
}

// ErrMissingField 必填字段缺失
var ErrMissingField = errors.New("required field missing")

// RequestCommon 各模式共享的字段
type RequestCommon struct {
	Tone       string
	DocumentID string
}

// Common 返回共享字段
func (c RequestCommon) Common() RequestCommon {
	return c
}

// ToneOrDefault 语气，缺省为 Professional
func (c RequestCommon) ToneOrDefault() string {
	if t := strings.TrimSpace(c.Tone); t != "" {
		return t
	}
	return DefaultTone
}

// GenerationRequest 生成请求，仅本包内的变体可以实现
type GenerationRequest interface {
	Mode() Mode
	Common() RequestCommon
	Validate() error
	generationRequest()
}

// TitlesRequest 生成候选标题
type TitlesRequest struct {
	RequestCommon
	Topic    string
	Keywords string
}

// OutlineRequest 生成大纲
type OutlineRequest struct {
	RequestCommon
	Title    string
	Topic    string
	Keywords string
}

// ArticleRequest 按大纲生成长文
type ArticleRequest struct {
	RequestCommon
	Title    string
	Keywords string
	Outline  []string
}

// SocialRequest 社交平台帖子
type SocialRequest struct {
	RequestCommon
	Platform string
	Topic    string
	Keywords string
}

// AdsRequest 广告文案
type AdsRequest struct {
	RequestCommon
	Platform string
	Topic    string
	Keywords string
}

// CopywritingRequest 基于文案框架的营销文案
type CopywritingRequest struct {
	RequestCommon
	Framework string
	Topic     string
	Keywords  string
}

// FreeformRequest 自由指令
type FreeformRequest struct {
	RequestCommon
	Prompt string
}

func (TitlesRequest) Mode() Mode      { return ModeTitles }
func (OutlineRequest) Mode() Mode     { return ModeOutline }
func (ArticleRequest) Mode() Mode     { return ModeArticle }
func (SocialRequest) Mode() Mode      { return ModeSocial }
func (AdsRequest) Mode() Mode         { return ModeAds }
func (CopywritingRequest) Mode() Mode { return ModeCopywriting }
func (FreeformRequest) Mode() Mode    { return ModeFreeform }

func (TitlesRequest) generationRequest()      {}
func (OutlineRequest) generationRequest()     {}
func (ArticleRequest) generationRequest()     {}
func (SocialRequest) generationRequest()      {}
func (AdsRequest) generationRequest()         {}
func (CopywritingRequest) generationRequest() {}
func (FreeformRequest) generationRequest()    {}

func (r TitlesRequest) Validate() error {
	return requireField("topic", r.Topic)
}

func (r OutlineRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Topic) == "" {
		return missing("title")
	}
	return nil
}

func (r ArticleRequest) Validate() error {
	return requireField("title", r.Title)
}

func (r SocialRequest) Validate() error {
	if err := requireField("platform", r.Platform); err != nil {
		return err
	}
	return requireField("topic", r.Topic)
}

func (r AdsRequest) Validate() error {
	if err := requireField("platform", r.Platform); err != nil {
		return err
	}
	return requireField("topic", r.Topic)
}

func (r CopywritingRequest) Validate() error {
	if err := requireField("framework", r.Framework); err != nil {
		return err
	}
	return requireField("topic", r.Topic)
}

func (r FreeformRequest) Validate() error {
	return requireField("prompt", r.Prompt)
}

func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return missing(field)
	}
	return nil
}

func missing(field string) error {
	return &FieldError{Field: field}
}

// FieldError 指明缺失的字段
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return e.Field + " required"
}

func (e *FieldError) Unwrap() error {
	return ErrMissingField
}

// GenerationResult 一次生成的结果
// Items 仅结构化模式非空，此时 Text 为 Items 的 JSON 编码
type GenerationResult struct {
	Mode          Mode
	Text          string
	Items         []string
	UnitsConsumed int64
}
