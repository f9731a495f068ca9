package eino

import (
	"context"
	"strings"
)

const unknownLabel = "unknown"

type callLabelsKey struct{}

// callLabels 模型调用的指标标签
type callLabels struct {
	workflow string
	provider string
}

// WithWorkflowProvider 标记本次模型调用所属的工作流与 provider，供指标打标签
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return context.WithValue(ctx, callLabelsKey{}, callLabels{
		workflow: labelOrUnknown(workflow),
		provider: labelOrUnknown(provider),
	})
}

func labelsFromContext(ctx context.Context) callLabels {
	if ctx != nil {
		if l, ok := ctx.Value(callLabelsKey{}).(callLabels); ok {
			return l
		}
	}
	return callLabels{workflow: unknownLabel, provider: unknownLabel}
}

func labelOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownLabel
	}
	return s
}
