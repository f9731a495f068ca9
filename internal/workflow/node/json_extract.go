package node

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedOutput 模型输出中无法提取出字符串数组
var ErrMalformedOutput = errors.New("malformed array output")

const codeFence = "```"

// StripCodeFences 去掉 ``` 与 ```json 这类围栏标记，保留其中内容
func StripCodeFences(s string) string {
	var sb strings.Builder
	rest := s
	for {
		i := strings.Index(rest, codeFence)
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:i])
		rest = rest[i+len(codeFence):]
		// 语言标记，例如 json
		j := 0
		for j < len(rest) && isTagByte(rest[j]) {
			j++
		}
		rest = rest[j:]
	}
	return sb.String()
}

func isTagByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_'
}

// ExtractJSONArray 截取第一个 [ 到最后一个 ] 之间的片段，容忍模型在数组前后夹杂的说明文字
func ExtractJSONArray(s string) (string, bool) {
	raw := StripCodeFences(s)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// NormalizeArray 将结构化模式的原始输出解析为字符串数组
// 找不到方括号、解析失败或数组为空时返回 ErrMalformedOutput
func NormalizeArray(raw string) ([]string, error) {
	slice, ok := ExtractJSONArray(raw)
	if !ok {
		return nil, ErrMalformedOutput
	}

	var items []string
	if err := json.Unmarshal([]byte(slice), &items); err != nil {
		return nil, errors.Join(ErrMalformedOutput, err)
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, ErrMalformedOutput
	}
	return out, nil
}

// EncodeArray 数组的规范文本形式，NormalizeArray 对其是幂等的
func EncodeArray(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
