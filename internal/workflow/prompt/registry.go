package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// PromptID 模板标识，对应 templates/<id>.system.txt 与 templates/<id>.user.txt
type PromptID string

const (
	PromptTitlesV1      PromptID = "titles_v1"
	PromptOutlineV1     PromptID = "outline_v1"
	PromptArticleV1     PromptID = "article_v1"
	PromptSocialV1      PromptID = "social_v1"
	PromptAdsV1         PromptID = "ads_v1"
	PromptCopywritingV1 PromptID = "copywriting_v1"
	PromptFreeformV1    PromptID = "freeform_v1"
)

var knownPrompts = []PromptID{
	PromptTitlesV1, PromptOutlineV1, PromptArticleV1, PromptSocialV1,
	PromptAdsV1, PromptCopywritingV1, PromptFreeformV1,
}

// Registry 首次使用时一次性解析全部内嵌模板，之后只读
type Registry struct {
	once      sync.Once
	templates map[PromptID]einoprompt.ChatTemplate
	loadErr   error
}

func NewRegistry() *Registry {
	return &Registry{}
}

// ChatTemplate 按 ID 取模板
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}
	r.once.Do(r.load)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return tpl, nil
}

func (r *Registry) load() {
	r.templates = make(map[PromptID]einoprompt.ChatTemplate, len(knownPrompts))
	for _, id := range knownPrompts {
		system, err := readEmbeddedText("templates/" + string(id) + ".system.txt")
		if err != nil {
			r.loadErr = fmt.Errorf("load prompt %s: %w", id, err)
			return
		}
		user, err := readEmbeddedText("templates/" + string(id) + ".user.txt")
		if err != nil {
			r.loadErr = fmt.Errorf("load prompt %s: %w", id, err)
			return
		}
		r.templates[id] = einoprompt.FromMessages(schema.FString,
			schema.SystemMessage(system),
			schema.UserMessage(user),
		)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
