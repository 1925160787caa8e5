package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/agentroom/types"
	"github.com/go-playground/validator/v10"
)

// Kind Agent 类型标签
type Kind string

const (
	KindChat     Kind = "agent.chat"
	KindZeroshot Kind = "agent.zeroshot"
)

// Spec 描述一个可加入群组的 Agent。Alias 在整个目录内大小写不敏感唯一。
type Spec struct {
	Alias       string `json:"alias" yaml:"alias" validate:"required,max=64"`
	Description string `json:"description" yaml:"description" validate:"max=1024"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar"`
	Kind        Kind   `json:"kind" yaml:"kind" validate:"required,oneof=agent.chat agent.zeroshot"`

	// LLM 引用 config 中的 provider 名称
	LLM         string   `json:"llm" yaml:"llm" validate:"required"`
	Model       string   `json:"model,omitempty" yaml:"model"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens" validate:"gte=0"`
	Temperature float32  `json:"temperature,omitempty" yaml:"temperature" validate:"gte=0,lte=2"`
	TopP        float32  `json:"top_p,omitempty" yaml:"top_p" validate:"gte=0,lte=1"`
	Stop        []string `json:"stop,omitempty" yaml:"stop"`

	PrefixPrompt     string `json:"prefix_prompt,omitempty" yaml:"prefix_prompt"`
	SuffixPrompt     string `json:"suffix_prompt,omitempty" yaml:"suffix_prompt"`
	UseMarkdown      bool   `json:"use_markdown,omitempty" yaml:"use_markdown"`
	IncludeHistory   bool   `json:"include_history,omitempty" yaml:"include_history"`
	IncludeName      bool   `json:"include_name,omitempty" yaml:"include_name"`
	UseChatML        bool   `json:"use_chatml,omitempty" yaml:"use_chatml"`
	MaxHistoryTokens int    `json:"max_history_tokens,omitempty" yaml:"max_history_tokens" validate:"gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func specValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and rejects the reserved user alias.
func (s Spec) Validate() error {
	if err := specValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if strings.TrimSpace(s.Alias) != s.Alias {
		return fmt.Errorf("%w: alias %q has surrounding whitespace", ErrInvalidSpec, s.Alias)
	}
	if types.SameAlias(s.Alias, types.UserAlias) {
		return fmt.Errorf("%w: %q", ErrReservedAlias, s.Alias)
	}
	return nil
}

// Participant 返回 Spec 对应的参与者视图
func (s Spec) Participant() types.Participant {
	return types.Participant{
		Alias:       s.Alias,
		Description: s.Description,
		Avatar:      s.Avatar,
		Kind:        string(s.Kind),
	}
}
