package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tiktoken counts tokens with the OpenAI BPE encodings.
// The encoding is loaded lazily on first use (it may download ranks).
type Tiktoken struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// modelEncodings 模型名称到 tiktoken 编码
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4":         "cl100k_base",
	"gpt-35-turbo":  "cl100k_base", // Azure deployment naming
	"gpt-3.5-turbo": "cl100k_base",
}

// EncodingFor returns the encoding name for model, defaulting to cl100k_base.
func EncodingFor(model string) string {
	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "cl100k_base"
	}
	return modelEncodings[best]
}

// NewTiktoken creates a counter for model.
func NewTiktoken(model string) *Tiktoken {
	return &Tiktoken{encoding: EncodingFor(model)}
}

func (t *Tiktoken) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *Tiktoken) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// RegisterOpenAI 为已知的 OpenAI 模型登记 tiktoken 计数器。
func RegisterOpenAI() {
	for model := range modelEncodings {
		Register(model, NewTiktoken(model))
	}
}
