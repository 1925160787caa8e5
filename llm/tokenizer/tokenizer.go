package tokenizer

import (
	"strings"
	"sync"
)

// Counter 统一的 token 计数接口，聊天 Agent 用它裁剪历史。
type Counter interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// Name 返回计数器名称.
	Name() string
}

var (
	modelCounters   = make(map[string]Counter)
	modelCountersMu sync.RWMutex
)

// Register 为模型名称注册计数器.
func Register(model string, c Counter) {
	modelCountersMu.Lock()
	defer modelCountersMu.Unlock()
	modelCounters[model] = c
}

// Lookup 返回为模型注册的计数器，支持前缀匹配（"gpt-4o" 匹配 "gpt-4o-mini"）。
// 没有登记时回退到估算器。
func Lookup(model string) Counter {
	modelCountersMu.RLock()
	defer modelCountersMu.RUnlock()

	if c, ok := modelCounters[model]; ok {
		return c
	}
	best := ""
	for prefix := range modelCounters {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return modelCounters[best]
	}
	return NewEstimator()
}

// Trim keeps the newest texts whose total token count fits budget.
// budget <= 0 disables trimming. The returned slice preserves order.
func Trim(c Counter, texts []string, budget int) ([]string, error) {
	if budget <= 0 || c == nil {
		return texts, nil
	}
	used := 0
	start := len(texts)
	for i := len(texts) - 1; i >= 0; i-- {
		n, err := c.CountTokens(texts[i])
		if err != nil {
			return nil, err
		}
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	return texts[start:], nil
}
