package judgment

import (
	"sync"
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenizerOnce sync.Once
	tokenizer     atomic.Pointer[tiktoken.Tiktoken]
)

// WarmTokenizer загружает BPE-словарь для оценки токенов. Загрузка может идти по сети,
// поэтому вызывается в фоне при старте, а не на пути запроса.
func WarmTokenizer() {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			tokenizer.Store(enc)
		}
	})
}

// estimateTokens возвращает 0, пока словарь не загружен.
func estimateTokens(text string) int {
	enc := tokenizer.Load()
	if enc == nil || text == "" {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}
