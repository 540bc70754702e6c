package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// encoder returns the o200k_base codec used by the gpt-4o family, falling
// back to cl100k_base. It returns nil when neither is available.
func encoder() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.O200kBase)
		if err != nil {
			c, err = tokenizer.Get(tokenizer.Cl100kBase)
			if err != nil {
				return
			}
		}
		codec = c
	})
	return codec
}

// CountTokens returns the number of BPE tokens in text. Without a codec it
// estimates four characters per token.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	enc := encoder()
	if enc == nil {
		return (len([]rune(text)) + 3) / 4
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return (len([]rune(text)) + 3) / 4
	}
	return len(ids)
}

// CountTokens estimates the prompt size of p following the chat
// convention: 4 tokens of overhead per message and 3 to prime the reply.
func (p *Prompt) CountTokens() int {
	tokens := 3
	if p.SystemPrompt != "" {
		tokens += 4 + CountTokens(string(RoleSystem)) + CountTokens(p.SystemPrompt)
	}
	for _, m := range p.Messages {
		tokens += 4 + CountTokens(string(m.Role)) + CountTokens(m.Content)
	}
	return tokens
}
