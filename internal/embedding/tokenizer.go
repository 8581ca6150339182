package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	clsTokenID   = 101
	sepTokenID   = 102
	vocabSize    = 30000
	firstTokenID = 1000
)

// Tokenizer produces BERT-style model inputs (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SkillTokenizer maps skill names and queries to hashed token ids. Latin words are
// lowercased; Han, Hiragana and Katakana runes become one token each, since Japanese
// skill names carry no spaces.
type SkillTokenizer struct{}

// Tokenize returns inputs padded to maxTokens with [CLS] first and [SEP] after the last token.
func (t *SkillTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1
	pos := 1
	for _, tok := range SplitTokens(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = tokenID(tok)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepTokenID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitTokens splits text into lowercased words, with each CJK rune as its own token.
// Punctuation separates words and is dropped.
func SplitTokens(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#':
			word.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}

// tokenID hashes tok into the vocabulary above the reserved special-token range.
func tokenID(tok string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tok))
	return int64(firstTokenID + h.Sum32()%(vocabSize-firstTokenID))
}
