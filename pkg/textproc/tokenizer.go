// Package textproc turns raw Korean answer text into the word tokens every
// analysis stage consumes.
package textproc

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinTokenLength is the minimum rune length a token must have to survive.
const DefaultMinTokenLength = 2

// Tokenizer splits text into candidate word tokens.
type Tokenizer interface {
	Tokenize(text string, minTokenLength int) []string
}

// StopwordFilter drops tokens that carry no meaning on their own.
type StopwordFilter interface {
	FilterStopwords(tokens []string) []string
}

// HangulTokenizer keeps Hangul words only. Everything that is not a Hangul
// syllable, Hangul compatibility jamo or whitespace is removed before splitting.
type HangulTokenizer struct{}

// NewHangulTokenizer creates a HangulTokenizer
func NewHangulTokenizer() *HangulTokenizer {
	return &HangulTokenizer{}
}

// Tokenize implements Tokenizer
func (HangulTokenizer) Tokenize(text string, minTokenLength int) []string {
	if minTokenLength < 1 {
		minTokenLength = 1
	}

	// Compose conjoining jamo into syllables; the stopword list is written in syllables.
	text = norm.NFC.String(text)

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case isHangul(r):
			return r
		default:
			return -1
		}
	}, text)

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isHangul(r rune) bool {
	return (r >= 'ㄱ' && r <= 'ㅣ') || (r >= '가' && r <= '힣')
}

// Pipeline runs tokenization and stopword removal, in that order.
type Pipeline struct {
	Tokenizer      Tokenizer
	Filter         StopwordFilter
	MinTokenLength int
}

// NewPipeline returns the default Korean pipeline.
func NewPipeline(minTokenLength int) *Pipeline {
	if minTokenLength < 1 {
		minTokenLength = DefaultMinTokenLength
	}
	return &Pipeline{
		Tokenizer:      NewHangulTokenizer(),
		Filter:         NewStopwordFilter(DefaultStopwords),
		MinTokenLength: minTokenLength,
	}
}

// Tokens returns the normalized tokens of text. It never returns nil.
func (p *Pipeline) Tokens(text string) []string {
	tokens := p.Tokenizer.Tokenize(text, p.MinTokenLength)
	if p.Filter != nil {
		tokens = p.Filter.FilterStopwords(tokens)
	}
	if tokens == nil {
		return []string{}
	}
	return tokens
}
