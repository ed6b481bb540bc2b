package markov

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultBPEEncoding is the tiktoken encoding used when none is configured.
const DefaultBPEEncoding = "cl100k_base"

// BPETokenizer splits normalized text into byte-pair-encoded sub-word pieces
// using a tiktoken encoding. Pieces keep their leading space, so models built
// on them generate text that is rejoined without a separator.
type BPETokenizer struct {
	encoding *tiktoken.Tiktoken
	name     string
	words    *DefaultTokenizer
}

// NewBPETokenizer loads the named tiktoken encoding, e.g. "cl100k_base".
func NewBPETokenizer(encodingName string) (*BPETokenizer, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &BPETokenizer{
		encoding: encoding,
		name:     encodingName,
		words:    NewDefaultTokenizer(),
	}, nil
}

// Name returns the encoding name.
func (t *BPETokenizer) Name() string {
	return t.name
}

// Tokenize lowercases and strips punctuation like DefaultTokenizer, then
// splits the result into encoding pieces.
func (t *BPETokenizer) Tokenize(text string) []string {
	normalized := strings.Join(t.words.Tokenize(text), " ")
	if normalized == "" {
		return nil
	}
	ids := t.encoding.Encode(normalized, nil, nil)
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = t.encoding.Decode([]int{id})
	}
	return pieces
}

// Separator returns "" because pieces carry their own spacing.
func (t *BPETokenizer) Separator(_, _ string) string {
	return ""
}

// NewStream reads r to the end before returning pieces, since BPE merges
// can span line boundaries once whitespace is normalized.
func (t *BPETokenizer) NewStream(r io.Reader) StreamTokenizer {
	data, err := io.ReadAll(r)
	if err != nil {
		return &sliceStream{err: err}
	}
	return &sliceStream{tokens: t.Tokenize(string(data))}
}

type sliceStream struct {
	tokens []string
	err    error
}

func (s *sliceStream) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(s.tokens) == 0 {
		return "", io.EOF
	}
	token := s.tokens[0]
	s.tokens = s.tokens[1:]
	return token, nil
}
