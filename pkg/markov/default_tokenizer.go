package markov

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// maxLineSize bounds a single input line; corpora are often one paragraph per line.
const maxLineSize = 1 << 20

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// It lowercases text and splits it into runs of letters and digits, so every
// other character (punctuation, symbols, whitespace) acts as a word boundary.
// Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	separator  string
	splitRegex *regexp.Regexp
	keepCase   bool
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining tokens during generation.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithSplitRegex sets the regex string matching a single token.
// Default: `[\p{L}\p{N}]+`
func WithSplitRegex(splitRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.splitRegex = regexp.MustCompile(splitRegex)
	}
}

// WithCase controls whether the original letter case is kept.
// Default: false (tokens are lowercased)
func WithCase(keep bool) Option {
	return func(t *DefaultTokenizer) {
		t.keepCase = keep
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		// Runs of letters or digits; apostrophes and underscores split words.
		splitRegex: regexp.MustCompile(`[\p{L}\p{N}]+`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Tokenize splits a whole string. Empty input yields no tokens.
func (t *DefaultTokenizer) Tokenize(text string) []string {
	if !t.keepCase {
		text = strings.ToLower(text)
	}
	return t.splitRegex.FindAllString(text, -1)
}

// Separator Returns the configured separator string.
func (t *DefaultTokenizer) Separator(_, _ string) string {
	return t.separator
}

// NewStream Returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &DefaultStreamTokenizer{
		scanner:   scanner,
		buffer:    []string{},
		tokenizer: t,
	}
}

// DefaultStreamTokenizer is the default implementation of the StreamTokenizer interface.
// It uses a bufio.Scanner to read a stream line by line.
type DefaultStreamTokenizer struct {
	scanner   *bufio.Scanner
	buffer    []string
	tokenizer *DefaultTokenizer
}

// Next returns the next token from the stream and a nil error on success.
// When the stream is exhausted, it returns an empty token and io.EOF.
// Any other error indicates a problem reading from the underlying stream.
func (s *DefaultStreamTokenizer) Next() (string, error) {
	for len(s.buffer) == 0 { // Loop until we have tokens
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		s.buffer = s.tokenizer.Tokenize(s.scanner.Text())
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]
	return word, nil
}
