package mapping

import "context"

// ChecksumMode controls how checksum failures surface during parsing.
type ChecksumMode int

const (
	// ChecksumEnforce fails the parse on a missing or wrong sha1sum.
	ChecksumEnforce ChecksumMode = iota
	// ChecksumWarn reports the problem through the parser's logger only.
	ChecksumWarn
	// ChecksumIgnore skips verification entirely, for in-memory copies and
	// derivation intermediates.
	ChecksumIgnore
)

// ParserOptions configures parsing behaviour.
type ParserOptions struct {
	ChecksumMode ChecksumMode
}

// ParserOption mutates ParserOptions prior to construction.
type ParserOption func(*ParserOptions)

// WithChecksumMode selects how sha1sum problems are reported.
func WithChecksumMode(mode ChecksumMode) ParserOption {
	return func(opts *ParserOptions) {
		opts.ChecksumMode = mode
	}
}

// NewParserOptions applies a set of ParserOption values and returns the
// resulting configuration.
func NewParserOptions(options ...ParserOption) ParserOptions {
	cfg := ParserOptions{}
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}

// Parser converts a Document into the Mapping matching its extension.
// Implementations live under internal/mapping but satisfy this contract.
type Parser interface {
	Parse(ctx context.Context, doc Document) (Mapping, error)
}
