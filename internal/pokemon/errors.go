package pokemon

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound the queried name does not exist in the catalog
	ErrNotFound = errors.New("not found")
	// ErrUpstream transport failure or a non-success catalog/generator response
	ErrUpstream = errors.New("upstream failure")
	// ErrGenerationParse the generated text holds no recoverable team payload
	ErrGenerationParse = errors.New("generation parse failure")
	// ErrInvalidInput caller supplied a missing or malformed argument
	ErrInvalidInput = errors.New("invalid input")
)

// GenerationParseError carries the raw generated text for diagnostics
type GenerationParseError struct {
	Raw string
}

func (e *GenerationParseError) Error() string {
	return "failed to parse JSON from generated response. Raw response: " + e.Raw
}

func (e *GenerationParseError) Unwrap() error {
	return ErrGenerationParse
}

// InvalidInputf builds an ErrInvalidInput-marked error
func InvalidInputf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidInput)
}

// NotFoundf builds an ErrNotFound-marked error
func NotFoundf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// Upstreamf wraps err as an ErrUpstream failure
func Upstreamf(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrUpstream)
}

// IsNotFound reports whether err is classified as ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUpstream reports whether err is classified as ErrUpstream
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsGenerationParse reports whether err is classified as ErrGenerationParse
func IsGenerationParse(err error) bool {
	return errors.Is(err, ErrGenerationParse)
}

// IsInvalidInput reports whether err is classified as ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
