package configlib

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Settings carries the options of one store. A Settings value is built once
// by NewStore and read-only afterwards.
type Settings struct {
	// Header and Footer are rendered as comment blocks before and after the
	// document body. Empty means none.
	Header string
	Footer string

	// OutputNulls controls whether null members appear as explicit "key:
	// null" entries. When false the key is fully absent from the output.
	OutputNulls bool

	// InputNulls controls whether an explicit null in the document sets the
	// member to null. When false a present-null key leaves the default.
	InputNulls bool

	// CreateParentDirectories makes Save and Update create missing parent
	// directories of the target file. On by default; when off, a missing
	// parent surfaces the underlying I/O error unmodified.
	CreateParentDirectories bool

	fieldNames    func(string) string
	registrations []Registration
	codec         Codec
}

// Option configures a store's settings.
type Option func(*Settings) error

func newSettings(opts ...Option) (*Settings, error) {
	s := &Settings{
		CreateParentDirectories: true,
		fieldNames:              LowerCamelNames,
		codec:                   YAMLCodec{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithHeader sets the header comment block. Each line is rendered prefixed
// with "# ", followed by a blank line before the document body.
func WithHeader(header string) Option {
	return func(s *Settings) error {
		s.Header = header
		return nil
	}
}

// WithFooter sets the footer comment block, rendered after a blank line
// following the document body.
func WithFooter(footer string) Option {
	return func(s *Settings) error {
		s.Footer = footer
		return nil
	}
}

// WithOutputNulls controls whether null members are written as explicit
// nulls. Off by default.
func WithOutputNulls(enabled bool) Option {
	return func(s *Settings) error {
		s.OutputNulls = enabled
		return nil
	}
}

// WithInputNulls controls whether explicit nulls in a document overwrite
// member defaults. Off by default.
func WithInputNulls(enabled bool) Option {
	return func(s *Settings) error {
		s.InputNulls = enabled
		return nil
	}
}

// WithCreateParentDirectories controls whether Save and Update create
// missing parent directories. On by default.
func WithCreateParentDirectories(enabled bool) Option {
	return func(s *Settings) error {
		s.CreateParentDirectories = enabled
		return nil
	}
}

// WithFieldNames sets the field naming policy: the function mapping a
// declared field name to its document key. Both serialization and
// deserialization go through the same policy, so documents written under a
// policy load correctly back through it. An explicit conf tag on a field
// bypasses the policy.
func WithFieldNames(fn func(string) string) Option {
	return func(s *Settings) error {
		if fn == nil {
			return fmt.Errorf("field naming policy must not be nil")
		}
		s.fieldNames = fn
		return nil
	}
}

// WithConverters adds converter registrations to the store's registry.
// Registered converters take precedence over the built-ins.
func WithConverters(regs ...Registration) Option {
	return func(s *Settings) error {
		s.registrations = append(s.registrations, regs...)
		return nil
	}
}

// WithCodec selects the text codec. The default is YAMLCodec.
func WithCodec(c Codec) Option {
	return func(s *Settings) error {
		if c == nil {
			return fmt.Errorf("codec must not be nil")
		}
		s.codec = c
		return nil
	}
}

// LowerCamelNames is the default naming policy: it lower-cases the first
// rune of the field name (Host -> host, MaxRetries -> maxRetries).
func LowerCamelNames(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

// IdentityNames maps field names to document keys unchanged.
func IdentityNames(name string) string {
	return name
}
