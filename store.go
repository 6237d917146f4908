package configlib

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists configurations of type T. A store owns an immutable
// settings value, a converter registry, and the cached descriptor for T; it
// is safe for concurrent use, though concurrent calls on the same file are
// not coordinated.
type Store[T any] struct {
	settings *Settings
	engine   *engine
	td       *TypeDescriptor
	defaults func() T
}

// NewStore builds a store for the configuration type T.
func NewStore[T any](opts ...Option) (*Store[T], error) {
	settings, err := newSettings(opts...)
	if err != nil {
		return nil, err
	}
	registry, err := NewRegistry(settings.registrations...)
	if err != nil {
		return nil, err
	}
	td, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	return &Store[T]{
		settings: settings,
		engine:   &engine{registry: registry, settings: settings},
		td:       td,
	}, nil
}

// WithDefaults sets the factory producing the declared default instance used
// by Load and Update for members absent from the document. Without it the
// zero value of T is the default. Returns the store for chaining.
func (s *Store[T]) WithDefaults(fn func() T) *Store[T] {
	s.defaults = fn
	return s
}

func (s *Store[T]) defaultInstance() T {
	if s.defaults != nil {
		return s.defaults()
	}
	var zero T
	return zero
}

// Save serializes cfg and writes it to path, creating parent directories if
// the settings allow it. Nothing is written unless the whole configuration
// serializes successfully.
func (s *Store[T]) Save(cfg T, path string) error {
	doc, err := s.engine.serialize(s.td, &cfg)
	if err != nil {
		return err
	}
	data, err := s.settings.codec.Emit(doc, s.settings)
	if err != nil {
		return err
	}
	if s.settings.CreateParentDirectories {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads and parses the file at path and deserializes it into a fresh
// default instance. Keys absent from the document leave their members at the
// declared defaults; unknown keys are ignored. Fails with SyntaxError,
// EmptyDocumentError, or NotAMappingError when the file does not hold a
// configuration document, and with the unmodified I/O error when the file
// cannot be read.
func (s *Store[T]) Load(path string) (T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, err
	}
	return s.loadBytes(data, path)
}

func (s *Store[T]) loadBytes(data []byte, path string) (T, error) {
	var zero T
	tree, err := s.settings.codec.Parse(data)
	if err != nil {
		return zero, &SyntaxError{Path: path, Err: err}
	}
	if tree == nil {
		return zero, &EmptyDocumentError{Path: path}
	}
	doc, ok := tree.(Doc)
	if !ok {
		return zero, &NotAMappingError{Path: path, Kind: kindName(tree)}
	}
	inst, err := s.engine.deserialize(s.td, doc, s.defaultInstance())
	if err != nil {
		return zero, err
	}
	return inst.(T), nil
}

// Update reconciles the file at path with the declared shape of T and
// returns the resulting instance. If the file does not exist, a fresh
// default instance is written (create). Otherwise the file is loaded and
// rewritten canonically (merge): the result contains exactly the declared
// keys in declared order, keys no longer declared are dropped, and newly
// declared keys appear with their defaults, while values present for
// declared keys are kept.
func (s *Store[T]) Update(path string) (T, error) {
	var zero T
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := s.defaultInstance()
		if err := s.Save(cfg, path); err != nil {
			return zero, err
		}
		return cfg, nil
	} else if err != nil {
		return zero, err
	}
	cfg, err := s.Load(path)
	if err != nil {
		return zero, err
	}
	if err := s.Save(cfg, path); err != nil {
		return zero, err
	}
	return cfg, nil
}
