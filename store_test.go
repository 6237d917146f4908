package configlib

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type headerConfig struct {
	S string
	I *int `comment:"A comment"`
}

func TestStore_Save(t *testing.T) {
	t.Run("renders header, footer, comments and nulls", func(t *testing.T) {
		store, err := NewStore[headerConfig](
			WithHeader("The\nHeader"),
			WithFooter("The\nFooter"),
			WithOutputNulls(true),
			WithFieldNames(strings.ToUpper),
		)
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "config.yml")
		err = store.Save(headerConfig{S: "S1"}, path)
		require.NoError(t, err)

		expected := "# The\n# Header\n\nS: S1\n# A comment\nI: null\n\n# The\n# Footer\n"
		require.Equal(t, expected, readFile(t, path))
	})

	t.Run("omits null members when output nulls is off", func(t *testing.T) {
		store, err := NewStore[headerConfig]()
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "config.yml")
		err = store.Save(headerConfig{S: "S1"}, path)
		require.NoError(t, err)

		require.Equal(t, "s: S1\n", readFile(t, path))
	})

	t.Run("creates parent directories by default", func(t *testing.T) {
		store, err := NewStore[headerConfig]()
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "a", "b", "c.yml")
		err = store.Save(headerConfig{S: "S1"}, path)
		require.NoError(t, err)
		require.FileExists(t, path)
	})

	t.Run("missing parent directory surfaces the I/O error unmodified", func(t *testing.T) {
		store, err := NewStore[headerConfig](WithCreateParentDirectories(false))
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "a", "b", "c.yml")
		err = store.Save(headerConfig{S: "S1"}, path)
		require.Error(t, err)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("invalid custom serializer output fails before writing", func(t *testing.T) {
		type point struct{ X, Y int }
		type pointConfig struct {
			Point point
		}
		identity := NewConverter(
			func(p point) (any, error) { return p, nil },
			func(v any) (point, error) { return v.(point), nil },
		)
		store, err := NewStore[pointConfig](WithConverters(identity))
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "config.yml")
		err = store.Save(pointConfig{Point: point{1, 2}}, path)

		var outErr *SerializerOutputError
		require.ErrorAs(t, err, &outErr)
		require.NoFileExists(t, path)
	})
}

type loadConfig struct {
	S string
	T string
	I *int
}

func TestStore_Load(t *testing.T) {
	newLoadStore := func(t *testing.T, opts ...Option) *Store[loadConfig] {
		t.Helper()
		one := 1
		store, err := NewStore[loadConfig](opts...)
		require.NoError(t, err)
		return store.WithDefaults(func() loadConfig {
			return loadConfig{S: "S1", T: "T1", I: &one}
		})
	}

	t.Run("partial document keeps defaults for absent keys", func(t *testing.T) {
		store := newLoadStore(t, WithInputNulls(true), WithFieldNames(strings.ToUpper))

		path := writeTempFile(t, "# The\n# Header\n\nS: S2\nt: T2\nI: null\n\n# The\n# Footer\n")
		cfg, err := store.Load(path)
		require.NoError(t, err)

		require.Equal(t, "S2", cfg.S)
		require.Equal(t, "T1", cfg.T, "lowercase 't' is an unknown key under the uppercase policy")
		require.Nil(t, cfg.I)
	})

	t.Run("present null without input nulls keeps the default", func(t *testing.T) {
		store := newLoadStore(t)

		path := writeTempFile(t, "i: null\n")
		cfg, err := store.Load(path)
		require.NoError(t, err)
		require.NotNil(t, cfg.I)
		require.Equal(t, 1, *cfg.I)
	})

	t.Run("invalid yaml fails with SyntaxError naming the path", func(t *testing.T) {
		store := newLoadStore(t)

		path := writeTempFile(t, " - - - - - a\n   a\n")
		_, err := store.Load(path)

		var synErr *SyntaxError
		require.ErrorAs(t, err, &synErr)
		require.Equal(t, path, synErr.Path)
	})

	t.Run("self-referential alias fails with SyntaxError", func(t *testing.T) {
		store := newLoadStore(t)

		path := writeTempFile(t, "a: &x\n  b: *x\n")
		_, err := store.Load(path)

		var synErr *SyntaxError
		require.ErrorAs(t, err, &synErr)
	})

	t.Run("null document fails with EmptyDocumentError", func(t *testing.T) {
		store := newLoadStore(t)

		path := writeTempFile(t, "null")
		_, err := store.Load(path)

		var emptyErr *EmptyDocumentError
		require.ErrorAs(t, err, &emptyErr)
		require.Equal(t, path, emptyErr.Path)
	})

	t.Run("empty document fails with EmptyDocumentError", func(t *testing.T) {
		store := newLoadStore(t)

		path := writeTempFile(t, "")
		_, err := store.Load(path)

		var emptyErr *EmptyDocumentError
		require.ErrorAs(t, err, &emptyErr)
	})

	t.Run("bare scalar fails with NotAMappingError naming the kind", func(t *testing.T) {
		store := newLoadStore(t)

		path := writeTempFile(t, "a")
		_, err := store.Load(path)

		var mapErr *NotAMappingError
		require.ErrorAs(t, err, &mapErr)
		require.Equal(t, "string scalar", mapErr.Kind)
		require.Contains(t, err.Error(), path)
	})

	t.Run("missing file surfaces the I/O error unmodified", func(t *testing.T) {
		store := newLoadStore(t)

		_, err := store.Load(filepath.Join(t.TempDir(), "missing.yml"))
		require.Error(t, err)
		require.True(t, os.IsNotExist(err))
	})
}

type updateConfig struct {
	I int
	J int
}

func newUpdateStore(t *testing.T) *Store[updateConfig] {
	t.Helper()
	store, err := NewStore[updateConfig]()
	require.NoError(t, err)
	return store.WithDefaults(func() updateConfig {
		return updateConfig{I: 10, J: 11}
	})
}

func TestStore_Update(t *testing.T) {
	t.Run("creates the file with defaults if it does not exist", func(t *testing.T) {
		store := newUpdateStore(t)

		path := filepath.Join(t.TempDir(), "config.yml")
		cfg, err := store.Update(path)
		require.NoError(t, err)

		require.Equal(t, 10, cfg.I)
		require.Equal(t, 11, cfg.J)
		require.Equal(t, "i: 10\nj: 11\n", readFile(t, path))
	})

	t.Run("loads existing values and fills in defaults", func(t *testing.T) {
		store := newUpdateStore(t)

		path := writeTempFile(t, "i: 20")
		cfg, err := store.Update(path)
		require.NoError(t, err)

		require.Equal(t, 20, cfg.I)
		require.Equal(t, 11, cfg.J)
	})

	t.Run("rewrites the file canonically dropping unknown keys", func(t *testing.T) {
		store := newUpdateStore(t)

		path := writeTempFile(t, "i: 20\nk: 30")
		cfg, err := store.Update(path)
		require.NoError(t, err)

		require.Equal(t, 20, cfg.I)
		require.Equal(t, 11, cfg.J)
		require.Equal(t, "i: 20\nj: 11\n", readFile(t, path))
	})

	t.Run("update of an invalid file fails without rewriting it", func(t *testing.T) {
		store := newUpdateStore(t)

		path := writeTempFile(t, "a")
		_, err := store.Update(path)

		var mapErr *NotAMappingError
		require.ErrorAs(t, err, &mapErr)
		require.Equal(t, "a", readFile(t, path))
	})
}

func TestStore_NamingPolicyRoundTrip(t *testing.T) {
	type cfg struct {
		MaxRetries int
		Host       string
	}
	store, err := NewStore[cfg](WithFieldNames(strings.ToUpper))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yml")
	err = store.Save(cfg{MaxRetries: 3, Host: "localhost"}, path)
	require.NoError(t, err)
	require.Equal(t, "MAXRETRIES: 3\nHOST: localhost\n", readFile(t, path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg{MaxRetries: 3, Host: "localhost"}, loaded)
}

func TestStore_JSONCodec(t *testing.T) {
	type cfg struct {
		Name  string
		Port  int
		Tags  []string
		Ratio float64
	}
	store, err := NewStore[cfg](WithCodec(JSONCodec{}))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	saved := cfg{Name: "svc", Port: 8080, Tags: []string{"a", "b"}, Ratio: 0.5}
	require.NoError(t, store.Save(saved, path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	require.Equal(t, saved, loaded)

	text := readFile(t, path)
	require.Less(t, strings.Index(text, "name"), strings.Index(text, "port"), "declaration order preserved")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
