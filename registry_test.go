package configlib

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type kilometers float64

func kmConverter() Registration {
	return NewConverter(
		func(km kilometers) (any, error) { return float64(km), nil },
		func(v any) (kilometers, error) {
			f, ok := v.(float64)
			if !ok {
				return 0, mismatch("a float scalar", v)
			}
			return kilometers(f), nil
		},
	)
}

func TestRegistry_Register(t *testing.T) {
	t.Run("valid registration succeeds", func(t *testing.T) {
		r := newRegistry()
		require.NoError(t, Apply(r, kmConverter()))

		_, ok := r.lookup(reflect.TypeOf(kilometers(0)))
		require.True(t, ok)
	})

	t.Run("duplicate registration for a type fails", func(t *testing.T) {
		r := newRegistry()
		require.NoError(t, Apply(r, kmConverter()))
		require.Error(t, Apply(r, kmConverter()))
	})

	t.Run("nil type or converter is rejected", func(t *testing.T) {
		r := newRegistry()
		require.Error(t, r.Register(nil, boolConverter{}))
		require.Error(t, r.Register(reflect.TypeOf(0), nil))
	})

	t.Run("lookup misses for unregistered types", func(t *testing.T) {
		r := newRegistry()
		_, ok := r.lookup(reflect.TypeOf(""))
		require.False(t, ok)
	})
}

func TestNewRegistry(t *testing.T) {
	t.Run("applies registrations in order", func(t *testing.T) {
		r, err := NewRegistry(Stdlib(), kmConverter())
		require.NoError(t, err)

		for _, v := range []any{kilometers(0), time.Time{}, time.Duration(0)} {
			_, ok := r.lookup(reflect.TypeOf(v))
			require.True(t, ok, "%T", v)
		}
	})

	t.Run("stops at the first failing registration", func(t *testing.T) {
		_, err := NewRegistry(kmConverter(), kmConverter())
		require.Error(t, err)
	})

	t.Run("group bundles registrations", func(t *testing.T) {
		r, err := NewRegistry(Group(kmConverter(), Enum(map[string]protocol{"tcp": "t"})))
		require.NoError(t, err)

		_, ok := r.lookup(reflect.TypeOf(protocol("")))
		require.True(t, ok)
	})
}

func TestFuncConverter(t *testing.T) {
	t.Run("serialize rejects values of the wrong type", func(t *testing.T) {
		r, err := NewRegistry(kmConverter())
		require.NoError(t, err)

		c, ok := r.lookup(reflect.TypeOf(kilometers(0)))
		require.True(t, ok)

		_, err = c.Serialize("not a distance")
		require.Error(t, err)
	})

	t.Run("round trips through the typed pair", func(t *testing.T) {
		r, err := NewRegistry(kmConverter())
		require.NoError(t, err)

		c, _ := r.lookup(reflect.TypeOf(kilometers(0)))
		node, err := c.Serialize(kilometers(42.5))
		require.NoError(t, err)
		require.Equal(t, 42.5, node)

		v, err := c.Deserialize(node)
		require.NoError(t, err)
		require.Equal(t, kilometers(42.5), v)
	})
}

func TestEnumConverter(t *testing.T) {
	type color int
	reg := Enum(map[string]color{"red": 0, "green": 1, "blue": 2})

	r, err := NewRegistry(reg)
	require.NoError(t, err)
	c, ok := r.lookup(reflect.TypeOf(color(0)))
	require.True(t, ok)

	t.Run("serializes to the declared name", func(t *testing.T) {
		name, err := c.Serialize(color(1))
		require.NoError(t, err)
		require.Equal(t, "green", name)
	})

	t.Run("undeclared value fails to serialize", func(t *testing.T) {
		_, err := c.Serialize(color(9))
		require.Error(t, err)
	})

	t.Run("deserializes by exact name", func(t *testing.T) {
		v, err := c.Deserialize("blue")
		require.NoError(t, err)
		require.Equal(t, color(2), v)
	})

	t.Run("non-string document value is a mismatch", func(t *testing.T) {
		_, err := c.Deserialize(int64(1))
		var tmErr *TypeMismatchError
		require.ErrorAs(t, err, &tmErr)
	})
}
