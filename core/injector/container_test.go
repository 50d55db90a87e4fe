package injector_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/staterouter/core/injector"
)

func TestInvoke(t *testing.T) {
	t.Parallel()

	c := injector.New()
	require.NoError(t, c.Register("greeting", "hello"))

	v, err := c.Invoke(injector.Fn(func(args ...any) (any, error) {
		return args[0].(string) + " " + args[1].(string), nil
	}, "greeting", "name"), map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)

	v, err = c.Invoke(injector.Fn(func(args ...any) (any, error) {
		return args[0], nil
	}, "greeting"), map[string]any{"greeting": "local wins"})
	require.NoError(t, err)
	assert.Equal(t, "local wins", v)
}

func TestInvokeErrors(t *testing.T) {
	t.Parallel()

	c := injector.New()

	_, err := c.Invoke(injector.Fn(func(args ...any) (any, error) { return nil, nil }, "missing"), nil)
	assert.ErrorIs(t, err, injector.ErrUnknownProvider)

	_, err = c.Invoke(injector.Fn(func(...any) (any, error) { panic("boom") }), nil)
	assert.ErrorIs(t, err, injector.ErrInvocationPanic)

	boom := errors.New("boom")
	_, err = c.Invoke(injector.Fn(func(...any) (any, error) { return nil, boom }), nil)
	assert.ErrorIs(t, err, boom)

	_, err = c.Invoke(injector.Invocable{}, nil)
	assert.ErrorIs(t, err, injector.ErrInvalidInvocable)
}

func TestProvide(t *testing.T) {
	t.Parallel()

	c := injector.New()
	calls := 0
	require.NoError(t, c.Register("base", 20))
	require.NoError(t, c.Provide("answer", injector.Fn(func(args ...any) (any, error) {
		calls++
		return args[0].(int) + 22, nil
	}, "base")))

	for range 3 {
		v, err := c.Get("answer")
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, c.Has("answer"))
	assert.False(t, c.Has("nope"))

	v, err := c.Invoke(injector.Service("answer"), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Empty(t, c.Annotate(injector.Service("answer")))

	assert.ErrorIs(t, c.Register("base", 1), injector.ErrDuplicateService)
	assert.ErrorIs(t, c.Provide("answer", injector.Value(1)), injector.ErrDuplicateService)
	assert.ErrorIs(t, c.Provide("empty", injector.Invocable{}), injector.ErrInvalidInvocable)
}

func TestProvideCycle(t *testing.T) {
	t.Parallel()

	c := injector.New()
	require.NoError(t, c.Provide("a", injector.Fn(func(args ...any) (any, error) { return args[0], nil }, "b")))
	require.NoError(t, c.Provide("b", injector.Fn(func(args ...any) (any, error) { return args[0], nil }, "a")))

	_, err := c.Get("a")
	assert.ErrorIs(t, err, injector.ErrCircularProvider)
	assert.Panics(t, func() { c.MustRegister("a", 1) })
}

func TestValue(t *testing.T) {
	t.Parallel()

	c := injector.New()
	v, err := c.Invoke(injector.Value("fixed"), nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", v)
	assert.Equal(t, []string{"x", "y"}, c.Annotate(injector.Fn(nil, "x", "y")))
}
