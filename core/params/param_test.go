package params_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/params"
)

func mustParam(t *testing.T, reg *params.Registry, id string, cfg params.Config, loc params.Location) *params.Param {
	t.Helper()
	p, err := params.NewParam(reg, id, nil, cfg, loc, params.NoSquash)
	require.NoError(t, err)
	return p
}

func TestNewParamDefaults(t *testing.T) {
	t.Parallel()
	reg := params.NewRegistry()

	path := mustParam(t, reg, "id", params.Config{}, params.LocationPath)
	assert.Equal(t, params.TypeString, path.Type.Name)
	assert.True(t, path.IsOptional)
	assert.Equal(t, "", path.Config.Value)
	assert.Equal(t, params.ArrayOff, path.Array)

	search := mustParam(t, reg, "q", params.Config{}, params.LocationSearch)
	assert.False(t, search.IsOptional)
	assert.Equal(t, params.ArrayAuto, search.Array)

	cfg := mustParam(t, reg, "data", params.Config{}, params.LocationConfig)
	assert.Equal(t, params.TypeAny, cfg.Type.Name)
	assert.False(t, cfg.IsOptional)

	list := mustParam(t, reg, "ids[]", params.Config{}, params.LocationPath)
	assert.Equal(t, params.ArrayOn, list.Array)
	assert.False(t, list.IsOptional)

	typed := mustParam(t, reg, "page", params.Config{Type: "int", Value: 1}, params.LocationSearch)
	assert.Equal(t, params.TypeInt, typed.Type.Name)
	assert.True(t, typed.IsOptional)
}

func TestNewParamErrors(t *testing.T) {
	t.Parallel()
	reg := params.NewRegistry()
	intType, _ := reg.Type("int")

	_, err := params.NewParam(reg, "id", intType, params.Config{Type: "int"}, params.LocationPath, params.NoSquash)
	assert.ErrorIs(t, err, params.ErrTwoTypeConfigs)

	_, err = params.NewParam(reg, "id", nil, params.Config{Type: "nope"}, params.LocationPath, params.NoSquash)
	assert.ErrorIs(t, err, params.ErrUnknownType)

	_, err = params.NewParam(reg, "id", nil, params.Config{Value: "x", Squash: 3}, params.LocationPath, params.NoSquash)
	assert.ErrorIs(t, err, params.ErrInvalidSquashPolicy)

	_, err = params.NewParam(reg, "id", nil, params.Config{Array: params.ArrayAuto}, params.LocationPath, params.NoSquash)
	assert.ErrorIs(t, err, params.ErrAutoArrayMode)
}

func TestSquashPolicy(t *testing.T) {
	t.Parallel()
	reg := params.NewRegistry()

	required, err := params.NewParam(reg, "q", nil, params.Config{Squash: true}, params.LocationSearch, params.SlashSquash)
	require.NoError(t, err)
	assert.True(t, required.Squash.IsNone(), "required params never squash")

	inherited, err := params.NewParam(reg, "q", nil, params.Config{Value: "x"}, params.LocationSearch, params.SlashSquash)
	require.NoError(t, err)
	assert.True(t, inherited.Squash.IsSlash())

	disabled, err := params.NewParam(reg, "q", nil, params.Config{Value: "x", Squash: false}, params.LocationSearch, params.SlashSquash)
	require.NoError(t, err)
	assert.True(t, disabled.Squash.IsNone())

	text, err := params.NewParam(reg, "q", nil, params.Config{Value: "x", Squash: "~"}, params.LocationSearch, params.NoSquash)
	require.NoError(t, err)
	s, ok := text.Squash.Text()
	assert.True(t, ok)
	assert.Equal(t, "~", s)

	v, err := text.Value("~")
	require.NoError(t, err)
	assert.Equal(t, "x", v, "squash text maps back to the default")
}

func TestParamValue(t *testing.T) {
	t.Parallel()
	reg := params.NewRegistry()

	page := mustParam(t, reg, "page", params.Config{Type: "int", Value: 1}, params.LocationSearch)

	v, err := page.Value(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = page.Value("")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = page.Value("3")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	replaced := mustParam(t, reg, "mode", params.Config{
		Value:   "list",
		Replace: []params.Replace{{From: "old", To: "new"}},
	}, params.LocationSearch)
	v, err = replaced.Value("old")
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	bad := mustParam(t, reg, "n", params.Config{Type: "int", Value: "one"}, params.LocationSearch)
	_, err = bad.Value(nil)
	assert.ErrorIs(t, err, params.ErrInvalidDefault)
}

func TestInjectableDefault(t *testing.T) {
	t.Parallel()
	reg := params.NewRegistry()

	fn := injector.Fn(func(args ...any) (any, error) { return args[0], nil }, "defaultPage")
	p := mustParam(t, reg, "page", params.Config{Type: "int", ValueFunc: &fn}, params.LocationSearch)
	assert.True(t, p.IsOptional)

	_, err := p.Value(nil)
	assert.ErrorIs(t, err, params.ErrInjectorUnavailable)

	c := injector.New()
	c.MustRegister("defaultPage", 5)
	require.NoError(t, reg.Flush(c))

	v, err := p.Value(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestConfigYAML(t *testing.T) {
	t.Parallel()

	var decl map[string]params.Config
	require.NoError(t, yaml.Unmarshal([]byte(`
page: 1
tags: {array: true, type: string}
sort: {value: asc, squash: true}
mode: {array: auto}
raw: {foo: bar}
`), &decl))

	assert.Equal(t, 1, decl["page"].Value)
	assert.Equal(t, params.ArrayOn, decl["tags"].Array)
	assert.Equal(t, "string", decl["tags"].Type)
	assert.Equal(t, "asc", decl["sort"].Value)
	assert.Equal(t, true, decl["sort"].Squash)
	assert.Equal(t, params.ArrayAuto, decl["mode"].Array)
	assert.Equal(t, map[string]any{"foo": "bar"}, decl["raw"].Value)

	var bad map[string]params.Config
	err := yaml.Unmarshal([]byte(`x: {array: sometimes}`), &bad)
	assert.ErrorIs(t, err, params.ErrInvalidArrayMode)
}
