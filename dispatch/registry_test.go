package dispatch_test

import (
	"testing"

	"github.com/hanseartic/jsonrpcd/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// greeter is a catalog-constructible handler with one settable property.
type greeter struct {
	Prefix string `mapstructure:"prefix"`
}

func (g *greeter) Greet(name string) string { return g.Prefix + name }

// counter exists to give the registry a second distinct type key.
type counter struct {
	Start int `mapstructure:"start"`
}

func (c *counter) Next() int {
	c.Start++
	return c.Start
}

func newTestCatalog() *dispatch.Catalog {
	catalog := dispatch.NewCatalog()
	catalog.Register("greeter", func() any { return &greeter{} })
	catalog.Register("counter", func() any { return &counter{} })
	return catalog
}

func TestRegistryBindInstance(t *testing.T) {
	registry := dispatch.NewRegistry(nil, zap.NewNop())

	require.True(t, registry.Bind(&greeter{Prefix: "hi "}))

	bindings := registry.List()
	require.Len(t, bindings, 1)
	assert.Equal(t, "dispatch_test.greeter", bindings[0].Key)
	assert.True(t, bindings[0].Handler.Exposes("greet"))
}

func TestRegistryBindNil(t *testing.T) {
	registry := dispatch.NewRegistry(nil, zap.NewNop())

	assert.False(t, registry.Bind(nil))
	assert.Zero(t, registry.Len())
}

func TestRegistryBindByTypeName(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())

	require.True(t, registry.Bind("greeter"))

	bindings := registry.List()
	require.Len(t, bindings, 1)
	assert.True(t, bindings[0].Handler.Exposes("greet"))
}

func TestRegistryBindUnknownTypeName(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())

	assert.False(t, registry.Bind("nonesuch"))
	assert.Zero(t, registry.Len())
}

func TestRegistryBindTypeNameWithoutCatalog(t *testing.T) {
	registry := dispatch.NewRegistry(nil, zap.NewNop())

	assert.False(t, registry.Bind("greeter"))
}

func TestRegistryBindDescriptorAssignsProperties(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())

	require.True(t, registry.Bind(map[string]any{"type": "greeter", "prefix": "howdy "}))

	bindings := registry.List()
	require.Len(t, bindings, 1)
	instance, ok := bindings[0].Instance.(*greeter)
	require.True(t, ok)
	assert.Equal(t, "howdy ", instance.Prefix)
}

func TestRegistryBindDescriptorSkipsBadProperties(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())

	// start cannot decode into an int; the bind still succeeds and the
	// other properties still land.
	require.True(t, registry.Bind(map[string]any{"type": "counter", "start": "ten"}))

	instance, ok := registry.List()[0].Instance.(*counter)
	require.True(t, ok)
	assert.Zero(t, instance.Start)
}

func TestRegistryBindDescriptorIgnoresUnknownProperties(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())

	require.True(t, registry.Bind(map[string]any{"type": "greeter", "prefix": "yo ", "volume": 11}))

	instance := registry.List()[0].Instance.(*greeter)
	assert.Equal(t, "yo ", instance.Prefix)
}

func TestRegistryBindDescriptorWithoutType(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())

	assert.False(t, registry.Bind(map[string]any{"prefix": "hi "}))
	assert.Zero(t, registry.Len())
}

func TestRegistryRebindReplacesInPlace(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())
	require.True(t, registry.Bind(map[string]any{"type": "greeter", "prefix": "first "}))
	require.True(t, registry.Bind("counter"))

	require.True(t, registry.Bind(map[string]any{"type": "greeter", "prefix": "second "}))

	bindings := registry.List()
	require.Len(t, bindings, 2)
	// The replacement stays at the original position and carries the new
	// property values.
	instance, ok := bindings[0].Instance.(*greeter)
	require.True(t, ok)
	assert.Equal(t, "second ", instance.Prefix)
	_, ok = bindings[1].Instance.(*counter)
	assert.True(t, ok)
}

func TestRegistrySetAllNilClears(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())
	require.True(t, registry.Bind("greeter"))

	bindings, err := registry.SetAll(nil)

	require.NoError(t, err)
	assert.Empty(t, bindings)
	assert.Zero(t, registry.Len())
}

func TestRegistrySetAllReplacesInOrder(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())
	require.True(t, registry.Bind("counter"))

	bindings, err := registry.SetAll([]any{
		map[string]any{"type": "greeter", "prefix": "oh "},
		"nonesuch",
		"counter",
	})

	require.NoError(t, err)
	require.Len(t, bindings, 2)
	_, ok := bindings[0].Instance.(*greeter)
	assert.True(t, ok)
	_, ok = bindings[1].Instance.(*counter)
	assert.True(t, ok)
}

func TestRegistrySetAllRejectsNonSlice(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())
	require.True(t, registry.Bind("greeter"))

	bindings, err := registry.SetAll("greeter")

	require.ErrorIs(t, err, dispatch.ErrInvalidArgument)
	// The registry is left untouched and the snapshot shows it.
	require.Len(t, bindings, 1)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryHandlersMatchesList(t *testing.T) {
	registry := dispatch.NewRegistry(newTestCatalog(), zap.NewNop())
	require.True(t, registry.Bind("greeter"))
	require.True(t, registry.Bind("counter"))

	assert.Equal(t, registry.List(), registry.Handlers())
}
