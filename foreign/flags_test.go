package foreign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlags(t *testing.T) {
	f := FlagArchive | FlagNotify
	assert.True(t, f.Has(FlagArchive))
	assert.True(t, f.Has(FlagCheat|FlagNotify))
	assert.False(t, f.Has(FlagCheat))
	assert.Equal(t, "archive|notify", f.String())
	assert.Equal(t, "none", FlagNone.String())

	assert.Equal(t, Flags(1<<20|1<<21|1<<23), MaterialThreadMask)
	assert.True(t, FlagReloadTextures.Has(MaterialThreadMask))
	assert.False(t, FlagArchive.Has(MaterialThreadMask))
}

func TestThread(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ThreadMain, ThreadFrom(ctx))

	mat := WithThread(ctx, ThreadMaterial)
	assert.Equal(t, ThreadMaterial, ThreadFrom(mat))
	assert.Equal(t, "material", ThreadFrom(mat).String())
	assert.Equal(t, ThreadMain, ThreadFrom(ctx))
}

func TestLayouts(t *testing.T) {
	assert.Equal(t, uint32(4), BaseLayout.Field("next").Offset)
	assert.Equal(t, uint32(8), BaseLayout.Field("registered").Offset)
	assert.Equal(t, uint32(12), BaseLayout.Field("name").Offset)
	assert.Equal(t, uint32(20), BaseLayout.Field("flags").Offset)
	assert.Equal(t, uint32(24), BaseLayout.Size())

	assert.Equal(t, uint32(24), VariableLayout.Field("parent").Offset)
	assert.Equal(t, uint32(24), CommandLayout.Field("callback").Offset)

	assert.True(t, VariableLayout.CompatibleWith(BaseLayout))
	assert.True(t, CommandLayout.CompatibleWith(BaseLayout))
	assert.False(t, VariableLayout.CompatibleWith(CommandLayout))
	assert.True(t, CvarLayout.CompatibleWith(AppSystemLayout))

	assert.Equal(t, uint32(8+2*MaxCommandLength+MaxArgs*4), InvocationLayout.Size())
	assert.Equal(t, uint32(4+MaxSuggestions*MaxSuggestionLength), SuggestionsLayout.Size())
}
