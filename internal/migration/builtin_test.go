package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isomer/internal/content"
)

const indexWithoutOrdering = `{"version":"0.1.0","layout":"index","page":{"title":"Services"},"content":[{"type":"prose","content":[{"type":"paragraph"}]},{"type":"childrenpages","variant":"rows","showSummary":true}]}`

func TestAddChildrenPagesOrdering(t *testing.T) {
	m := AddChildrenPagesOrdering()
	doc := content.MustParse([]byte(indexWithoutOrdering))

	out, err := m.Transform(doc)
	require.NoError(t, err)

	want := `{"version":"0.1.0","layout":"index","page":{"title":"Services"},"content":[{"type":"prose","content":[{"type":"paragraph"}]},{"type":"childrenpages","variant":"rows","showSummary":true,"childrenPagesOrdering":[]}]}`
	assert.Equal(t, want, string(out.Bytes()), "only the new field may change")

	again, err := m.Transform(out)
	require.NoError(t, err)
	assert.True(t, again.Equal(out), "transform must be idempotent")
}

func TestAddChildrenPagesOrderingKeepsExisting(t *testing.T) {
	doc := content.MustParse([]byte(`{"layout":"index","content":[{"type":"childrenpages","childrenPagesOrdering":["b","a"]}]}`))

	out, err := AddChildrenPagesOrdering().Transform(doc)
	require.NoError(t, err)
	assert.True(t, out.Equal(doc))
}

func TestAddChildrenPagesOrderingSkips(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "no blocks", doc: `{"layout":"index","content":[]}`},
		{name: "last block is prose", doc: `{"layout":"index","content":[{"type":"childrenpages"},{"type":"prose"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddChildrenPagesOrdering().Transform(content.MustParse([]byte(tt.doc)))
			var skip *SkipError
			assert.ErrorAs(t, err, &skip)
		})
	}
}

func TestAppendChildrenPagesBlock(t *testing.T) {
	m := AppendChildrenPagesBlock()
	doc := content.MustParse([]byte(`{"version":"0.1.0","layout":"index","page":{"title":"T"},"content":[{"type":"prose"}]}`))

	out, err := m.Transform(doc)
	require.NoError(t, err)

	last, ok := out.LastBlock()
	require.True(t, ok)
	assert.Equal(t, content.BlockChildrenPages, last.Type)
	assert.Len(t, out.Blocks(), 2)

	again, err := m.Transform(out)
	require.NoError(t, err)
	assert.True(t, again.Equal(out), "transform must be idempotent")

	empty := content.MustParse([]byte(`{"layout":"index","content":[]}`))
	out, err = m.Transform(empty)
	require.NoError(t, err)
	assert.Len(t, out.Blocks(), 1)
}

func TestBuiltinsAndLookup(t *testing.T) {
	names := []string{}
	for _, m := range Builtins() {
		names = append(names, m.Name())
		assert.NotEmpty(t, m.Description())
	}
	assert.Equal(t, []string{
		NameAddChildrenPagesOrdering,
		NameAppendChildrenPagesBlock,
		NameBackfillFolderIndexPages,
	}, names)

	m, ok := Lookup(NameBackfillFolderIndexPages)
	require.True(t, ok)
	assert.Equal(t, NameBackfillFolderIndexPages, m.Name())

	_, ok = Lookup("drop-everything")
	assert.False(t, ok)
}
