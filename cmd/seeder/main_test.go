package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseCatalog(t *testing.T) {
	csv := `Name, Category, Unit
mleko,nabiał,l
 masło ,nabiał,g
,warzywa,szt
cebula,warzywa
Mleko,nabiał,ml
`
	entries, err := parseCatalog(strings.NewReader(csv), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// the later duplicate wins
	assert.Equal(t, CatalogEntry{Name: "Mleko", Category: "nabiał", Unit: "ml"}, entries[0])
	assert.Equal(t, CatalogEntry{Name: "masło", Category: "nabiał", Unit: "g"}, entries[1])
	assert.Equal(t, CatalogEntry{Name: "cebula", Category: "warzywa"}, entries[2])
}

func TestParseCatalog_NoNameColumn(t *testing.T) {
	_, err := parseCatalog(strings.NewReader("product,unit\nmleko,l\n"), zap.NewNop())
	assert.Error(t, err)
}

func TestFilterCategory(t *testing.T) {
	got := filterCategory(builtinCatalog, "NABIAŁ")
	require.NotEmpty(t, got)
	for _, e := range got {
		assert.Equal(t, "nabiał", e.Category)
	}
	assert.Len(t, filterCategory(builtinCatalog, ""), len(builtinCatalog))
}
