package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/models"
)

func TestNormalizeReceiptName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MLEKO 3,2%", "mleko"},
		{"CHLEB ZYTNI", "chleb żytni"},
		{"MASL EXTRA 82%", "masło extra"},
		{"ORG WHL MLK", "organic whole milk"},
		{"  *POM  MALINOWE ", "pomidory malinowe"},
		{"123 456", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeReceiptName(tt.in), tt.in)
	}
}

func TestReceiptLineMatcher_MatchLines(t *testing.T) {
	resolver := matching.NewCatalogResolver(newMemCatalog(), nil)
	matcher := NewReceiptLineMatcher(resolver, nil)

	parsed := NewReceiptParser().Parse(sampleReceipt)
	lines := matcher.MatchLines(context.Background(), 7, parsed.Items)
	require.Len(t, lines, 4)

	milk := lines[0]
	assert.Equal(t, 7, milk.ReceiptID)
	assert.Equal(t, models.MatchStatusMatched, milk.MatchStatus)
	require.NotNil(t, milk.MatchedProductID)
	assert.Equal(t, 10, *milk.MatchedProductID)
	require.NotNil(t, milk.SuggestedUnitID)
	assert.Equal(t, 5, *milk.SuggestedUnitID)
	assert.Equal(t, "MLEKO 3,2%", *milk.ExtractedName)

	// No default unit: the kg hint from the weighed line is used
	bananas := lines[1]
	assert.Equal(t, models.MatchStatusMatched, bananas.MatchStatus)
	assert.Equal(t, 11, *bananas.MatchedProductID)
	require.NotNil(t, bananas.SuggestedUnitID)
	assert.Equal(t, 4, *bananas.SuggestedUnitID)

	eggs := lines[2]
	assert.Equal(t, models.MatchStatusUnmatched, eggs.MatchStatus)
	assert.Nil(t, eggs.MatchedProductID)
	require.NotNil(t, eggs.SuggestedUnitID)
	assert.Equal(t, 3, *eggs.SuggestedUnitID)

	bread := lines[3]
	assert.Equal(t, models.MatchStatusUnmatched, bread.MatchStatus)
	assert.Nil(t, bread.SuggestedUnitID)
	assert.Equal(t, 4, bread.LineNumber)
}
