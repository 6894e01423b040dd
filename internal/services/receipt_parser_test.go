package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReceipt = `BIEDRONKA
Jeronimo Martins Polska S.A.
NIP 779-10-11-327
2024-05-12 18:43
PARAGON FISKALNY
MLEKO 3,2% 1L 1 x3,49 3,49A
BANANY LUZ 0,856 x5,99 5,13C
JAJA L 10SZT 1 szt. x11,99 11,99B
CHLEB ZYTNI 4,99A
SPRZEDAŻ OPODATKOWANA A 8,48
PTU A 23% 1,59
SUMA PLN 25,60
`

func TestReceiptParser_Parse(t *testing.T) {
	parsed := NewReceiptParser().Parse(sampleReceipt)

	require.NotNil(t, parsed.StoreName)
	assert.Equal(t, "BIEDRONKA", *parsed.StoreName)

	require.NotNil(t, parsed.Date)
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), *parsed.Date)

	require.Len(t, parsed.Items, 4)

	milk := parsed.Items[0]
	assert.Equal(t, "MLEKO 3,2%", milk.Name)
	assert.Equal(t, 1, milk.LineNumber)
	require.NotNil(t, milk.Quantity)
	assert.InDelta(t, 1.0, *milk.Quantity, 1e-9)
	require.NotNil(t, milk.UnitHint)
	assert.Equal(t, "l", *milk.UnitHint)
	require.NotNil(t, milk.Price)
	assert.InDelta(t, 3.49, *milk.Price, 1e-9)

	bananas := parsed.Items[1]
	assert.Equal(t, "BANANY LUZ", bananas.Name)
	assert.InDelta(t, 0.856, *bananas.Quantity, 1e-9)
	require.NotNil(t, bananas.UnitHint)
	assert.Equal(t, "kg", *bananas.UnitHint)

	eggs := parsed.Items[2]
	assert.Equal(t, "JAJA L", eggs.Name)
	assert.InDelta(t, 10.0, *eggs.Quantity, 1e-9)
	require.NotNil(t, eggs.UnitHint)
	assert.Equal(t, "szt", *eggs.UnitHint)

	bread := parsed.Items[3]
	assert.Equal(t, "CHLEB ZYTNI", bread.Name)
	assert.Equal(t, 4, bread.LineNumber)
	assert.InDelta(t, 1.0, *bread.Quantity, 1e-9)
	assert.Nil(t, bread.UnitHint)
}

func TestReceiptParser_ExcludesSummaryLines(t *testing.T) {
	p := NewReceiptParser()

	for _, line := range []string{
		"SUMA PLN 25,60",
		"PTU A 23% 1,59",
		"RESZTA 0,00",
		"Karta: 25,60",
		"TOTAL $12.40",
		"----------",
	} {
		assert.True(t, p.shouldExclude(p.cleanLine(line)), line)
	}

	for _, line := range []string{
		"KASZA GRYCZANA 3,99A",
		"KARTOFLE 2,49C",
		"CASHEW NUTS 9,99A",
	} {
		assert.False(t, p.shouldExclude(p.cleanLine(line)), line)
	}
}

func TestReceiptParser_DayFirstDate(t *testing.T) {
	parsed := NewReceiptParser().Parse("LIDL\n03.02.2025 12:01\nMASLO 200G 1 x7,99 7,99A\n")

	require.NotNil(t, parsed.Date)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), *parsed.Date)

	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "MASLO", parsed.Items[0].Name)
	assert.InDelta(t, 200.0, *parsed.Items[0].Quantity, 1e-9)
	assert.Equal(t, "g", *parsed.Items[0].UnitHint)
}

func TestReceiptParser_InvalidDateIgnored(t *testing.T) {
	parsed := NewReceiptParser().Parse("31.02.2025\n")
	assert.Nil(t, parsed.Date)
	assert.Empty(t, parsed.Items)
}

func TestReceiptParser_DropsNonPositiveTotals(t *testing.T) {
	parsed := NewReceiptParser().Parse("OPAKOWANIE ZWROTNE -0,50A\n")
	assert.Empty(t, parsed.Items)
}
