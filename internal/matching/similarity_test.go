package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	t.Run("identical names after folding score one", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("Cukier", "cukier"))
		assert.Equal(t, 1.0, Similarity("  Mąka pszenna ", "MĄKA PSZENNA"))
	})

	t.Run("empty input scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("", "cukier"))
		assert.Equal(t, 0.0, Similarity("cukier", ""))
		assert.Equal(t, 0.0, Similarity("", ""))
		assert.Equal(t, 0.0, Similarity("   ", "cukier"))
	})

	t.Run("edit distance over the longer name", func(t *testing.T) {
		assert.InDelta(t, 1.0-3.0/7.0, Similarity("kitten", "sitting"), 1e-9)
		// ł and l differ by one rune, not by bytes
		assert.InDelta(t, 1.0-1.0/6.0, Similarity("Jabłko", "jablko"), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"Cukier", "Cukier biały"},
			{"mleko", "masło"},
			{"Drożdże", "drozdze"},
			{"pomidory", "ziemniaki"},
		}
		for _, p := range pairs {
			assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%s / %s", p[0], p[1])
		}
	})

	t.Run("bounded", func(t *testing.T) {
		for _, p := range [][2]string{{"a", "zzzzzz"}, {"abc", "xyz"}, {"sól", "sól"}} {
			s := Similarity(p[0], p[1])
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	})
}

func TestIsMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"exact", "Cukier", "cukier", true},
		{"short name contained in longer", "Cukier", "Cukier biały", true},
		{"longer contained reversed", "Cukier biały", "Cukier", true},
		{"plural contains singular", "pomidory", "pomidor", true},
		{"one letter off", "Jabłko", "jablko", true},
		{"different products", "Mleko", "Masło", false},
		{"unrelated", "Drożdże", "Cukier", false},
		{"empty never matches", "", "", false},
		{"empty against name", "", "Cukier", false},
		{"blank against name", "  ", "Cukier", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMatch(tt.a, tt.b, DefaultMatchThreshold))
		})
	}
}

func TestNewFuzzyMatcher(t *testing.T) {
	assert.Equal(t, DefaultMatchThreshold, NewFuzzyMatcher(0).Threshold)
	assert.Equal(t, DefaultMatchThreshold, NewFuzzyMatcher(-1).Threshold)
	assert.Equal(t, DefaultMatchThreshold, NewFuzzyMatcher(1.5).Threshold)
	assert.Equal(t, 0.8, NewFuzzyMatcher(0.8).Threshold)

	strict := NewFuzzyMatcher(1.0)
	assert.False(t, strict.Matches("Jabłko", "jablko"))
	assert.True(t, strict.Matches("Cukier", "Cukier biały"))
}
