package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/pantry-assist/internal/models"
)

func ingredients(names ...string) []RecipeIngredient {
	out := make([]RecipeIngredient, 0, len(names))
	for _, n := range names {
		out = append(out, RecipeIngredient{Name: n})
	}
	return out
}

func TestGenerateWarnings_AllergySynonym(t *testing.T) {
	got := GenerateWarnings(ingredients("Mąka pszenna"), []string{"gluten"}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, WarningAllergy, got[0].Type)
	assert.Contains(t, got[0].Message, "Mąka pszenna")
	assert.Contains(t, got[0].Message, "gluten")
	assert.Equal(t, "Mąka pszenna", got[0].Ingredient)
	assert.Equal(t, "gluten", got[0].Restriction)
}

func TestGenerateWarnings_OnePerRestriction(t *testing.T) {
	got := GenerateWarnings(ingredients("Jogurt orzechowy"), []string{"laktoza", "orzechy"}, nil)

	require.Len(t, got, 2)
	assert.Equal(t, "laktoza", got[0].Restriction)
	assert.Equal(t, "orzechy", got[1].Restriction)
	for _, w := range got {
		assert.Equal(t, WarningAllergy, w.Type)
	}
}

func TestGenerateWarnings_Order(t *testing.T) {
	got := GenerateWarnings(ingredients("Mleko", "Jajka", "Sól"), []string{"laktoza"}, []string{"vegan"})

	require.Len(t, got, 3)
	assert.Equal(t, Warning{
		Type:        WarningAllergy,
		Message:     "Mleko contains laktoza, which is listed in your allergies",
		Ingredient:  "Mleko",
		Restriction: "laktoza",
	}, got[0])
	assert.Equal(t, WarningDiet, got[1].Type)
	assert.Equal(t, "Mleko", got[1].Ingredient)
	assert.Equal(t, WarningDiet, got[2].Type)
	assert.Equal(t, "Jajka", got[2].Ingredient)
}

func TestGenerateWarnings_Diets(t *testing.T) {
	tests := []struct {
		name       string
		ingredient string
		diet       string
		want       int
	}{
		{"polish alias", "Boczek wędzony", "wegetariańska", 1},
		{"fish is not vegetarian", "Filet z łososia", "vegetarian", 1},
		{"fish is fine for pescatarian", "Filet z łososia", "pescatarian", 0},
		{"meat is not pescatarian", "Pierś z kurczaka", "pescatarian", 1},
		{"honey is not vegan", "Miód", "vegan", 1},
		{"bread is not gluten free", "Chleb żytni", "bez glutenu", 1},
		{"rice is gluten free", "Ryż basmati", "gluten-free", 0},
		{"cheese is not lactose free", "Ser żółty", "lactose-free", 1},
		{"dessert is not cheese", "Deser owocowy", "lactose-free", 0},
		{"unknown diet", "Boczek", "paleo", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateWarnings(ingredients(tt.ingredient), nil, []string{tt.diet})
			assert.Len(t, got, tt.want)
		})
	}
}

func TestGenerateWarnings_Excludes(t *testing.T) {
	tests := []struct {
		name       string
		ingredient string
		allergies  []string
		diets      []string
		want       []string
	}{
		{"eggplant has no egg", "Eggplant", []string{"jaja"}, []string{"vegan"}, nil},
		{"soy milk is not dairy", "Mleko sojowe", []string{"laktoza"}, []string{"vegan", "lactose-free"}, nil},
		{"declared alias respects excludes", "Mleko owsiane", []string{"mleko"}, nil, nil},
		{"inflected plant milk", "Napój z mleka migdałowego", []string{"laktoza"}, nil, nil},
		{"almond milk keeps the nut warning", "Almond milk", []string{"lactose", "nuts"}, nil, []string{"nuts"}},
		{"peanut butter is not dairy", "Peanut butter", []string{"laktoza", "peanuts"}, nil, []string{"peanuts"}},
		{"nutmeg is a spice", "Nutmeg", []string{"orzechy"}, nil, nil},
		{"butternut squash", "Butternut squash", []string{"lactose"}, []string{"vegan"}, nil},
		{"tomato paste", "Pasta pomidorowa", []string{"gluten"}, []string{"gluten-free"}, nil},
		{"rice noodles", "Makaron ryżowy", []string{"gluten"}, nil, nil},
		{"gluten free bread", "Chleb bezglutenowy", nil, []string{"bez glutenu"}, nil},
		{"cream of tartar", "Cream of tartar", nil, []string{"vegan"}, nil},
		{"honeydew melon", "Honeydew", nil, []string{"vegan"}, nil},
		{"oyster mushrooms", "Oyster mushrooms", []string{"skorupiaki"}, []string{"vegetarian"}, nil},
		{"cauliflower rice", "Ryż kalafiorowy", nil, []string{"keto"}, nil},
		{"cow milk still warns", "Mleko krowie", []string{"laktoza"}, []string{"vegan"}, []string{"laktoza", "vegan"}},
		{"egg pasta still warns", "Makaron jajeczny", []string{"jaja", "gluten"}, nil, []string{"jaja", "gluten"}},
		{"exclude only cancels its own set", "Eggplant parmezan", nil, []string{"vegan"}, []string{"vegan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateWarnings(ingredients(tt.ingredient), tt.allergies, tt.diets)
			var restrictions []string
			for _, w := range got {
				restrictions = append(restrictions, w.Restriction)
			}
			assert.Equal(t, tt.want, restrictions)
		})
	}
}

func TestGenerateWarnings_Empty(t *testing.T) {
	got := GenerateWarnings(nil, []string{"gluten"}, []string{"vegan"})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = GenerateWarnings(ingredients("Mąka pszenna"), nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, GenerateWarnings(ingredients(""), []string{"gluten"}, nil))
	assert.Empty(t, GenerateWarnings(ingredients("Mąka pszenna"), []string{""}, nil))
}

func TestGenerateWarnings_UnlistedAllergyMatchesLiterally(t *testing.T) {
	got := GenerateWarnings(ingredients("Świeża kolendra", "Pietruszka"), []string{"Kolendra"}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Świeża kolendra", got[0].Ingredient)
}

func TestGenerateWarnings_NeverEquipment(t *testing.T) {
	got := GenerateWarnings(
		ingredients("Mąka pszenna", "Mleko", "Jajka", "Boczek", "Krewetki"),
		KnownAllergens(),
		KnownDiets(),
	)
	require.NotEmpty(t, got)
	for _, w := range got {
		assert.NotEqual(t, WarningEquipment, w.Type)
	}
}

func TestAllergyWarningFor(t *testing.T) {
	assert.Nil(t, AllergyWarningFor("Sól", []string{"gluten"}))
	assert.Nil(t, AllergyWarningFor("Mąka pszenna", nil))

	got := AllergyWarningFor("Jogurt orzechowy", []string{"laktoza", "orzechy"})
	require.NotNil(t, got)
	assert.Equal(t,
		"Jogurt orzechowy contains laktoza, which is listed in your allergies; Jogurt orzechowy contains orzechy, which is listed in your allergies",
		*got)

	got = AllergyWarningFor("Masło orzechowe", []string{"laktoza", "orzechy"})
	require.NotNil(t, got)
	assert.Equal(t, "Masło orzechowe contains orzechy, which is listed in your allergies", *got)
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := NewAnalyzer(nil)
	inventory := []InventoryItemForMatching{
		item("1", "Mąka pszenna", f64(1000), str("g"), true),
		item("2", "Cukier", f64(100), str("g"), true),
	}
	profile := &models.Profile{Allergies: []string{"gluten"}, Diets: []string{"vegan"}}

	report := a.Analyze(context.Background(), []RecipeIngredient{
		{Name: "Mąka pszenna", Quantity: f64(500), Unit: str("g")},
		{Name: "Cukier", Quantity: f64(200), Unit: str("g")},
		{Name: "Jajka", Quantity: f64(2)},
	}, inventory, profile)

	require.Len(t, report.Ingredients, 3)
	assert.Equal(t, StatusAvailable, report.Ingredients[0].Status)
	require.NotNil(t, report.Ingredients[0].AllergyWarning)
	assert.Contains(t, *report.Ingredients[0].AllergyWarning, "gluten")
	assert.Equal(t, StatusPartial, report.Ingredients[1].Status)
	assert.Nil(t, report.Ingredients[1].AllergyWarning)
	assert.Equal(t, StatusMissing, report.Ingredients[2].Status)

	// gluten allergy on flour, vegan diet on eggs
	require.Len(t, report.Warnings, 2)
	assert.Equal(t, WarningAllergy, report.Warnings[0].Type)
	assert.Equal(t, WarningDiet, report.Warnings[1].Type)
	assert.Equal(t, "Jajka", report.Warnings[1].Ingredient)

	empty := a.Analyze(context.Background(), nil, inventory, nil)
	assert.Empty(t, empty.Ingredients)
	assert.Empty(t, empty.Warnings)
}
