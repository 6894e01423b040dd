package matching

// Status classifies how well the pantry covers an ingredient.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPartial   Status = "partial"
	StatusMissing   Status = "missing"
)

// WarningType categorizes a Warning.
type WarningType string

const (
	WarningAllergy WarningType = "allergy"
	WarningDiet    WarningType = "diet"
	// WarningEquipment is reserved for recipe equipment checks and is not
	// produced by GenerateWarnings.
	WarningEquipment WarningType = "equipment"
)

// UnknownItemName labels inventory rows with neither a custom nor a
// product name.
const UnknownItemName = "Unknown"

// InventoryItemForMatching is the flat view of a pantry entry used by the
// resolver. Items with IsAvailable false are never match candidates.
type InventoryItemForMatching struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Quantity    *float64 `json:"quantity,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	IsAvailable bool     `json:"is_available"`
}

// RecipeIngredient is one line of a parsed recipe.
type RecipeIngredient struct {
	Name     string   `json:"name" validate:"required,min=1,max=200"`
	Quantity *float64 `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Unit     *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
}

// ItemRef points at an inventory item from the snapshot passed to a single
// analysis call.
type ItemRef struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
}

func refOf(item *InventoryItemForMatching) *ItemRef {
	if item == nil {
		return nil
	}
	return &ItemRef{
		ID:       item.ID,
		Name:     item.Name,
		Quantity: item.Quantity,
		Unit:     item.Unit,
	}
}

// Substitution is a suggestion for a partial or missing ingredient.
type Substitution struct {
	Available      bool     `json:"available"`
	Suggestion     string   `json:"suggestion"`
	SubstituteItem *ItemRef `json:"substitute_item,omitempty"`
}

// IngredientAnalysis is the per-ingredient result of an analysis.
type IngredientAnalysis struct {
	IngredientName string        `json:"ingredient_name"`
	Status         Status        `json:"status"`
	MatchedItem    *ItemRef      `json:"matched_item,omitempty"`
	Substitution   *Substitution `json:"substitution,omitempty"`
	AllergyWarning *string       `json:"allergy_warning,omitempty"`
}

// Warning is an allergy or diet notice tied to one ingredient and one
// declared restriction.
type Warning struct {
	Type        WarningType `json:"type"`
	Message     string      `json:"message"`
	Ingredient  string      `json:"ingredient"`
	Restriction string      `json:"restriction"`
}
