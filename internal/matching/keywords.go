package matching

// Keyword tables are matched as substrings of case-folded names, so
// triggers are lowercase stems that cover Polish inflection ("jajk" for
// jajko/jajka). A trigger with a leading space only matches at the start of
// a word: " ser" hits "ser żółty" but not "deser".

type substitutionRule struct {
	Key          string
	Triggers     []string
	Excludes     []string
	Suggestion   string
	Alternatives []string
}

// Order matters: the first rule with a matching trigger wins, so more
// specific rules come before the general ones they overlap with.
var substitutionRules = []substitutionRule{
	{
		Key:          "heavy_cream",
		Triggers:     []string{"kremówk", "śmietanka 30", "śmietana 30", "śmietanka 36", "heavy cream", "whipping cream", "double cream"},
		Suggestion:   "Replace heavy cream with full-fat coconut milk (chill it and use the thick part for whipping).",
		Alternatives: []string{"mleko kokosowe", "coconut milk", "krem kokosowy", "coconut cream"},
	},
	{
		Key:          "cream",
		Triggers:     []string{"śmietan", "cream"},
		Excludes:     []string{"ice cream", "cream cheese"},
		Suggestion:   "Use Greek or natural yogurt in the same amount instead of cream.",
		Alternatives: []string{"jogurt", "yogurt", "yoghurt", "skyr"},
	},
	{
		Key:          "yogurt",
		Triggers:     []string{"jogurt", "yogurt", "yoghurt"},
		Suggestion:   "Use sour cream (śmietana 18%) or kefir instead of yogurt.",
		Alternatives: []string{"śmietan", "kefir", "sour cream"},
	},
	{
		Key:          "butter",
		Triggers:     []string{"masło", "masła", "butter"},
		Excludes:     []string{"peanut butter", "masło orzechowe", "buttermilk"},
		Suggestion:   "Use vegetable oil instead of butter, about 3/4 of the amount.",
		Alternatives: []string{"olej", "oliwa", "oil"},
	},
	{
		Key:          "oil",
		Triggers:     []string{"olej", "oliwa", "oliwy", " oil"},
		Suggestion:   "Use melted butter instead of oil, about 1.25 times the amount.",
		Alternatives: []string{"masło", "butter", "ghee"},
	},
	{
		Key:          "egg",
		Triggers:     []string{"jajk", "jajo", "jaja", " egg"},
		Excludes:     []string{"eggplant", "makaron jajeczny", "egg noodle"},
		Suggestion:   "Replace one egg with half a mashed banana or 3 tablespoons of aquafaba (chickpea water).",
		Alternatives: []string{"banan", "banana", "ciecierzyc", "chickpea", "aquafaba", "siemię lniane", "flaxseed"},
	},
	{
		Key:          "plant_milk",
		Triggers:     []string{"mleko roślinne", "mleko sojowe", "mleko owsiane", "mleko migdałowe", "mleko ryżowe", "mleko kokosowe", "napój roślinny", "napój owsiany", "napój sojowy", "plant milk", "soy milk", "oat milk", "almond milk", "rice milk", "coconut milk"},
		Suggestion:   "Use regular cow's milk in the same amount instead of plant milk.",
		Alternatives: []string{"mleko", "milk"},
	},
	{
		Key:          "milk",
		Triggers:     []string{"mleko", "mleka", "milk"},
		Suggestion:   "Use a plant-based milk (oat, soy or almond) in the same amount.",
		Alternatives: []string{"napój", "mleko roślinne", "mleko sojowe", "mleko owsiane", "mleko migdałowe", "plant milk", "soy milk", "oat milk", "almond milk"},
	},
	{
		Key:          "wheat_flour",
		Triggers:     []string{"mąka pszenna", "mąki pszennej", "mąka tortowa", "mąka krupczatka", "wheat flour", "all-purpose flour", "plain flour"},
		Suggestion:   "Use rice flour or tapioca flour instead of wheat flour; add a little starch for binding.",
		Alternatives: []string{"mąka ryżowa", "mąka z tapioki", "tapiok", "skrobia", "rice flour", "tapioca", "cornstarch"},
	},
	{
		Key:          "sugar",
		Triggers:     []string{"cukier", "cukru", "sugar"},
		Excludes:     []string{"cukier puder", "icing sugar", "powdered sugar"},
		Suggestion:   "Use honey instead of sugar, about 3/4 of the amount, and reduce other liquids slightly.",
		Alternatives: []string{"miód", "honey", "syrop klonowy", "maple syrup", "ksylitol", "erytrytol"},
	},
	{
		Key:          "honey",
		Triggers:     []string{"miód", "miodu", "honey"},
		Suggestion:   "Use sugar or maple syrup instead of honey.",
		Alternatives: []string{"cukier", "sugar", "syrop klonowy", "maple syrup"},
	},
	{
		Key:          "tofu",
		Triggers:     []string{"tofu"},
		Suggestion:   "Use a firm cheese such as halloumi or paneer instead of tofu.",
		Alternatives: []string{" ser", "halloumi", "paneer", "cheese"},
	},
	{
		Key:          "cheese",
		Triggers:     []string{" ser", "cheese", "parmezan", "mozzarell", " feta", "twaróg"},
		Suggestion:   "Use tofu (smoked or marinated) instead of cheese, or nutritional yeast for flavour.",
		Alternatives: []string{"tofu", "drożdże nieaktywne", "nutritional yeast"},
	},
}

// keywordSet is a list of triggers plus the phrases that cancel them. A name
// matches when some trigger hits and no exclude does, so "mleko sojowe"
// stays clear of the lactose triggers it contains.
type keywordSet struct {
	Triggers []string
	Excludes []string
}

func (s keywordSet) matches(name string) bool {
	return containsAny(name, s.Triggers) && !containsAny(name, s.Excludes)
}

// allergenGroup maps a canonical allergen to the names a user may declare
// it under and the substrings that signal it in an ingredient name.
type allergenGroup struct {
	Key      string
	Aliases  []string
	Keywords keywordSet
}

var (
	gluten = keywordSet{
		Triggers: []string{
			"gluten", "pszen", "wheat", "żyt", "rye", "jęczm", "barley", "orkisz", "spelt",
			"owsian", " oat", "chleb", "bread", "bułk", "makaron", "pasta", "kasza manna",
			"semolina", "kuskus", "couscous", "bulgur", "seitan",
		},
		Excludes: []string{
			"bezglutenow", "bez glutenu", "gluten-free", "gluten free",
			"makaron ryżow", "makaron gryczan", "makaron kukurydzian", "makaron z ciecierzycy",
			"makaron z soczewicy", "rice noodle", "pasta pomidorowa", "pasta curry",
			"pasta sezamowa", "pasta jajeczn", "pasta z awokado", "pasta z ciecierzycy",
		},
	}
	lactose = keywordSet{
		Triggers: []string{
			"laktoz", "lactose", "mlek", "mleczn", "milk", " ser", "cheese",
			"śmietan", "cream", "masło", "masła", "butter", "jogurt", "yogurt", "yoghurt",
			"kefir", "maślank", "twaróg", "mascarpone", "mozzarell", "parmezan", " feta",
		},
		Excludes: []string{
			"bez laktozy", "bezlaktozow", "lactose-free", "lactose free", "dairy-free",
			"mleko owsian", "mleka owsian", "mleko sojow", "mleka sojow", "mleko migdał", "mleka migdał",
			"mleko ryżow", "mleka ryżow", "mleko kokos", "mleka kokos", "mleko roślin", "mleka roślin",
			"napój roślin", "oat milk", "soy milk", "almond milk", "rice milk", "coconut milk", "plant milk",
			"coconut cream", "masło orzechowe", "masło kakaowe", "masło shea", "peanut butter",
			"almond butter", "cocoa butter", "butternut", "cream of tartar", "kamień winny",
		},
	}
	eggs = keywordSet{
		Triggers: []string{"jajk", "jajo", "jaja", "jajecz", " egg", "majonez", "mayonnaise"},
		Excludes: []string{"eggplant", "bez jaj", "egg-free", "egg free", "majonez wegański", "vegan mayo"},
	}
	fish = keywordSet{
		Triggers: []string{
			"ryb", "fish", "łosoś", "łososi", "salmon", "tuńczyk", "tuna", "dorsz", " cod",
			"śledź", "śledzi", "herring", "makrel", "mackerel", "anchois", "anchov",
			"sardyn", "sardine", "pstrąg", "trout",
		},
	}
	shellfish = keywordSet{
		Triggers: []string{
			"krewet", "shrimp", "prawn", "krab", "crab", "homar", "lobster", "małż",
			"mussel", "clam", "ostryg", "oyster", "kalmar", "squid", "ośmiorni", "octopus",
		},
		Excludes: []string{"oyster mushroom", "oyster sauce"},
	}
	meat = keywordSet{
		Triggers: []string{
			"mięs", "meat", "wołow", "beef", "wieprz", "pork", "kurczak", "kurczę",
			"chicken", "indyk", "turkey", "kaczk", "duck", "boczek", "bacon", "szynk", " ham",
			"kiełbas", "sausage", "salami", "żelatyn", "gelatin", "smalec", "lard", "cielęc", "veal",
			"jagnię", "lamb",
		},
		Excludes: []string{
			"bezmięs", "mięso sojowe", "mięso roślinne", "plant-based meat", "meatless",
			"bulion warzywny", "lamb's lettuce", "roszponka",
		},
	}
	honey = keywordSet{
		Triggers: []string{"miód", "miodu", "honey"},
		Excludes: []string{"honeydew", "melon miodowy"},
	}
	nuts = keywordSet{
		Triggers: []string{
			"orzech", "migdał", "almond", " nut", "pistacj", "pistachio", "nerkow", "cashew",
			"laskow", "hazelnut", "pecan", "makadami", "macadamia",
		},
		Excludes: []string{"nutmeg", "nutrition", "gałka muszkatołowa"},
	}
)

var allergenGroups = []allergenGroup{
	{Key: "gluten", Aliases: []string{"gluten", "pszenica", "wheat", "zboża", "cereals"}, Keywords: gluten},
	{Key: "lactose", Aliases: []string{"laktoza", "lactose", "nabiał", "dairy", "mleko", "milk"}, Keywords: lactose},
	{Key: "peanuts", Aliases: []string{"orzeszki ziemne", "arachidy", "peanut", "peanuts"}, Keywords: keywordSet{
		Triggers: []string{"orzeszk", "arachid", "peanut", "masło orzechowe"},
	}},
	{Key: "nuts", Aliases: []string{"orzechy", "orzech", "nuts", "tree nuts"}, Keywords: nuts},
	{Key: "eggs", Aliases: []string{"jaja", "jajka", "jajko", "egg", "eggs"}, Keywords: eggs},
	{Key: "fish", Aliases: []string{"ryby", "ryba", "fish"}, Keywords: fish},
	{Key: "shellfish", Aliases: []string{"skorupiaki", "owoce morza", "shellfish", "seafood", "crustaceans"}, Keywords: shellfish},
	{Key: "soy", Aliases: []string{"soja", "soy", "soya"}, Keywords: keywordSet{
		Triggers: []string{"soj", "soy", "tofu", "edamame", "tempeh", "miso"},
		Excludes: []string{"bez soi", "soy-free", "soy free"},
	}},
	{Key: "sesame", Aliases: []string{"sezam", "sesame"}, Keywords: keywordSet{
		Triggers: []string{"sezam", "sesame", "tahini", "tahin"},
	}},
	{Key: "celery", Aliases: []string{"seler", "celery"}, Keywords: keywordSet{
		Triggers: []string{"seler", "celer"},
	}},
	{Key: "mustard", Aliases: []string{"gorczyca", "musztarda", "mustard"}, Keywords: keywordSet{
		Triggers: []string{"gorczyc", "musztard", "mustard"},
	}},
}

// dietRule forbids an ingredient when any of its keyword sets matches. The
// sets are checked one by one so an exclude only cancels its own triggers:
// "eggplant parmezan" is still not vegan.
type dietRule struct {
	Key       string
	Aliases   []string
	Forbidden []keywordSet
}

var dietRules = []dietRule{
	{
		Key:       "vegetarian",
		Aliases:   []string{"vegetarian", "wegetariańska", "wegetarianska", "wegetarianin", "wegetarianizm"},
		Forbidden: []keywordSet{meat, fish, shellfish},
	},
	{
		Key:       "vegan",
		Aliases:   []string{"vegan", "wegańska", "weganska", "weganin", "weganizm"},
		Forbidden: []keywordSet{meat, fish, shellfish, lactose, eggs, honey},
	},
	{
		Key:       "gluten-free",
		Aliases:   []string{"gluten-free", "gluten free", "bezglutenowa", "bez glutenu"},
		Forbidden: []keywordSet{gluten},
	},
	{
		Key:       "lactose-free",
		Aliases:   []string{"lactose-free", "lactose free", "dairy-free", "bezlaktozowa", "bez laktozy"},
		Forbidden: []keywordSet{lactose},
	},
	{
		Key:       "pescatarian",
		Aliases:   []string{"pescatarian", "peskatariańska", "peskatarianska", "peskatarianin"},
		Forbidden: []keywordSet{meat},
	},
	{
		Key:     "keto",
		Aliases: []string{"keto", "ketogenic", "ketogeniczna"},
		Forbidden: []keywordSet{{
			Triggers: []string{
				"cukier", "cukru", "sugar", "miód", "honey", "mąka", "flour", "ryż", "rice",
				"ziemniak", "potato", "makaron", "pasta", "chleb", "bread", "kasza",
			},
			Excludes: []string{
				"bez cukru", "sugar-free", "sugar free", "ryż kalafiorow", "cauliflower rice",
				"pasta pomidorowa", "pasta curry", "pasta sezamowa", "mąka migdałowa", "almond flour",
				"mąka kokosowa", "coconut flour",
			},
		}},
	},
}
