package content

// SectionKeys is the fixed set of editable content sections. Writes to any
// other key are rejected.
var SectionKeys = []string{
	"hero",
	"about",
	"collections",
	"materials",
	"contact",
	"settings",
	"seo",
}

// ValidSectionKey reports whether key belongs to the editable set.
func ValidSectionKey(key string) bool {
	for _, k := range SectionKeys {
		if k == key {
			return true
		}
	}
	return false
}

// DefaultSections is the seed content written by a full reset. Operators edit
// these in place; the reset endpoint restores them wholesale.
func DefaultSections() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"hero": {
			"title":    "Crafted for living",
			"subtitle": "Furniture made by hand, built to stay",
			"cta":      "Browse the catalog",
		},
		"about": {
			"heading": "Our workshop",
			"body":    "Every piece starts as raw timber in our Milan workshop and leaves as furniture meant to outlast trends.",
		},
		"collections": {
			"heading": "Collections",
			"intro":   "Three lines, one standard of making.",
		},
		"materials": {
			"heading": "Materials",
			"items": []interface{}{
				map[string]interface{}{"name": "Oak", "description": "Quarter-sawn European oak, oil finished."},
				map[string]interface{}{"name": "Walnut", "description": "American black walnut, hand rubbed."},
				map[string]interface{}{"name": "Linen", "description": "Stonewashed Belgian linen upholstery."},
			},
		},
		"contact": {
			"email":   "studio@vetrina.example",
			"phone":   "+39 02 0000 0000",
			"address": "Via Tortona 1, Milano",
		},
		"settings": {
			"currency":      "EUR",
			"show_prices":   true,
			"announcement":  "",
			"instagram_url": "",
		},
		"seo": {
			"title":       "Vetrina — handmade furniture",
			"description": "Handmade furniture from our Milan workshop.",
		},
	}
}

type defaultItem struct {
	Slug string
	Data map[string]interface{}
}

// DefaultCatalogItems is the seed catalog, inserted in order by a full reset.
func DefaultCatalogItems() []defaultItem {
	return []defaultItem{
		{
			Slug: "milano-sofa",
			Data: map[string]interface{}{
				"name":        "Milano Sofa",
				"price":       2400,
				"description": "Three-seat sofa in stonewashed linen over an oak frame.",
				"collection":  "living",
			},
		},
		{
			Slug: "tortona-table",
			Data: map[string]interface{}{
				"name":        "Tortona Table",
				"price":       1800,
				"description": "Dining table in quarter-sawn oak, seats eight.",
				"collection":  "dining",
			},
		},
		{
			Slug: "navigli-armchair",
			Data: map[string]interface{}{
				"name":        "Navigli Armchair",
				"price":       950,
				"description": "Walnut armchair with a woven seat.",
				"collection":  "living",
			},
		},
	}
}
