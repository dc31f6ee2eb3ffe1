package catalog

import "strings"

// Template is one entry of the service catalogue: the canonical service a
// provider can link their listing to.
type Template struct {
	ID           string `json:"id"`
	Icon         string `json:"icon"`
	Category     string `json:"category"`
	UnitType     string `json:"unitType"`
	ProviderTerm string `json:"providerTerm"`
}

var templates = map[string]Template{
	"Plumbing": {
		ID:           "Plumbing",
		Icon:         "🔧",
		Category:     "Home Repair",
		UnitType:     "hours",
		ProviderTerm: "Plumbers",
	},
	"Electrical": {
		ID:           "Electrical",
		Icon:         "💡",
		Category:     "Home Repair",
		UnitType:     "hours",
		ProviderTerm: "Electricians",
	},
	"Handyman": {
		ID:           "Handyman",
		Icon:         "🛠️",
		Category:     "Home Repair",
		UnitType:     "hours",
		ProviderTerm: "Handymen",
	},
	"Cleaning": {
		ID:           "Cleaning",
		Icon:         "🧹",
		Category:     "Domestic Services",
		UnitType:     "hours",
		ProviderTerm: "Cleaners",
	},
	"Laundry": {
		ID:           "Laundry",
		Icon:         "🧺",
		Category:     "Domestic Services",
		UnitType:     "kgs",
		ProviderTerm: "Laundry Providers",
	},
	"LawnCare": {
		ID:           "LawnCare",
		Icon:         "🌿",
		Category:     "Outdoor",
		UnitType:     "hours",
		ProviderTerm: "Gardeners",
	},
	"Painting": {
		ID:           "Painting",
		Icon:         "🎨",
		Category:     "Home Repair",
		UnitType:     "rooms",
		ProviderTerm: "Painters",
	},
}

// Get resolves a template by ID, case-insensitively.
func Get(id string) (Template, bool) {
	if t, ok := templates[id]; ok {
		return t, true
	}
	for key, t := range templates {
		if strings.EqualFold(key, id) {
			return t, true
		}
	}
	return Template{}, false
}

// MatchCategory returns all templates whose category matches the given name
// case-insensitively. Used as the fallback when no template ID matches.
func MatchCategory(category string) []Template {
	var out []Template
	for _, t := range templates {
		if strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	return out
}

// All returns every registered template.
func All() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	return out
}
