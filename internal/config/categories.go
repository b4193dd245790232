package config

// Command categories, as shown by help.
const (
	CategoryInformation = "🕯️ Information"
	CategoryLookup      = "🔎 Lookup"
	CategoryUtilities   = "📢 Utilities"
	CategoryCleanup     = "🧹 Cleanup"
)

// CategoryWeights orders categories in help output; lower comes first.
// Unknown categories sort last.
var CategoryWeights = map[string]int{
	CategoryInformation: 0,
	CategoryLookup:      10,
	CategoryUtilities:   20,
	CategoryCleanup:     45,
}

// CategoryWeight returns the help position of a category.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 1 << 20
}
