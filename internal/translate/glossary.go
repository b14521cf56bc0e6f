package translate

import "inkforge/internal/core"

// ExampleGlossary returns a small static glossary in the style of the
// original implementation's per-series term dictionaries: mostly pass-through
// proper nouns, with a handful of terms pinned to a specific rendering.
func ExampleGlossary(sourceLang, targetLang string) core.Glossary {
	return core.Glossary{
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		Terms: map[string]string{
			"Shadow Monarch": "Monarca de las Sombras",
			"Hunter's Guild": "Gremio de Cazadores",
			"Ashborn":        "Ashborn",
			"Igris":          "Igris",
			"Double Dungeon": "Mazmorra Doble",
		},
	}
}
