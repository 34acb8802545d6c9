package genstudio

import "sort"

// ModelDemo is the friendly name of the lightweight placeholder model
// present in every catalog.
const ModelDemo = "Demo Mode"

// Catalog is a static mapping from friendly model names to canonical model
// identifiers. Unknown names pass through unchanged, so a caller may hand a
// canonical identifier directly to Session.Load.
type Catalog map[string]string

// Resolve returns the canonical identifier for a friendly name.
func (c Catalog) Resolve(name string) string {
	if id, ok := c[name]; ok {
		return id
	}
	return name
}

// Names returns the friendly names in the catalog, sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultTextCatalog returns the built-in text model catalog.
func DefaultTextCatalog() Catalog {
	return Catalog{
		ModelDemo:      "distilgpt2",
		"GPT-J 6B":     "EleutherAI/gpt-j-6B",
		"GPT-Neo 2.7B": "EleutherAI/gpt-neo-2.7B",
		"GPT-Neo 1.3B": "EleutherAI/gpt-neo-1.3B",
		"DialoGPT":     "microsoft/DialoGPT-medium",
	}
}

// DefaultImageCatalog returns the built-in image model catalog.
func DefaultImageCatalog() Catalog {
	return Catalog{
		ModelDemo:               "CompVis/stable-diffusion-v1-4",
		"Stable Diffusion v1.5": "runwayml/stable-diffusion-v1-5",
		"Stable Diffusion v2.1": "stabilityai/stable-diffusion-2-1",
		"Stable Diffusion XL":   "stabilityai/stable-diffusion-xl-base-1.0",
		"Waifu Diffusion":       "hakurei/waifu-diffusion",
		"Realistic Vision v4.0": "SG161222/Realistic_Vision_V4.0",
		"DreamShaper v8":        "Lykon/DreamShaper-v8",
	}
}
