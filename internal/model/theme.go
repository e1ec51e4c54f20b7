package model

// ColorTheme is a named palette used by chart payloads.
type ColorTheme struct {
	Primary   string   `json:"primary"`
	Secondary string   `json:"secondary"`
	Gradient  []string `json:"gradient"`
}

// DefaultColorTheme is used when a widget names an unknown theme.
const DefaultColorTheme = "teal"

var colorThemes = map[string]ColorTheme{
	"teal":   {Primary: "#00D4AA", Secondary: "#00B894", Gradient: []string{"#00D4AA", "#00B894", "#00A383"}},
	"amber":  {Primary: "#F5A623", Secondary: "#E6951A", Gradient: []string{"#F5A623", "#E6951A", "#D4840F"}},
	"purple": {Primary: "#A855F7", Secondary: "#9333EA", Gradient: []string{"#A855F7", "#9333EA", "#7C3AED"}},
	"rose":   {Primary: "#F43F5E", Secondary: "#E11D48", Gradient: []string{"#F43F5E", "#E11D48", "#BE123C"}},
	"cyan":   {Primary: "#06B6D4", Secondary: "#0891B2", Gradient: []string{"#06B6D4", "#0891B2", "#0E7490"}},
}

// LookupColorTheme returns the named theme, falling back to teal.
func LookupColorTheme(name string) (string, ColorTheme) {
	if t, ok := colorThemes[name]; ok {
		return name, t
	}
	return DefaultColorTheme, colorThemes[DefaultColorTheme]
}
