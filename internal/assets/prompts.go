// Package assets provides embedded static assets for the application.
//
// Prompt templates live under prompts/ and the filter catalogs under
// filters/; both are embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// --- Filter catalogs (YAML, parsed by internal/filter) ---

// CityFilters is the street filter catalog.
//
//go:embed filters/city.yaml
var CityFilters []byte

// HomeFilters is the room filter catalog.
//
//go:embed filters/home.yaml
var HomeFilters []byte

// --- Edit instruction templates ---

//go:embed prompts/city-edit.txt
var cityEditTemplate string

//go:embed prompts/home-edit.txt
var homeEditTemplate string

// Pre-parsed templates. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var (
	cityEditTmpl = template.Must(template.New("city").Parse(cityEditTemplate))
	homeEditTmpl = template.Must(template.New("home").Parse(homeEditTemplate))
)

// EditPromptData holds the dynamic data injected into edit templates.
type EditPromptData struct {
	// Instructions are the selected filter fragments, one bullet each.
	Instructions []string
}

// RenderCityEditPrompt wraps the instructions in the civic-renewal framing.
func RenderCityEditPrompt(instructions []string) string {
	return renderTemplate(cityEditTmpl, instructions)
}

// RenderHomeEditPrompt wraps the instructions in the interior-design framing.
func RenderHomeEditPrompt(instructions []string) string {
	return renderTemplate(homeEditTmpl, instructions)
}

func renderTemplate(tmpl *template.Template, instructions []string) string {
	var buf bytes.Buffer
	// The templates only range over strings; execution cannot fail on them.
	_ = tmpl.Execute(&buf, EditPromptData{Instructions: instructions})
	return buf.String()
}
