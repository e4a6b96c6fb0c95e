package codegen

import (
	"embed"
	"fmt"
	"io/fs"

	"appsmith/common"

	"github.com/cbroglie/mustache"
)

func init() {
	mustache.AllowMissingVariables = false
}

//go:embed prompts/*
var promptsFS embed.FS

// PromptData parameterizes the generation prompts.
type PromptData struct {
	HTTPPort    int
	DatasetPath string
}

func panicParseMustache(fileSystem fs.ReadFileFS, templateName string) *mustache.Template {
	templatePath := fmt.Sprintf("prompts/%s.mustache", templateName)
	templateBytes, err := fileSystem.ReadFile(templatePath)
	if err != nil {
		panic(err)
	}

	template, err := mustache.ParseString(string(templateBytes))
	if err != nil {
		panic(err)
	}
	return template
}

func promptSet(artifact string) map[common.Language]*mustache.Template {
	return map[common.Language]*mustache.Template{
		common.Python: panicParseMustache(promptsFS, "python/"+artifact),
		common.Julia:  panicParseMustache(promptsFS, "julia/"+artifact),
		common.HTML:   panicParseMustache(promptsFS, "html/"+artifact),
	}
}

var (
	codePrompts = promptSet("code")
	testPrompts = promptSet("tests")
	docPrompts  = promptSet("docs")
)

func renderPrompt(template *mustache.Template, data interface{}) string {
	result, err := template.Render(data)
	if err != nil {
		panic(err)
	}
	return result
}

// CodePrompt is the generation prompt for the application artifact.
func CodePrompt(language common.Language, data PromptData) string {
	return renderPrompt(codePrompts[language], data)
}

// TestsPrompt is the generation prompt for the test-suite artifact.
func TestsPrompt(language common.Language, data PromptData) string {
	return renderPrompt(testPrompts[language], data)
}

// DocsPrompt is the generation prompt for the README artifact.
func DocsPrompt(language common.Language, data PromptData) string {
	return renderPrompt(docPrompts[language], data)
}
