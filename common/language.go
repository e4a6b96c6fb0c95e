package common

import "fmt"

// Language is one of the target languages appsmith can synthesize an
// application for. The set is fixed: there is no plugin mechanism for
// additional languages.
type Language string

const (
	Python Language = "python"
	Julia  Language = "julia"
	HTML   Language = "html"
)

func StringToLanguage(lang string) (Language, error) {
	switch lang {
	case "python":
		return Python, nil
	case "julia":
		return Julia, nil
	case "html":
		return HTML, nil
	default:
		return "", fmt.Errorf("unsupported language: %q (must be python, julia or html)", lang)
	}
}

// ArtifactFile is the path, relative to the repository root, that the
// generated application source is written to.
func (l Language) ArtifactFile() string {
	switch l {
	case Python:
		return "app.py"
	case HTML:
		return "index.html"
	default:
		return "app.jl"
	}
}

// TestFile is the path, relative to the repository root, that the generated
// test suite is written to.
func (l Language) TestFile() string {
	switch l {
	case Python:
		return "tests/python/test_app.py"
	case HTML:
		return "tests/html/test_index.test.js"
	default:
		return "tests/julia/test_app.jl"
	}
}

// TestDir is the directory holding the generated test suite.
func (l Language) TestDir() string {
	return "tests/" + string(l)
}

// CodeLanguage is the language the generated code and its fences are
// actually written in. HTML apps are tested with Jest, so their test
// artifacts are JavaScript.
func (l Language) TestCodeLanguage() Language {
	if l == HTML {
		return Language("javascript")
	}
	return l
}

// ManifestFile is the dependency manifest committed alongside the artifacts.
func (l Language) ManifestFile() string {
	switch l {
	case Python:
		return "requirements.txt"
	case HTML:
		return "package.json"
	default:
		return "Project.toml"
	}
}

// UsesDataset reports whether the generated application for this language
// reads the supporting CSV dataset.
func (l Language) UsesDataset() bool {
	return l == Python || l == HTML
}
