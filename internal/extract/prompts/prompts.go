// Package prompts builds the system prompts sent to the extraction
// backend. Templates live in templates/ and are parsed once.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"sync"
	"text/template"

	"github.com/examdesk/examdesk/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		for _, name := range []string{"extract_exam", "extract_reference", "define_word", "explain_answer"} {
			content, err := templateFS.ReadFile("templates/" + name + ".txt")
			if err != nil {
				loadErr = fmt.Errorf("read prompt template %s: %w", name, err)
				return
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[name] = tmpl
		}
	})
	return loadErr
}

func build(name string, data any) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

// ExtractExam returns the system prompt for exam document extraction.
func ExtractExam() (string, error) {
	return build("extract_exam", nil)
}

// ExtractReference returns the system prompt for answer-key/tapescript
// extraction.
func ExtractReference() (string, error) {
	return build("extract_reference", nil)
}

// DefineData holds template data for word definition prompts.
type DefineData struct {
	Word    string
	Passage string
}

// DefineWord returns the prompt asking for a learner definition of a
// word, optionally in the context of a passage.
func DefineWord(data DefineData) (string, error) {
	return build("define_word", data)
}

// ExplainData holds template data for answer explanation prompts.
type ExplainData struct {
	SectionTitle  string
	Content       string
	Number        int
	Text          string
	Options       []model.Option
	Tapescript    string
	CorrectAnswer string
}

// ExplainAnswer returns the prompt asking why a question's correct
// answer is right.
func ExplainAnswer(data ExplainData) (string, error) {
	return build("explain_answer", data)
}
