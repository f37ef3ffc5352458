package model

import "time"

// QuestionType classifies how a question is answered and graded.
type QuestionType string

const (
	// QuestionMultipleChoice is a lettered single-choice question.
	QuestionMultipleChoice QuestionType = "multiple-choice"
	// QuestionFillBlank is a fill-in-the-blank question, possibly drawing
	// from a section-level word bank.
	QuestionFillBlank QuestionType = "fill-blank"
	// QuestionWriting is a free-form writing task; excluded from objective
	// grading.
	QuestionWriting QuestionType = "writing"
	// QuestionUnknown is anything the extractor could not classify.
	QuestionUnknown QuestionType = "unknown"
)

// Option is one lettered choice, either per-question or in a section's
// shared word bank.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is a single exam question. Number is the stable join key used
// during reference reconciliation; it is unique within a section but not
// across the exam.
type Question struct {
	ID            string       `json:"id"`
	Number        int          `json:"number"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	UserAnswer    string       `json:"userAnswer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	Tapescript    string       `json:"tapescript,omitempty"`
	ScriptContext string       `json:"scriptContext,omitempty"`
	Context       string       `json:"context,omitempty"`
}

// ExamSection groups questions under one instruction block.
// SharedOptions is the word bank for banked-cloze sections; a question's
// CorrectAnswer may reference a SharedOptions label instead of inline text.
type ExamSection struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Instructions    string     `json:"instructions"`
	Content         string     `json:"content,omitempty"`
	Tapescript      string     `json:"tapescript,omitempty"`
	AudioSrc        string     `json:"audioSrc,omitempty"`
	SharedOptions   []Option   `json:"sharedOptions,omitempty"`
	Questions       []Question `json:"questions"`
	PassageAnalysis string     `json:"passageAnalysis,omitempty"`
}

// ExamData is one complete parsed exam, uniquely identified by ID.
type ExamData struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Sections []ExamSection `json:"sections"`
}

// ExamBatch is the extraction adapter's output for exam documents.
type ExamBatch struct {
	Exams []ExamData `json:"exams"`
}

// ReferenceData is one answer-key/tapescript record, keyed loosely by
// test number. Answers keys are digit-only strings; Tapescripts keys are
// free-text section labels as extracted, in document order.
type ReferenceData struct {
	TestID      string            `json:"testId"`
	Answers     map[string]string `json:"answers"`
	Tapescripts ScriptMap         `json:"tapescripts"`
}

// ReferenceBatch is the extraction adapter's output for answer-key
// documents.
type ReferenceBatch struct {
	Tests []ReferenceData `json:"tests"`
}

// VocabularyItem is one saved word in the study list.
type VocabularyItem struct {
	ID         int64     `json:"id,omitempty"`
	Word       string    `json:"word"`
	Phonetic   string    `json:"phonetic,omitempty"`
	Definition string    `json:"definition"`
	Example    string    `json:"example,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// ScoreResult is the outcome of grading one exam's objective questions.
type ScoreResult struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Collection    string // collection auto-loaded on startup, empty to skip
	BasePath      string // URL prefix for sub-path deployments (e.g. "/study")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}

// Clone returns a deep copy of the exam, independent of the receiver.
func (e ExamData) Clone() ExamData {
	out := e
	out.Sections = make([]ExamSection, len(e.Sections))
	for i, s := range e.Sections {
		out.Sections[i] = s.Clone()
	}
	return out
}

// Clone returns a deep copy of the section.
func (s ExamSection) Clone() ExamSection {
	out := s
	if s.SharedOptions != nil {
		out.SharedOptions = append([]Option(nil), s.SharedOptions...)
	}
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		out.Questions[i] = q
		if q.Options != nil {
			out.Questions[i].Options = append([]Option(nil), q.Options...)
		}
	}
	return out
}
