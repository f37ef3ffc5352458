package reconcile

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/examdesk/examdesk/internal/model"
)

const (
	// placeholderAnswer is what the extractor emits when a writing task
	// has no real model answer. Kept for compatibility with existing
	// extracted data; it makes a genuine correct answer of "A"
	// indistinguishable from "unset" for writing questions, so it lives
	// only here and in isPlaceholderAnswer.
	placeholderAnswer = "A"

	// minKeptAnswerLen is the shortest existing writing answer worth
	// protecting from an incoming answer-key token.
	minKeptAnswerLen = 5

	// longScriptLen separates a preceding passage/conversation block
	// (rendered before the question) from an inline answer rationale.
	longScriptLen = 50
)

// Apply merges the reference batch into the exams and returns the
// result. Inputs are never mutated; unmatched exams come back
// structurally unchanged. Missing matches at any level are silent
// no-ops, never errors.
func Apply(exams []model.ExamData, batch model.ReferenceBatch) []model.ExamData {
	out := make([]model.ExamData, len(exams))
	for i, exam := range exams {
		out[i] = applyToExam(exam, batch)
	}
	return out
}

func applyToExam(exam model.ExamData, batch model.ReferenceBatch) model.ExamData {
	num, ok := ExamNumber(exam)
	if !ok {
		return exam
	}

	ref, ok := findReference(batch, num)
	if !ok {
		return exam
	}

	merged := exam.Clone()
	for i := range merged.Sections {
		mergeSection(&merged.Sections[i], ref)
	}
	return merged
}

// findReference returns the first record whose testId encodes the given
// test number.
func findReference(batch model.ReferenceBatch, num int) (model.ReferenceData, bool) {
	for _, ref := range batch.Tests {
		if n, ok := LeadingInt(ref.TestID); ok && n == num {
			return ref, true
		}
	}
	return model.ReferenceData{}, false
}

func mergeSection(sec *model.ExamSection, ref model.ReferenceData) {
	writing := isWritingSection(*sec)
	listening := isListeningSection(*sec)

	// Section-level tapescript: first label in document order that
	// substring-matches the section title, either direction.
	sectionScript, hasSectionScript := findSectionScript(sec.Title, ref.Tapescripts)
	if hasSectionScript {
		sec.Tapescript = sectionScript
	}

	for i := range sec.Questions {
		q := &sec.Questions[i]
		key := strconv.Itoa(q.Number)

		if answer, ok := ref.Answers[key]; ok {
			if writing {
				if isPlaceholderAnswer(q.CorrectAnswer) {
					q.CorrectAnswer = answer
				}
				// The section tapescript carries the full model essay and
				// outranks any short answer-key token.
				if hasSectionScript {
					q.CorrectAnswer = sectionScript
				}
			} else {
				q.CorrectAnswer = answer
			}
		}

		// Independently of the answer merge, a tapescript keyed by this
		// exact question number carries per-question script material.
		script, ok := findQuestionScript(key, ref.Tapescripts)
		if !ok {
			continue
		}
		switch {
		case listening && strings.Contains(strings.ToLower(sec.Title), "section a"):
			// Section A listening scripts double as playback text and the
			// canonical explanation.
			q.Tapescript = script
			q.Explanation = script
		case utf8.RuneCountInString(script) > longScriptLen:
			q.ScriptContext = script
		default:
			q.Explanation = script
		}
	}
}

// isPlaceholderAnswer reports whether an existing writing answer may be
// overwritten: absent, too short to be a real sample answer, or the
// extractor's "A" default.
func isPlaceholderAnswer(existing string) bool {
	return existing == "" ||
		utf8.RuneCountInString(existing) < minKeptAnswerLen ||
		existing == placeholderAnswer
}

func isWritingSection(sec model.ExamSection) bool {
	if strings.Contains(strings.ToLower(sec.Title), "writing") {
		return true
	}
	for _, q := range sec.Questions {
		if q.Type == model.QuestionWriting {
			return true
		}
	}
	return false
}

func isListeningSection(sec model.ExamSection) bool {
	return strings.Contains(strings.ToLower(sec.Title), "listening")
}

func findSectionScript(title string, scripts model.ScriptMap) (string, bool) {
	for _, e := range scripts {
		if containsEither(title, e.Key) {
			return e.Text, true
		}
	}
	return "", false
}

// findQuestionScript looks for a label whose digit-stripped form equals
// the question's number exactly. Labels with no digits never match.
func findQuestionScript(digitKey string, scripts model.ScriptMap) (string, bool) {
	for _, e := range scripts {
		if k := DigitKey(e.Key); k != "" && k == digitKey {
			return e.Text, true
		}
	}
	return "", false
}
