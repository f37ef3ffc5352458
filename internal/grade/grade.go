// Package grade scores one exam's current answer state.
package grade

import (
	"strings"
	"unicode/utf8"

	"github.com/examdesk/examdesk/internal/model"
)

// Score computes the number of correctly answered objective questions.
// Writing questions are excluded from the total; everything else counts
// whether answered or not.
func Score(exam model.ExamData) model.ScoreResult {
	var res model.ScoreResult
	for _, sec := range exam.Sections {
		for _, q := range sec.Questions {
			if q.Type == model.QuestionWriting {
				continue
			}
			res.Total++
			if isCorrect(sec, q) {
				res.Correct++
			}
		}
	}
	return res
}

func isCorrect(sec model.ExamSection, q model.Question) bool {
	user := normalize(q.UserAnswer)
	correct := normalize(q.CorrectAnswer)
	if user == "" || correct == "" {
		return false
	}

	// A banked-cloze answer longer than one character is the option's
	// full text; resolve it back to its label before comparing.
	if len(sec.SharedOptions) > 0 && utf8.RuneCountInString(user) > 1 {
		user = resolveLabel(sec.SharedOptions, user)
	}

	if user == correct {
		return true
	}
	// Handles correct answers stored as "A. full option text" against a
	// bare "a" from the user.
	return strings.HasPrefix(correct, user+".")
}

// resolveLabel maps full option text back to its label, or returns the
// answer unchanged when no option text matches.
func resolveLabel(options []model.Option, answer string) string {
	for _, opt := range options {
		if normalize(opt.Text) == answer {
			return normalize(opt.Label)
		}
	}
	return answer
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
