// Package session holds one exam's live answer state.
package session

import (
	"fmt"

	"github.com/examdesk/examdesk/internal/grade"
	"github.com/examdesk/examdesk/internal/model"
)

// Session tracks a user's in-progress answers for a single exam. It
// owns its own clone of the exam; the catalog copy is untouched until
// the controller writes answers back.
type Session struct {
	exam model.ExamData
}

// New starts a session over a private copy of the exam.
func New(exam model.ExamData) *Session {
	return &Session{exam: exam.Clone()}
}

// Exam returns a snapshot of the exam with current answers filled in.
func (s *Session) Exam() model.ExamData {
	return s.exam.Clone()
}

// SetAnswer records the user's answer for the question with the given
// number in the given section.
func (s *Session) SetAnswer(sectionID string, questionNumber int, answer string) error {
	for i := range s.exam.Sections {
		sec := &s.exam.Sections[i]
		if sec.ID != sectionID {
			continue
		}
		for j := range sec.Questions {
			if sec.Questions[j].Number == questionNumber {
				sec.Questions[j].UserAnswer = answer
				return nil
			}
		}
		return fmt.Errorf("question %d not found in section %s", questionNumber, sectionID)
	}
	return fmt.Errorf("section %s not found", sectionID)
}

// Reset clears all user answers.
func (s *Session) Reset() {
	for i := range s.exam.Sections {
		for j := range s.exam.Sections[i].Questions {
			s.exam.Sections[i].Questions[j].UserAnswer = ""
		}
	}
}

// Answered returns how many questions currently have an answer.
func (s *Session) Answered() int {
	n := 0
	for _, sec := range s.exam.Sections {
		for _, q := range sec.Questions {
			if q.UserAnswer != "" {
				n++
			}
		}
	}
	return n
}

// Score grades the current answer state.
func (s *Session) Score() model.ScoreResult {
	return grade.Score(s.exam)
}
