package app

import (
	"testing"

	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st)
}

func testExams() []model.ExamData {
	return []model.ExamData{{
		ID:    "test-1",
		Title: "Test 1",
		Sections: []model.ExamSection{{
			ID:    "s1",
			Title: "Part II Reading",
			Questions: []model.Question{
				{Number: 1, Type: model.QuestionMultipleChoice},
				{Number: 2, Type: model.QuestionMultipleChoice},
			},
		}},
	}}
}

func TestStaleExtractionIsDiscarded(t *testing.T) {
	s := newTestState(t)

	first := s.BeginExtraction()
	second := s.BeginExtraction()

	if applied := s.AppendExams(first, testExams()); applied {
		t.Error("stale extraction result should be discarded")
	}
	if s.catalog.Len() != 0 {
		t.Error("catalog should be empty after discarded result")
	}

	if applied := s.AppendExams(second, testExams()); !applied {
		t.Error("current extraction result should be applied")
	}
	if s.catalog.Len() != 1 {
		t.Errorf("catalog len = %d, want 1", s.catalog.Len())
	}
}

func TestApplyReferenceMergesAndKeepsAnswers(t *testing.T) {
	s := newTestState(t)
	id := s.BeginExtraction()
	s.AppendExams(id, testExams())

	if err := s.SetAnswer("test-1", "s1", 1, "B"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	s.ApplyReferenceNow(model.ReferenceBatch{Tests: []model.ReferenceData{
		{TestID: "Test 1", Answers: map[string]string{"1": "B", "2": "C"}},
	}})

	exam, ok := s.Exam("test-1")
	if !ok {
		t.Fatal("exam missing after merge")
	}
	q1 := exam.Sections[0].Questions[0]
	if q1.CorrectAnswer != "B" {
		t.Errorf("q1 correctAnswer = %q, want B", q1.CorrectAnswer)
	}
	if q1.UserAnswer != "B" {
		t.Errorf("q1 userAnswer = %q, merge should preserve session answers", q1.UserAnswer)
	}

	res, err := s.Score("test-1")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Correct != 1 || res.Total != 2 {
		t.Errorf("score = %+v, want 1/2", res)
	}
}

func TestCollectionRoundTripThroughStore(t *testing.T) {
	s := newTestState(t)
	id := s.BeginExtraction()
	s.AppendExams(id, testExams())
	_ = s.SetAnswer("test-1", "s1", 1, "A")

	if err := s.SaveCollection("mine"); err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}

	// A fresh state loads the collection, answers included.
	s2 := New(s.Store())
	if err := s2.LoadCollection("mine"); err != nil {
		t.Fatalf("LoadCollection: %v", err)
	}
	exam, ok := s2.Exam("test-1")
	if !ok {
		t.Fatal("exam missing after load")
	}
	if exam.Sections[0].Questions[0].UserAnswer != "A" {
		t.Error("saved collection should carry session answers")
	}
}

func TestLoadCollectionInvalidatesInflight(t *testing.T) {
	s := newTestState(t)
	_ = s.Store().SaveCollection("empty", nil)

	id := s.BeginExtraction()
	if err := s.LoadCollection("empty"); err != nil {
		t.Fatalf("LoadCollection: %v", err)
	}
	if applied := s.AppendExams(id, testExams()); applied {
		t.Error("extraction started before a reload should be stale")
	}
}

func TestResetAnswers(t *testing.T) {
	s := newTestState(t)
	id := s.BeginExtraction()
	s.AppendExams(id, testExams())
	_ = s.SetAnswer("test-1", "s1", 1, "A")

	s.ResetAnswers("test-1")
	exam, _ := s.Exam("test-1")
	if exam.Sections[0].Questions[0].UserAnswer != "" {
		t.Error("ResetAnswers should clear user answers")
	}
}
