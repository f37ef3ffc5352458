package reconcile

import (
	"reflect"
	"strings"
	"testing"

	"github.com/examdesk/examdesk/internal/model"
)

func sampleExam() model.ExamData {
	return model.ExamData{
		ID:    "test-1",
		Title: "CET-4 Test 1",
		Sections: []model.ExamSection{
			{
				ID:    "s1",
				Title: "Part I Listening Comprehension Section A",
				Questions: []model.Question{
					{ID: "q1", Number: 1, Type: model.QuestionMultipleChoice},
					{ID: "q2", Number: 2, Type: model.QuestionMultipleChoice},
					{ID: "q3", Number: 3, Type: model.QuestionMultipleChoice},
				},
			},
			{
				ID:    "s2",
				Title: "Part IV Writing",
				Questions: []model.Question{
					{ID: "q47", Number: 47, Type: model.QuestionWriting},
				},
			},
		},
	}
}

func TestApplyMatchesByTestNumber(t *testing.T) {
	exams := []model.ExamData{sampleExam()}
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{TestID: "Answer Key Test 2", Answers: map[string]string{"1": "D"}},
		{TestID: "Answer Key Test 1", Answers: map[string]string{"1": "B", "2": "C"}},
	}}

	got := Apply(exams, batch)

	if got[0].Sections[0].Questions[0].CorrectAnswer != "B" {
		t.Errorf("q1 answer = %q, want B", got[0].Sections[0].Questions[0].CorrectAnswer)
	}
	if got[0].Sections[0].Questions[1].CorrectAnswer != "C" {
		t.Errorf("q2 answer = %q, want C", got[0].Sections[0].Questions[1].CorrectAnswer)
	}
	// Input must not be mutated.
	if exams[0].Sections[0].Questions[0].CorrectAnswer != "" {
		t.Error("Apply mutated its input")
	}
}

func TestApplyUnmatchedExamPassesThrough(t *testing.T) {
	noNumber := model.ExamData{
		ID:    "mock-paper",
		Title: "Unnumbered Mock Paper",
		Sections: []model.ExamSection{
			{ID: "s1", Title: "Part I", Questions: []model.Question{{Number: 1}}},
		},
	}
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{TestID: "Test 1", Answers: map[string]string{"1": "A"}},
	}}

	got := Apply([]model.ExamData{noNumber}, batch)
	if !reflect.DeepEqual(got[0], noNumber) {
		t.Error("exam without extractable number should be returned unchanged")
	}

	// Numbered exam with no matching record also passes through.
	numbered := sampleExam()
	got = Apply([]model.ExamData{numbered}, model.ReferenceBatch{Tests: []model.ReferenceData{
		{TestID: "Test 99", Answers: map[string]string{"1": "A"}},
	}})
	if !reflect.DeepEqual(got[0], numbered) {
		t.Error("exam with no matching reference should be returned unchanged")
	}
}

func TestApplyIdempotent(t *testing.T) {
	exams := []model.ExamData{sampleExam()}
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{
			TestID:  "Test 1",
			Answers: map[string]string{"1": "B", "2": "C", "3": "D"},
			Tapescripts: model.ScriptMap{
				{Key: "Section A", Text: "W: Where is the library? M: Across the street."},
			},
		},
	}}

	once := Apply(exams, batch)
	twice := Apply(once, batch)

	if !reflect.DeepEqual(once, twice) {
		t.Error("applying the same batch twice changed the result")
	}
}

func TestWritingAnswerOverrideRules(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		incoming string
		want     string
	}{
		{"placeholder A is replaced", "A", "A well-structured essay should...", "A well-structured essay should..."},
		{"empty is replaced", "", "Model essay text here", "Model essay text here"},
		{"short junk is replaced", "n/a", "Model essay text here", "Model essay text here"},
		{"real essay is kept", "This is my full 300-word model essay...", "B", "This is my full 300-word model essay..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exam := model.ExamData{
				ID:    "test-5",
				Title: "Test 5",
				Sections: []model.ExamSection{{
					ID:    "w",
					Title: "Part IV Writing",
					Questions: []model.Question{
						{Number: 47, Type: model.QuestionWriting, CorrectAnswer: tt.existing},
					},
				}},
			}
			batch := model.ReferenceBatch{Tests: []model.ReferenceData{
				{TestID: "Test 5", Answers: map[string]string{"47": tt.incoming}},
			}}

			got := Apply([]model.ExamData{exam}, batch)
			if ans := got[0].Sections[0].Questions[0].CorrectAnswer; ans != tt.want {
				t.Errorf("correctAnswer = %q, want %q", ans, tt.want)
			}
		})
	}
}

func TestWritingTapescriptOutranksAnswerKey(t *testing.T) {
	essay := "Directions: write an essay... Sample: " + strings.Repeat("x", 100)
	exam := model.ExamData{
		ID:    "test-5",
		Title: "Test 5",
		Sections: []model.ExamSection{{
			ID:    "w",
			Title: "Part IV Writing",
			Questions: []model.Question{
				{Number: 47, Type: model.QuestionWriting, CorrectAnswer: "This existing essay answer is long enough to keep."},
			},
		}},
	}
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{
			TestID:      "Test 5",
			Answers:     map[string]string{"47": "B"},
			Tapescripts: model.ScriptMap{{Key: "Writing", Text: essay}},
		},
	}}

	got := Apply([]model.ExamData{exam}, batch)
	sec := got[0].Sections[0]
	if sec.Tapescript != essay {
		t.Error("writing section should carry the matched tapescript")
	}
	if sec.Questions[0].CorrectAnswer != essay {
		t.Errorf("section tapescript should override writing answer, got %q", sec.Questions[0].CorrectAnswer)
	}
}

func TestSectionAListeningScriptDoublesAsExplanation(t *testing.T) {
	exam := sampleExam()
	script := "M: Did you catch the train? W: No, I overslept again this morning."
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{
			TestID:      "Test 1",
			Tapescripts: model.ScriptMap{{Key: "3", Text: script}},
		},
	}}

	got := Apply([]model.ExamData{exam}, batch)
	q := got[0].Sections[0].Questions[2]
	if q.Tapescript != script {
		t.Errorf("q3 tapescript = %q, want script", q.Tapescript)
	}
	if q.Explanation != script {
		t.Errorf("q3 explanation = %q, want script", q.Explanation)
	}
}

func TestScriptLengthClassification(t *testing.T) {
	long := strings.Repeat("a", 80)
	short := strings.Repeat("b", 30)
	exam := model.ExamData{
		ID:    "test-2",
		Title: "Test 2",
		Sections: []model.ExamSection{{
			ID:    "s1",
			Title: "Part II Listening Comprehension Section B",
			Questions: []model.Question{
				{Number: 10, Type: model.QuestionMultipleChoice},
				{Number: 11, Type: model.QuestionMultipleChoice},
			},
		}},
	}
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{
			TestID: "Test 2",
			Tapescripts: model.ScriptMap{
				{Key: "10", Text: long},
				{Key: "11", Text: short},
			},
		},
	}}

	got := Apply([]model.ExamData{exam}, batch)
	qs := got[0].Sections[0].Questions
	if qs[0].ScriptContext != long || qs[0].Explanation != "" {
		t.Errorf("80-char script should go to scriptContext, got context=%q explanation=%q",
			qs[0].ScriptContext, qs[0].Explanation)
	}
	if qs[1].Explanation != short || qs[1].ScriptContext != "" {
		t.Errorf("30-char script should go to explanation, got context=%q explanation=%q",
			qs[1].ScriptContext, qs[1].Explanation)
	}
}

func TestSectionScriptFirstKeyWins(t *testing.T) {
	exam := model.ExamData{
		ID:    "test-3",
		Title: "Test 3",
		Sections: []model.ExamSection{{
			ID:        "s1",
			Title:     "Part I Listening Comprehension Section A",
			Questions: []model.Question{{Number: 1}},
		}},
	}
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{
			TestID: "Test 3",
			Tapescripts: model.ScriptMap{
				{Key: "Section A", Text: "first match"},
				{Key: "Listening Comprehension", Text: "second match"},
			},
		},
	}}

	got := Apply([]model.ExamData{exam}, batch)
	if ts := got[0].Sections[0].Tapescript; ts != "first match" {
		t.Errorf("section tapescript = %q, want first key in document order", ts)
	}
}

func TestEmptyReferenceIsNoOp(t *testing.T) {
	exam := sampleExam()
	batch := model.ReferenceBatch{Tests: []model.ReferenceData{
		{TestID: "Test 1"},
	}}

	got := Apply([]model.ExamData{exam}, batch)
	if !reflect.DeepEqual(got[0], exam) {
		t.Error("empty answers/tapescripts should contribute no merges")
	}
}
