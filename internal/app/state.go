// Package app owns the live application state: the exam catalog, active
// answer sessions, and the load/save boundaries to the store. The pure
// components (reconcile, grade, catalog) never touch persistence; all
// of that goes through here.
package app

import (
	"fmt"
	"sync"

	"github.com/examdesk/examdesk/internal/catalog"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/reconcile"
	"github.com/examdesk/examdesk/internal/session"
	"github.com/examdesk/examdesk/internal/store"
)

// State is the single owner of mutable application state.
type State struct {
	mu       sync.Mutex
	store    *store.Store
	catalog  *catalog.Catalog
	sessions map[string]*session.Session

	// extractSeq implements the single-slot in-flight extraction guard:
	// each new extraction bumps the sequence, and a completion is only
	// applied while its id is still current. A slow LLM response can
	// therefore never clobber the result of a request started after it.
	extractSeq uint64
}

// New creates the application state backed by the given store.
func New(st *store.Store) *State {
	return &State{
		store:    st,
		catalog:  catalog.New(nil),
		sessions: make(map[string]*session.Session),
	}
}

// BeginExtraction registers a new in-flight extraction and returns its
// id. Any previously issued id becomes stale.
func (s *State) BeginExtraction() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractSeq++
	return s.extractSeq
}

// stillCurrent must be called with the lock held.
func (s *State) stillCurrent(id uint64) bool {
	return id == s.extractSeq
}

// AppendExams merges newly extracted exams into the catalog if the
// request id is still current. It reports whether the result was
// applied.
func (s *State) AppendExams(id uint64, exams []model.ExamData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stillCurrent(id) {
		return false
	}
	s.catalog.Append(exams)
	return true
}

// ApplyReference reconciles the reference batch into the catalog if the
// request id is still current. It reports whether the result was
// applied.
func (s *State) ApplyReference(id uint64, batch model.ReferenceBatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stillCurrent(id) {
		return false
	}
	s.applyReferenceLocked(batch)
	return true
}

// ApplyReferenceNow reconciles without a request id, for the repair
// path where the batch came from pasted text rather than an async
// extraction.
func (s *State) ApplyReferenceNow(batch model.ReferenceBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyReferenceLocked(batch)
}

func (s *State) applyReferenceLocked(batch model.ReferenceBatch) {
	merged := reconcile.Apply(s.catalog.List(), batch)
	s.catalog.Replace(merged)
	// Sessions keep their own clones; restart them over merged exams so
	// answers land on the updated questions.
	for id := range s.sessions {
		if exam, ok := s.catalog.Get(id); ok {
			s.sessions[id] = restoreAnswers(s.sessions[id], exam)
		}
	}
}

// restoreAnswers carries a session's answers over to a freshly merged
// exam.
func restoreAnswers(old *session.Session, exam model.ExamData) *session.Session {
	fresh := session.New(exam)
	for _, sec := range old.Exam().Sections {
		for _, q := range sec.Questions {
			if q.UserAnswer != "" {
				_ = fresh.SetAnswer(sec.ID, q.Number, q.UserAnswer)
			}
		}
	}
	return fresh
}

// Exams returns a snapshot of the catalog contents.
func (s *State) Exams() []model.ExamData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ExamData, s.catalog.Len())
	for i, e := range s.catalog.List() {
		out[i] = e.Clone()
	}
	return out
}

// Exam returns the named exam with any session answers applied.
func (s *State) Exam(id string) (model.ExamData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.Exam(), true
	}
	exam, ok := s.catalog.Get(id)
	if !ok {
		return model.ExamData{}, false
	}
	return exam.Clone(), true
}

// SetAnswer records a user answer, creating the exam's session on first
// use.
func (s *State) SetAnswer(examID, sectionID string, questionNumber int, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[examID]
	if !ok {
		exam, found := s.catalog.Get(examID)
		if !found {
			return fmt.Errorf("exam %s not found", examID)
		}
		sess = session.New(exam)
		s.sessions[examID] = sess
	}
	return sess.SetAnswer(sectionID, questionNumber, answer)
}

// ResetAnswers clears the exam's session answers.
func (s *State) ResetAnswers(examID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[examID]; ok {
		sess.Reset()
	}
}

// Score grades the exam's current answer state.
func (s *State) Score(examID string) (model.ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[examID]; ok {
		return sess.Score(), nil
	}
	exam, ok := s.catalog.Get(examID)
	if !ok {
		return model.ScoreResult{}, fmt.Errorf("exam %s not found", examID)
	}
	return session.New(exam).Score(), nil
}

// SaveCollection persists the catalog (with session answers folded in)
// under the given name.
func (s *State) SaveCollection(name string) error {
	s.mu.Lock()
	for id, sess := range s.sessions {
		if _, ok := s.catalog.Get(id); ok {
			s.catalog.SetExam(sess.Exam())
		}
	}
	exams := make([]model.ExamData, s.catalog.Len())
	for i, e := range s.catalog.List() {
		exams[i] = e.Clone()
	}
	s.mu.Unlock()

	return s.store.SaveCollection(name, exams)
}

// LoadCollection replaces the catalog with the stored collection and
// drops all sessions.
func (s *State) LoadCollection(name string) error {
	exams, err := s.store.LoadCollection(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.Replace(exams)
	s.sessions = make(map[string]*session.Session)
	// Loading is a user action; anything still in flight is stale.
	s.extractSeq++
	return nil
}

// Store exposes the backing store for operations with no in-memory
// state (vocabulary, exports, auth).
func (s *State) Store() *store.Store {
	return s.store
}
