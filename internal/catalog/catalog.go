// Package catalog maintains the deduplicated, numerically sorted set of
// loaded exams.
package catalog

import (
	"math"
	"sort"

	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/reconcile"
)

// noNumber sorts exams without an extractable number after all numbered
// ones.
const noNumber = math.MaxInt

// Catalog is an ordered collection of exams keyed by id. The zero value
// is empty and ready to use.
type Catalog struct {
	exams []model.ExamData
}

// New creates a catalog holding the given exams, deduplicated and
// sorted.
func New(exams []model.ExamData) *Catalog {
	c := &Catalog{}
	c.Append(exams)
	return c
}

// Append merges new exams into the catalog, skipping any whose id
// already exists (first-loaded wins), then re-sorts.
func (c *Catalog) Append(exams []model.ExamData) {
	seen := make(map[string]bool, len(c.exams))
	for _, e := range c.exams {
		seen[e.ID] = true
	}
	for _, e := range exams {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		c.exams = append(c.exams, e)
	}
	sort.SliceStable(c.exams, func(i, j int) bool {
		return sortKey(c.exams[i]) < sortKey(c.exams[j])
	})
}

// Replace discards the current contents and loads the given exams from
// scratch.
func (c *Catalog) Replace(exams []model.ExamData) {
	c.exams = nil
	c.Append(exams)
}

// List returns the exams in catalog order. The returned slice is shared;
// callers that mutate exams must go through SetExam.
func (c *Catalog) List() []model.ExamData {
	return c.exams
}

// Get returns the exam with the given id.
func (c *Catalog) Get(id string) (model.ExamData, bool) {
	for _, e := range c.exams {
		if e.ID == id {
			return e, true
		}
	}
	return model.ExamData{}, false
}

// SetExam writes back an updated exam. Unknown ids are ignored; new
// exams go through Append.
func (c *Catalog) SetExam(exam model.ExamData) {
	for i, e := range c.exams {
		if e.ID == exam.ID {
			c.exams[i] = exam
			return
		}
	}
}

// Len returns the number of exams held.
func (c *Catalog) Len() int {
	return len(c.exams)
}

// sortKey orders by the first integer in the id, then the first integer
// in the title, then last.
func sortKey(e model.ExamData) int {
	if n, ok := reconcile.LeadingInt(e.ID); ok {
		return n
	}
	if n, ok := reconcile.LeadingInt(e.Title); ok {
		return n
	}
	return noNumber
}
