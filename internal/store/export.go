package store

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteCollectionJSON writes a stored collection to w as indented JSON
// in the {"exams": [...]} exchange shape.
func (s *Store) WriteCollectionJSON(w io.Writer, name string) error {
	exams, err := s.LoadCollection(name)
	if err != nil {
		return fmt.Errorf("load collection %s: %w", name, err)
	}

	data, err := json.MarshalIndent(collectionBlob{Exams: exams}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

// WriteVocabularyJSONL writes the vocabulary list to w as JSON Lines,
// one item per line.
func (s *Store) WriteVocabularyJSONL(w io.Writer) error {
	items, err := s.ListVocabulary()
	if err != nil {
		return fmt.Errorf("list vocabulary: %w", err)
	}

	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return fmt.Errorf("encode vocabulary item %d: %w", it.ID, err)
		}
	}
	return nil
}
