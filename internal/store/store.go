package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/examdesk/examdesk/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vocabulary (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL,
		phonetic TEXT NOT NULL DEFAULT '',
		definition TEXT NOT NULL,
		example TEXT NOT NULL DEFAULT '',
		added_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// collectionBlob is the JSON shape stored under each collection name and
// written to exported .json files.
type collectionBlob struct {
	Exams []model.ExamData `json:"exams"`
}

// SaveCollection stores the exams as a JSON blob under the given name,
// overwriting any previous contents.
func (s *Store) SaveCollection(name string, exams []model.ExamData) error {
	data, err := json.Marshal(collectionBlob{Exams: exams})
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = ?, updated_at = ?`,
		name, string(data), time.Now(), string(data), time.Now(),
	)
	return err
}

// LoadCollection returns the exams stored under the given name.
// A missing collection returns sql.ErrNoRows.
func (s *Store) LoadCollection(name string) ([]model.ExamData, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if err != nil {
		return nil, err
	}
	var blob collectionBlob
	if err := json.Unmarshal([]byte(data), &blob); err != nil {
		return nil, fmt.Errorf("parse collection %s: %w", name, err)
	}
	return blob.Exams, nil
}

// ListCollections returns all collection names, newest first.
func (s *Store) ListCollections() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM collections ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteCollection removes a stored collection.
func (s *Store) DeleteCollection(name string) error {
	_, err := s.db.Exec(`DELETE FROM collections WHERE name = ?`, name)
	return err
}

// AddVocabulary inserts a word into the study list.
func (s *Store) AddVocabulary(item model.VocabularyItem) (int64, error) {
	addedAt := item.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO vocabulary (word, phonetic, definition, example, added_at) VALUES (?, ?, ?, ?, ?)`,
		item.Word, item.Phonetic, item.Definition, item.Example, addedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListVocabulary returns all saved words, oldest first.
func (s *Store) ListVocabulary() ([]model.VocabularyItem, error) {
	rows, err := s.db.Query(
		`SELECT id, word, phonetic, definition, example, added_at FROM vocabulary ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.VocabularyItem
	for rows.Next() {
		var it model.VocabularyItem
		if err := rows.Scan(&it.ID, &it.Word, &it.Phonetic, &it.Definition, &it.Example, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteVocabulary removes a word by id.
func (s *Store) DeleteVocabulary(id int64) error {
	_, err := s.db.Exec(`DELETE FROM vocabulary WHERE id = ?`, id)
	return err
}
