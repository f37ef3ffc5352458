package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/examdesk/examdesk/internal/app"
	"github.com/examdesk/examdesk/internal/extract"
	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
)

// maxUploadBytes bounds one multipart extraction upload.
const maxUploadBytes = 32 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	state  *app.State
	llm    *extract.Client
	config model.ServerConfig
}

// New creates a new Handler.
func New(state *app.State, llm *extract.Client, cfg model.ServerConfig) *Handler {
	return &Handler{state: state, llm: llm, config: cfg}
}

// Routes registers all HTTP routes. Everything except login requires a
// valid admin session.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAuth)

		pr.Post("/api/logout", h.handleLogout)

		pr.Post("/api/exams/extract", h.handleExtractExam)
		pr.Post("/api/reference/extract", h.handleExtractReference)
		pr.Post("/api/reference/repair", h.handleRepairReference)

		pr.Get("/api/exams", h.handleListExams)
		pr.Get("/api/exams/{examID}", h.handleGetExam)
		pr.Post("/api/exams/{examID}/answers", h.handleSetAnswer)
		pr.Post("/api/exams/{examID}/reset", h.handleResetAnswers)
		pr.Get("/api/exams/{examID}/score", h.handleScore)

		pr.Get("/api/collections", h.handleListCollections)
		pr.Post("/api/collections/{name}", h.handleSaveCollection)
		pr.Post("/api/collections/{name}/load", h.handleLoadCollection)
		pr.Delete("/api/collections/{name}", h.handleDeleteCollection)
		pr.Get("/api/collections/{name}/export", h.handleExportCollection)

		pr.Get("/api/vocabulary", h.handleListVocabulary)
		pr.Post("/api/vocabulary", h.handleAddVocabulary)
		pr.Delete("/api/vocabulary/{id}", h.handleDeleteVocabulary)
		pr.Get("/api/vocabulary/export", h.handleExportVocabulary)

		pr.Post("/api/define", h.handleDefine)
		pr.Post("/api/explain", h.handleExplain)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// readFiles pulls every part of a multipart upload into extraction
// files.
func readFiles(r *http.Request) ([]extract.File, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	var files []extract.File
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, err
			}
			files = append(files, extract.File{
				Name: fh.Filename,
				MIME: fh.Header.Get("Content-Type"),
				Data: data,
			})
		}
	}
	return files, nil
}

func (h *Handler) handleExtractExam(w http.ResponseWriter, r *http.Request) {
	files, err := readFiles(r)
	if err != nil || len(files) == 0 {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "NoFilesUploaded"))
		return
	}

	reqID := h.state.BeginExtraction()
	batch, err := h.llm.ExtractExam(r.Context(), files)
	if err != nil {
		h.extractionError(w, r, err)
		return
	}

	if !h.state.AppendExams(reqID, batch.Exams) {
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "RequestSuperseded"))
		return
	}
	slog.Info("extracted exams", "count", len(batch.Exams))
	respondJSON(w, http.StatusOK, map[string]any{"exams": len(batch.Exams)})
}

func (h *Handler) handleExtractReference(w http.ResponseWriter, r *http.Request) {
	files, err := readFiles(r)
	if err != nil || len(files) == 0 {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "NoFilesUploaded"))
		return
	}

	reqID := h.state.BeginExtraction()
	batch, err := h.llm.ExtractReference(r.Context(), files)
	if err != nil {
		h.extractionError(w, r, err)
		return
	}

	if !h.state.ApplyReference(reqID, *batch) {
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "RequestSuperseded"))
		return
	}
	slog.Info("applied reference batch", "tests", len(batch.Tests))
	respondJSON(w, http.StatusOK, map[string]string{
		"message": appI18n.Td(r.Context(), "ReferenceApplied", map[string]any{"Count": len(batch.Tests)}),
	})
}

// handleRepairReference accepts raw (possibly fenced or prose-wrapped)
// reference JSON in the request body and merges the salvaged batch.
func (h *Handler) handleRepairReference(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := extract.RepairReferenceJSON(string(raw))
	if err != nil {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidStructure"))
		return
	}

	h.state.ApplyReferenceNow(*batch)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": appI18n.Td(r.Context(), "ReferenceApplied", map[string]any{"Count": len(batch.Tests)}),
	})
}

func (h *Handler) extractionError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("extraction failed", "error", err)
	if errors.Is(err, extract.ErrInvalidStructure) {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidStructure"))
		return
	}
	respondError(w, http.StatusBadGateway, appI18n.T(r.Context(), "ExtractionFailed"))
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"exams": h.state.Exams()})
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.state.Exam(chi.URLParam(r, "examID"))
	if !ok {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
		return
	}
	respondJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleSetAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SectionID string `json:"sectionId"`
		Number    int    `json:"number"`
		Answer    string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.state.SetAnswer(chi.URLParam(r, "examID"), req.SectionID, req.Number, req.Answer); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResetAnswers(w http.ResponseWriter, r *http.Request) {
	h.state.ResetAnswers(chi.URLParam(r, "examID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	res, err := h.state.Score(chi.URLParam(r, "examID"))
	if err != nil {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.state.Store().ListCollections()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collections": names})
}

func (h *Handler) handleSaveCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.state.SaveCollection(name); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": appI18n.Td(r.Context(), "CollectionSaved", map[string]any{"Name": name}),
	})
}

func (h *Handler) handleLoadCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.state.LoadCollection(name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "CollectionNotFound"))
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": appI18n.Td(r.Context(), "CollectionLoaded", map[string]any{"Name": name}),
	})
}

func (h *Handler) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Store().DeleteCollection(chi.URLParam(r, "name")); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.json"`)
	if err := h.state.Store().WriteCollectionJSON(w, name); err != nil {
		slog.Error("export collection", "name", name, "error", err)
	}
}

func (h *Handler) handleListVocabulary(w http.ResponseWriter, r *http.Request) {
	items, err := h.state.Store().ListVocabulary()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"vocabulary": items})
}

func (h *Handler) handleAddVocabulary(w http.ResponseWriter, r *http.Request) {
	var item model.VocabularyItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if item.Word == "" {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "WordRequired"))
		return
	}

	id, err := h.state.Store().AddVocabulary(item)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"message": appI18n.T(r.Context(), "VocabularySaved"),
	})
}

func (h *Handler) handleDeleteVocabulary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.state.Store().DeleteVocabulary(id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportVocabulary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/jsonl; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vocabulary.jsonl"`)
	if err := h.state.Store().WriteVocabularyJSONL(w); err != nil {
		slog.Error("export vocabulary", "error", err)
	}
}

func (h *Handler) handleDefine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Word    string `json:"word"`
		Passage string `json:"passage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Word == "" {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "WordRequired"))
		return
	}

	def, err := h.llm.DefineWord(r.Context(), req.Word, req.Passage)
	if err != nil {
		h.extractionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, def)
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExamID    string `json:"examId"`
		SectionID string `json:"sectionId"`
		Number    int    `json:"number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	exam, ok := h.state.Exam(req.ExamID)
	if !ok {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
		return
	}
	for _, sec := range exam.Sections {
		if sec.ID != req.SectionID {
			continue
		}
		for _, q := range sec.Questions {
			if q.Number != req.Number {
				continue
			}
			explanation, err := h.llm.ExplainAnswer(r.Context(), sec, q)
			if err != nil {
				h.extractionError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
			return
		}
	}
	respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
}
