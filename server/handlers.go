package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/pdfchat/ai"
	"github.com/poiesic/pdfchat/conversation"
	"github.com/poiesic/pdfchat/core"
	"github.com/poiesic/pdfchat/ingestion"
	"github.com/poiesic/pdfchat/retrieval"
	"github.com/poiesic/pdfchat/storage"
)

// uploadField is the multipart field holding the PDF.
const uploadField = "file"

type askRequest struct {
	Question string `json:"question"`
}

type contextItem struct {
	DocumentID string  `json:"document_id"`
	Page       int     `json:"page"`
	Ordinal    int     `json:"ordinal"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

type askResponse struct {
	SessionID          string        `json:"session_id"`
	Input              string        `json:"input"`
	StandaloneQuestion string        `json:"standalone_question"`
	Answer             string        `json:"answer"`
	Context            []contextItem `json:"context"`
	History            []core.Turn   `json:"history"`
}

func newAskResponse(resp *conversation.Response) askResponse {
	out := askResponse{
		SessionID:          resp.SessionID,
		Input:              resp.Input,
		StandaloneQuestion: resp.StandaloneQuestion,
		Answer:             resp.Answer,
		Context:            make([]contextItem, 0, len(resp.Context)),
		History:            resp.History,
	}
	for _, result := range resp.Context {
		if result == nil || result.Chunk == nil {
			continue
		}
		out.Context = append(out.Context, contextItem{
			DocumentID: result.Chunk.DocumentID,
			Page:       result.Chunk.Page,
			Ordinal:    result.Chunk.Ordinal,
			Text:       result.Chunk.Text,
			Score:      result.Score,
		})
	}
	if out.History == nil {
		out.History = []core.Turn{}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"document": s.service.Document(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	document, err := s.service.Upload(r.Context(), apiKeyFrom(r.Context()), header.Filename, file)
	if err != nil {
		s.respondServiceError(w, "upload failed", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"document": document})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload askRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.service.Ask(r.Context(), apiKeyFrom(r.Context()), sessionID, payload.Question)
	if err != nil {
		s.respondServiceError(w, "question failed", err)
		return
	}

	respondJSON(w, http.StatusOK, newAskResponse(resp))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.Sessions(r.Context())
	if err != nil {
		s.respondServiceError(w, "listing sessions failed", err)
		return
	}

	out := make(map[string][]core.Turn, len(sessions))
	for _, session := range sessions {
		turns := session.Turns
		if turns == nil {
			turns = []core.Turn{}
		}
		out[session.ID] = turns
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := s.service.History(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, "reading history failed", err)
		return
	}
	if turns == nil {
		turns = []core.Turn{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "history": turns})
}

// respondServiceError maps domain errors onto HTTP status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ai.ErrMissingAPIKey) {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"warning": ai.MissingAPIKeyWarning})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "status", status, "err", err)
	} else {
		s.logger.Debug(msg, "status", status, "err", err)
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingestion.ErrNotPDF),
		errors.Is(err, conversation.ErrEmptyQuestion),
		errors.Is(err, core.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrMalformedDocument),
		errors.Is(err, ingestion.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, retrieval.ErrNoIndex):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrUpstream),
		errors.Is(err, ingestion.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
