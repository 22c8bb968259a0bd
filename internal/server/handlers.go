package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/conversation"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/keyword"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.deps.Advisor.Ask(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrEmptyQuery) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var fb models.Feedback
	if !s.decode(w, r, &fb) {
		return
	}
	if err := fb.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Storage.AddFeedback(r.Context(), &fb); err != nil {
		s.logger.Error("feedback failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": fb.ID, "status": "recorded"})
}

func (s *Server) handleListHandoffs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	tickets, err := s.deps.Handoffs.ListOpen(r.Context(), limit)
	if err != nil {
		s.logger.Error("list handoffs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tickets == nil {
		tickets = []*models.HandoffTicket{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"handoffs": tickets})
}

func (s *Server) handleResolveHandoff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ticket, err := s.deps.Handoffs.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "open handoff not found")
			return
		}
		s.logger.Error("resolve handoff failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.deps.Sessions.GetContext(r.Context(), id)
	if err != nil {
		s.sessionError(w, id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":        c.SessionID,
		"current_topic":     c.CurrentTopic,
		"mentioned_courses": c.MentionedCourses,
		"last_intent":       c.LastIntent,
		"message_count":     len(c.Messages),
		"summary":           c.Summary(),
		"last_activity":     c.LastActivity,
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Sessions.Clear(r.Context(), id); err != nil {
		s.sessionError(w, id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) sessionError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, conversation.ErrInvalidSession) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("session operation failed", zap.String("session_id", id), zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if !s.decode(w, r, &input) {
		return
	}
	if err := input.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := s.deps.Indexer.IndexDocument(r.Context(), &input)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "indexed"})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	sourceType := models.SourceType(r.URL.Query().Get("type"))
	if sourceType != "" && !sourceType.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown type")
		return
	}
	docs, err := s.deps.Storage.ListDocuments(r.Context(), sourceType, queryInt(r, "offset", 0), queryInt(r, "limit", 50))
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

type searchHit struct {
	ID         string            `json:"id"`
	SourceType models.SourceType `json:"source_type"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Score      float64           `json:"score"`
}

func (s *Server) handleSearchKnowledge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	sourceType := models.SourceType(r.URL.Query().Get("type"))
	if sourceType != "" && !sourceType.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown type")
		return
	}
	results, err := s.deps.Keywords.Search(r.Context(), q, queryInt(r, "limit", 10), &keyword.SearchOptions{
		SourceType: sourceType,
		Fuzziness:  queryInt(r, "fuzziness", 0),
	})
	if err != nil {
		s.logger.Error("knowledge search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	docs, err := s.deps.Storage.GetDocuments(r.Context(), ids)
	if err != nil {
		s.logger.Error("knowledge search hydrate failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		doc, ok := docs[res.ID]
		if !ok {
			continue
		}
		hits = append(hits, searchHit{ID: doc.ID, SourceType: doc.SourceType, Title: doc.Title, Content: doc.Content, Score: res.Score})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": q, "results": hits})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.deps.Storage.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.deps.Indexer.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := s.deps.Storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	open, err := s.deps.Handoffs.ListOpen(ctx, 0)
	if err != nil {
		s.logger.Error("status: list handoffs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":         total,
		"documents_by_type": counts,
		"open_handoffs":     len(open),
	}
	if s.deps.Vectors != nil {
		resp["vector_index_size"] = s.deps.Vectors.Size()
	}
	if s.deps.Keywords != nil {
		if n, err := s.deps.Keywords.DocCount(); err == nil {
			resp["keyword_index_size"] = n
		}
	}
	if s.deps.Watched != nil {
		resp["watched_directories"] = s.deps.Watched()
	}
	if s.cfg != nil {
		resp["config"] = map[string]interface{}{
			"llm_provider":       s.cfg.LLM.Provider,
			"main_model":         s.cfg.LLM.MainModel,
			"classifier_model":   s.cfg.LLM.ClassifierModel,
			"embedding_provider": s.cfg.Embedding.Provider,
			"session_backend":    s.cfg.Session.Backend,
			"top_k":              s.cfg.Advisor.TopK,
			"database_path":      s.cfg.Storage.DatabasePath,
		}
		diskBytes, err := storage.DiskUsage(
			s.cfg.Storage.DatabasePath,
			s.cfg.Storage.BleveIndexPath,
			s.cfg.Storage.VectorIndexPath,
			s.cfg.Storage.EmbeddingCachePath,
		)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into v, answering 400 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
