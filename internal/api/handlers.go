package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/matchmeal/matchmeal/internal/coach"
	"github.com/matchmeal/matchmeal/internal/history"
	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/vision"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// maxUploadBytes caps meal photo uploads.
const maxUploadBytes = 10 << 20

// Responder produces a streamed answer for one request. Implemented by
// coach.Coach.
type Responder interface {
	RespondStream(ctx context.Context, req coach.Request) <-chan string
}

// HistoryRecorder persists one record per completed answer stream.
// Implemented by coach.Recorder.
type HistoryRecorder interface {
	Stream(ctx context.Context, in <-chan string, meta coach.RecordMeta) <-chan string
	Collect(ctx context.Context, in <-chan string, meta coach.RecordMeta) string
}

// HistoryReader lists past answers for a user. Implemented by
// history.Store.
type HistoryReader interface {
	Recent(ctx context.Context, userID int64, limit int) ([]history.Record, error)
}

type aiHandler struct {
	coach    Responder
	recorder HistoryRecorder
	logger   log.Logger
}

// decodeBody decodes a size-limited JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// answer runs one request through the coach and recorder, then writes the
// aggregated answer as JSON.
func (h *aiHandler) answer(w http.ResponseWriter, r *http.Request, req coach.Request, meta coach.RecordMeta) {
	ctx := r.Context()
	text := h.recorder.Collect(ctx, h.coach.RespondStream(ctx, req), meta)
	if ctx.Err() != nil {
		// Client went away; there is nobody left to answer.
		h.logger.Debug("request canceled before answer completed", "path", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Answer: text}, h.logger)
}

// refDate parses a period end date into the history reference date.
// Malformed dates degrade to no reference date rather than failing the
// request.
func refDate(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func (h *aiHandler) feedback(w http.ResponseWriter, r *http.Request) {
	var req PeriodFeedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	question := renderFeedbackContext(req)
	h.answer(w, r, coach.Request{
		Context: question,
		Profile: req.UserProfile.toCoach(),
		Tier:    coach.TierHeavy,
	}, coach.RecordMeta{
		UserID:   req.UserProfile.UserID,
		AiType:   history.TypeFeedback,
		Question: question,
		RefDate:  refDate(req.PeriodInfo.EndDate),
	})
}

func (h *aiHandler) recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	question := renderRecommendContext(req)
	h.answer(w, r, coach.Request{
		Context: question,
		Profile: req.UserProfile.toCoach(),
		Flavors: req.Flavors,
		Tier:    coach.TierHeavy,
	}, coach.RecordMeta{
		UserID:   req.UserProfile.UserID,
		AiType:   history.TypeRecommendation,
		Question: question,
	})
}

func (h *aiHandler) mealPlan(w http.ResponseWriter, r *http.Request) {
	var req MealPlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	question := renderMealPlanContext(req)
	h.answer(w, r, coach.Request{
		Context: question,
		Profile: req.UserProfile.toCoach(),
		Flavors: req.Flavors,
		Tier:    coach.TierHeavy,
	}, coach.RecordMeta{
		UserID:   req.UserProfile.UserID,
		AiType:   history.TypeMealPlan,
		Question: question,
		RefDate:  refDate(req.PeriodInfo.EndDate),
	})
}

func (h *aiHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}

	h.answer(w, r, coach.Request{
		Context: req.Message,
		Profile: req.UserProfile.toCoach(),
		History: toCoachHistory(req.History),
		Tier:    coach.TierFast,
		Persona: req.Persona,
	}, coach.RecordMeta{
		UserID:   req.UserProfile.UserID,
		AiType:   history.TypeChat,
		Question: req.Message,
	})
}

// chatStream is the SSE variant of chat. Each text fragment arrives as a
// "chunk" event; "done" closes a successful stream. Validation failures
// before any chunk are sent as an "error" event so EventSource clients
// see a structured failure instead of a dropped connection.
func (h *aiHandler) chatStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}
	sseHeaders(w)

	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "invalid_request", Message: "invalid request body"})
		return
	}
	if req.Message == "" {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "missing_message", Message: "message is required"})
		return
	}

	ctx := r.Context()
	stream := h.recorder.Stream(ctx, h.coach.RespondStream(ctx, coach.Request{
		Context: req.Message,
		Profile: req.UserProfile.toCoach(),
		History: toCoachHistory(req.History),
		Tier:    coach.TierFast,
		Persona: req.Persona,
	}), coach.RecordMeta{
		UserID:   req.UserProfile.UserID,
		AiType:   history.TypeChat,
		Question: req.Message,
	})

	length := 0
	for chunk := range stream {
		if err := writeEvent(w, flusher, EventChunk, ChunkPayload{Text: chunk}); err != nil {
			// Client disconnected; drain so the producer can finish.
			h.logger.Debug("stream write failed", "error", err)
			for range stream {
			}
			return
		}
		length += len(chunk)
	}

	_ = writeEvent(w, flusher, EventDone, DonePayload{Length: length})
}

type historyHandler struct {
	store  HistoryReader
	logger log.Logger
}

func (h *historyHandler) recent(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id query parameter is required", h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer", h.logger)
			return
		}
	}

	records, err := h.store.Recent(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("listing history", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "history_unavailable", "failed to load history", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]history.Record{"records": records}, h.logger)
}

type visionHandler struct {
	classifier vision.Classifier
	logger     log.Logger
}

// analyze accepts a multipart meal photo and returns menu candidates.
func (h *visionHandler) analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "file field is required", h.logger)
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !isImageContentType(ct) {
		writeError(w, http.StatusBadRequest, "not_an_image", "only image uploads are accepted", h.logger)
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_file", "failed to read upload", h.logger)
		return
	}

	analysis, err := h.classifier.Analyze(r.Context(), image, header.Filename)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("analyzing meal photo", "error", err, "filename", header.Filename)
		writeError(w, http.StatusBadGateway, "vision_unavailable", "image analysis failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, analysis, h.logger)
}

func isImageContentType(ct string) bool {
	return len(ct) > 6 && ct[:6] == "image/"
}
