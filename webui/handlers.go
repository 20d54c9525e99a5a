package webui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"classifier_backend/classifier"
	"classifier_backend/db"
	"classifier_backend/session"
)

// imageField is the multipart field carrying the image.
const imageField = "image"

type candidateResponse struct {
	ClassID     int     `json:"class_id"`
	Name        string  `json:"name"`
	Probability float32 `json:"probability"`
}

// predictResponse carries the generated request id, which is the key for
// /history/{request_id}, and echoes the client's X-Request-ID as the
// correlation id.
type predictResponse struct {
	RequestID     string              `json:"request_id"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	Candidates    []candidateResponse `json:"candidates"`
	DurationMS    int64               `json:"duration_ms"`
}

type healthResponse struct {
	Status  string           `json:"status"`
	State   string           `json:"state"`
	Version string           `json:"version"`
	Uptime  string           `json:"uptime"`
	Model   *classifier.Info `json:"model,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		State:   s.predictor.State().String(),
		Version: s.config.Version,
		Uptime:  FormatUptime(time.Since(s.startedAt)),
	}
	status := http.StatusOK
	if info, err := s.predictor.Info(); err == nil {
		resp.Model = &info
	} else {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.config.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with an image field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	top := 0
	if v := r.FormValue("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
		top = n
	}

	file, _, err := r.FormFile(imageField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	start := time.Now()
	correlationID := r.Header.Get(RequestIDHeader)
	requestID, list, err := s.predictor.PredictBytesWithID(correlationID, data, top)
	if err != nil {
		s.writePredictError(w, r, requestID, err)
		return
	}

	resp := predictResponse{
		RequestID:     requestID,
		CorrelationID: correlationID,
		Candidates:    make([]candidateResponse, len(list)),
		DurationMS:    time.Since(start).Milliseconds(),
	}
	for i, c := range list {
		name, _ := s.predictor.ClassName(c.ClassID)
		resp.Candidates[i] = candidateResponse{ClassID: c.ClassID, Name: name, Probability: c.Probability}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writePredictError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	switch {
	case errors.Is(err, session.ErrNotInitialized), errors.Is(err, classifier.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "no model loaded")
	case errors.Is(err, classifier.ErrImageLoad):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("prediction failed",
			zap.String("request_id", requestID),
			zap.String("correlation_id", r.Header.Get(RequestIDHeader)),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func (s *Server) handleClassName(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "class id must be an integer")
		return
	}

	name, err := s.predictor.ClassName(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, candidateResponse{ClassID: id, Name: name})
	case errors.Is(err, session.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "no model loaded")
	case errors.Is(err, classifier.ErrOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		writeJSON(w, http.StatusOK, []session.Prediction{})
		return
	}
	limit, ok := parseLimit(w, r, s.config.HistoryLimit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.recent.Newest(limit))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "prediction history is disabled")
		return
	}
	limit, ok := parseLimit(w, r, s.config.HistoryLimit)
	if !ok {
		return
	}

	var (
		records []db.PredictionRecord
		err     error
	)
	if id := r.URL.Query().Get("correlation_id"); id != "" {
		records, err = s.history.PredictionsByCorrelationID(r.Context(), id, limit)
	} else {
		records, err = s.history.RecentPredictions(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "prediction history is disabled")
		return
	}

	record, err := s.history.PredictionByRequestID(r.Context(), r.PathValue("request_id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, record)
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "prediction not found")
	default:
		s.logger.Error("history lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history lookup failed")
	}
}

// metricsTopClasses is how many classes /metrics lists by default.
const metricsTopClasses = 10

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics are disabled")
		return
	}
	top := metricsTopClasses
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
		top = n
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot(top))
}

// parseLimit reads the optional "limit" query parameter, capped at max.
func parseLimit(w http.ResponseWriter, r *http.Request, max int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return max, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(n, max), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
