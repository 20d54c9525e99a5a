package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"classifier_backend/classifier"
	"classifier_backend/session"
)

// timeLayout is fixed width so created_at sorts and compares lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no prediction matches a lookup.
var ErrNotFound = errors.New("db: prediction not found")

// PredictionRecord is a row of the predictions table.
// RequestID is unique; CorrelationID is the client's id and may repeat.
type PredictionRecord struct {
	ID            int64                  `json:"id"`
	RequestID     string                 `json:"request_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Source        string                 `json:"source"`
	Top           int                    `json:"top"`
	Candidates    []classifier.Candidate `json:"candidates"`
	Names         []string               `json:"names"`
	DurationMS    int64                  `json:"duration_ms"`
	CreatedAt     time.Time              `json:"created_at"`
}

// RecordFromPrediction converts a session prediction into a row.
func RecordFromPrediction(p session.Prediction) PredictionRecord {
	return PredictionRecord{
		RequestID:     p.RequestID,
		CorrelationID: p.CorrelationID,
		Source:        p.Source,
		Top:           p.Top,
		Candidates:    p.Candidates,
		Names:         p.Names,
		DurationMS:    p.Duration.Milliseconds(),
		CreatedAt:     p.CreatedAt,
	}
}

// Repository reads and writes prediction history. It implements
// session.Recorder with synchronous writes; wrap it in an AsyncWriter to
// keep inserts off the predict path.
type Repository struct {
	db     *Database
	logger *zap.Logger
}

// NewRepository creates a Repository. A nil logger is replaced by a no-op logger.
func NewRepository(db *Database, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

// RecordPrediction implements session.Recorder.
func (r *Repository) RecordPrediction(p session.Prediction) error {
	_, err := r.InsertPrediction(context.Background(), RecordFromPrediction(p))
	return err
}

// InsertPrediction inserts a record and returns its row id.
func (r *Repository) InsertPrediction(ctx context.Context, rec PredictionRecord) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	candidates := rec.Candidates
	if candidates == nil {
		candidates = []classifier.Candidate{}
	}
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return 0, fmt.Errorf("failed to encode candidates: %w", err)
	}
	names := rec.Names
	if names == nil {
		names = []string{}
	}
	namesJSON, err := json.Marshal(names)
	if err != nil {
		return 0, fmt.Errorf("failed to encode names: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := r.db.execContext(ctx, `
		INSERT INTO predictions (
			request_id, correlation_id, source, top, candidates, names, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.CorrelationID,
		rec.Source,
		rec.Top,
		string(candidatesJSON),
		string(namesJSON),
		rec.DurationMS,
		formatTime(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert prediction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.logger.Debug("prediction recorded",
		zap.Int64("id", id),
		zap.String("request_id", rec.RequestID))
	return id, nil
}

// RecentPredictions returns up to limit records, newest first.
func (r *Repository) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	return r.queryPredictions(ctx, `
		SELECT id, request_id, correlation_id, source, top, candidates, names, duration_ms, created_at
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
}

// PredictionsByCorrelationID returns up to limit records sharing a client
// correlation id, newest first.
func (r *Repository) PredictionsByCorrelationID(ctx context.Context, correlationID string, limit int) ([]PredictionRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	return r.queryPredictions(ctx, `
		SELECT id, request_id, correlation_id, source, top, candidates, names, duration_ms, created_at
		FROM predictions
		WHERE correlation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, correlationID, limit)
}

func (r *Repository) queryPredictions(ctx context.Context, query string, args ...any) ([]PredictionRecord, error) {
	rows, err := r.db.queryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return records, nil
}

// PredictionByRequestID returns the record for a request id, or ErrNotFound.
func (r *Repository) PredictionByRequestID(ctx context.Context, requestID string) (PredictionRecord, error) {
	if r.db == nil {
		return PredictionRecord{}, fmt.Errorf("database connection is nil")
	}

	row, err := r.db.queryRowContext(ctx, `
		SELECT id, request_id, correlation_id, source, top, candidates, names, duration_ms, created_at
		FROM predictions
		WHERE request_id = ?`, requestID)
	if err != nil {
		return PredictionRecord{}, err
	}
	rec, err := scanPrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PredictionRecord{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	return rec, err
}

// CountPredictions returns the number of stored predictions.
func (r *Repository) CountPredictions(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	row, err := r.db.queryRowContext(ctx, "SELECT COUNT(*) FROM predictions")
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(s scanner) (PredictionRecord, error) {
	var (
		rec            PredictionRecord
		candidatesJSON string
		namesJSON      string
		createdAt      string
	)
	err := s.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.CorrelationID,
		&rec.Source,
		&rec.Top,
		&candidatesJSON,
		&namesJSON,
		&rec.DurationMS,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("failed to scan prediction: %w", err)
	}

	if err := json.Unmarshal([]byte(candidatesJSON), &rec.Candidates); err != nil {
		return rec, fmt.Errorf("failed to decode candidates for %s: %w", rec.RequestID, err)
	}
	if err := json.Unmarshal([]byte(namesJSON), &rec.Names); err != nil {
		return rec, fmt.Errorf("failed to decode names for %s: %w", rec.RequestID, err)
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return rec, fmt.Errorf("failed to parse created_at for %s: %w", rec.RequestID, err)
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
