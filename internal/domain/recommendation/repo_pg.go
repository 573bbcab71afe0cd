package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const recCols = `id, patient_id, source_type, source_id, category, title, summary,
	recommendations, safety_notes, priority, analysis, created_at, updated_at`

func scanRec(row pgx.Row) (*Recommendation, error) {
	var (
		rec          Recommendation
		recsJSON     []byte
		notesJSON    []byte
		analysisJSON []byte
	)
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.SourceType, &rec.SourceID, &rec.Category,
		&rec.Title, &rec.Summary, &recsJSON, &notesJSON, &rec.Priority, &analysisJSON,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recsJSON, &rec.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if err := json.Unmarshal(notesJSON, &rec.SafetyNotes); err != nil {
		return nil, fmt.Errorf("decode safety notes: %w", err)
	}
	if len(analysisJSON) > 0 {
		rec.Analysis = &Analysis{}
		if err := json.Unmarshal(analysisJSON, rec.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
	}
	rec.Normalize()
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Recommendation) error {
	rec.ID = uuid.New()
	rec.Normalize()

	recsJSON, err := json.Marshal(rec.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	notesJSON, err := json.Marshal(rec.SafetyNotes)
	if err != nil {
		return fmt.Errorf("encode safety notes: %w", err)
	}
	var analysisJSON []byte
	if rec.Analysis != nil {
		analysisJSON, err = json.Marshal(rec.Analysis)
		if err != nil {
			return fmt.Errorf("encode analysis: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO ai_recommendation (id, patient_id, source_type, source_id, category,
			title, summary, recommendations, safety_notes, priority, analysis, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.ID, rec.PatientID, rec.SourceType, rec.SourceID, rec.Category,
		rec.Title, rec.Summary, recsJSON, notesJSON, rec.Priority, analysisJSON,
		rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	rec, err := scanRec(r.pool.QueryRow(ctx, `SELECT `+recCols+` FROM ai_recommendation WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Recommendation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Recommendation
	for rows.Next() {
		rec, err := scanRec(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string) ([]*Recommendation, error) {
	return r.list(ctx, `SELECT `+recCols+` FROM ai_recommendation
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
}

func (r *repoPG) ListByPatientAndCategory(ctx context.Context, patientID, category string) ([]*Recommendation, error) {
	return r.list(ctx, `SELECT `+recCols+` FROM ai_recommendation
		WHERE patient_id = $1 AND category = $2 ORDER BY created_at DESC`, patientID, category)
}

func (r *repoPG) ListByPatientAndPriority(ctx context.Context, patientID, priority string) ([]*Recommendation, error) {
	return r.list(ctx, `SELECT `+recCols+` FROM ai_recommendation
		WHERE patient_id = $1 AND priority = $2 ORDER BY created_at DESC`, patientID, priority)
}

func (r *repoPG) ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]*Recommendation, error) {
	return r.list(ctx, `SELECT `+recCols+` FROM ai_recommendation
		WHERE patient_id = $1 AND created_at >= $2 ORDER BY created_at DESC`, patientID, since)
}

func (r *repoPG) CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ai_recommendation
		WHERE patient_id = $1 AND created_at >= $2`, patientID, since).Scan(&count)
	return count, err
}

func (r *repoPG) ListByCategorySince(ctx context.Context, category string, since time.Time) ([]*Recommendation, error) {
	return r.list(ctx, `SELECT `+recCols+` FROM ai_recommendation
		WHERE category = $1 AND created_at >= $2 ORDER BY created_at DESC`, category, since)
}
