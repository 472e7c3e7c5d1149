package specimen

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const specimenColumns = "id, project_id, specimen_number, tube_id, metadata_json, created_at, updated_at"

// Insert persists a new specimen. An empty ID is replaced with a freshly
// minted identifier; the populated record is returned.
func (s *Store) Insert(ctx context.Context, sp Specimen) (*Specimen, error) {
	if strings.TrimSpace(sp.ProjectID) == "" {
		return nil, errors.New("project id is required")
	}
	if strings.TrimSpace(sp.ID) == "" {
		sp.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	sp.CreatedAt = now
	sp.UpdatedAt = now

	metadataJSON, err := encodeMetadata(sp.Metadata)
	if err != nil {
		return nil, err
	}

	if err := s.execWithRetry(
		ctx,
		`INSERT INTO specimens (id, project_id, specimen_number, tube_id, metadata_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sp.ID,
		sp.ProjectID,
		nullableString(sp.SpecimenNumber),
		nullableString(sp.TubeID),
		metadataJSON,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert specimen: %w", err)
	}

	return &sp, nil
}

// GetByID fetches a specimen by identifier. Returns ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Specimen, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+specimenColumns+` FROM specimens WHERE id = ?`, id)
	sp, err := scanSpecimen(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get specimen: %w", err)
	}
	return sp, nil
}

// ListByProject returns the candidate snapshot for a project in registry
// order. The order is stable across calls: insertion time, then id.
func (s *Store) ListByProject(ctx context.Context, projectID string) ([]Specimen, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+specimenColumns+` FROM specimens WHERE project_id = ? ORDER BY created_at, id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list specimens: %w", err)
	}
	defer rows.Close()

	var specimens []Specimen
	for rows.Next() {
		sp, err := scanSpecimen(rows)
		if err != nil {
			return nil, fmt.Errorf("scan specimen: %w", err)
		}
		specimens = append(specimens, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate specimens: %w", err)
	}
	return specimens, nil
}

// CountByProject reports how many specimens a project holds.
func (s *Store) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM specimens WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count specimens: %w", err)
	}
	return count, nil
}

// UpdateMetadata merges a metadata patch onto one specimen. Existing keys are
// overwritten, other keys are preserved, and empty-string values are stored
// as-is; value interpretation belongs to consumers. Returns ErrNotFound when
// the specimen does not exist.
func (s *Store) UpdateMetadata(ctx context.Context, id string, patch map[string]string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.updateMetadataOnce(ctx, id, patch)
	})
}

func (s *Store) updateMetadataOnce(ctx context.Context, id string, patch map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var metadataRaw sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT metadata_json FROM specimens WHERE id = ?`, id).Scan(&metadataRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	metadata, err := decodeMetadata(metadataRaw.String)
	if err != nil {
		return err
	}
	if metadata == nil {
		metadata = make(map[string]string, len(patch))
	}
	for key, value := range patch {
		metadata[key] = value
	}

	encoded, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE specimens SET metadata_json = ?, updated_at = ? WHERE id = ?`,
		encoded,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata: %w", err)
	}
	return nil
}

func scanSpecimen(scanner interface{ Scan(dest ...any) error }) (*Specimen, error) {
	var (
		id             string
		projectID      string
		specimenNumber sql.NullString
		tubeID         sql.NullString
		metadataRaw    sql.NullString
		createdRaw     string
		updatedRaw     string
	)
	if err := scanner.Scan(&id, &projectID, &specimenNumber, &tubeID, &metadataRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	metadata, err := decodeMetadata(metadataRaw.String)
	if err != nil {
		return nil, err
	}

	sp := &Specimen{
		ID:             id,
		ProjectID:      projectID,
		SpecimenNumber: specimenNumber.String,
		TubeID:         tubeID.String,
		Metadata:       metadata,
	}
	sp.CreatedAt = parseTimestamp(createdRaw)
	sp.UpdatedAt = parseTimestamp(updatedRaw)
	return sp, nil
}

func encodeMetadata(metadata map[string]string) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return metadata, nil
}

func parseTimestamp(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
