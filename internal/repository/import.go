package repository

import (
	"context"
	"fmt"
	"time"

	"medshelf/m/domain"
	"medshelf/m/internal/metrics"
)

// Skipped is an import candidate that failed validation.
type Skipped struct {
	Index int
	Err   error
}

// ImportResult lists what Import stored and what it left out.
type ImportResult struct {
	Added   []domain.Medicine
	Skipped []Skipped
}

// Import validates every candidate and stores the valid ones in a single
// transaction. Either all valid candidates are stored or none are.
func (r *Repository) Import(ctx context.Context, candidates []domain.Candidate) (ImportResult, error) {
	started := time.Now()
	var (
		result ImportResult
		valid  []domain.NewMedicine
	)
	for i, c := range candidates {
		nm, err := c.Validate()
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{Index: i, Err: err})
			continue
		}
		valid = append(valid, nm)
	}
	if len(valid) == 0 {
		r.metrics.Observe("import", metrics.OutcomeOK, started)
		return result, nil
	}

	added, err := r.insertAll(ctx, valid)
	if err != nil {
		r.metrics.Observe("import", metrics.OutcomeError, started)
		r.logger.Error("import medicines failed", "count", len(valid), "error", err)
		return ImportResult{Skipped: result.Skipped}, opError("import", err)
	}
	result.Added = added
	r.metrics.Observe("import", metrics.OutcomeOK, started)
	r.logger.Info("medicines imported", "added", len(added), "skipped", len(result.Skipped))
	return result, nil
}

func (r *Repository) insertAll(ctx context.Context, valid []domain.NewMedicine) ([]domain.Medicine, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(insertMedicine))
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := r.stamp()
	added := make([]domain.Medicine, 0, len(valid))
	for _, nm := range valid {
		var id int64
		if err := stmt.QueryRowxContext(ctx, insertArgs(nm, createdAt)...).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert %s: %w", nm.BrandName, err)
		}
		added = append(added, nm.Stored(id, createdAt))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}
