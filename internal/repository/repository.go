// Package repository performs medicine CRUD against an open store. Every
// operation runs in its own transaction on the medicines container.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"medshelf/m/domain"
	"medshelf/m/internal/database"
	"medshelf/m/internal/metrics"
	"medshelf/m/internal/migrations"
	"medshelf/m/internal/search"
)

const (
	columns = `id, brand_name, salt_name, company_name, dosage_form, quantity, unit, price, created_at`

	insertMedicine = `INSERT INTO medicines (brand_name, salt_name, company_name, dosage_form, quantity, unit, price, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
)

// Repository is the medicine record store. It is safe for concurrent use;
// the engine serializes transactions on the container.
type Repository struct {
	db      *sqlx.DB
	dialect migrations.Dialect
	now     func() time.Time
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Option customizes a Repository.
type Option func(*Repository)

// WithClock replaces time.Now as the source of createdAt.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithMetrics records every operation on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithLogger sets the logger used for operation failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New builds a repository over an open handle.
func New(h *database.Handle, opts ...Option) *Repository {
	r := &Repository{
		db:      h.DB(),
		dialect: h.Dialect(),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type medicineRow struct {
	ID          int64   `db:"id"`
	BrandName   string  `db:"brand_name"`
	SaltName    string  `db:"salt_name"`
	CompanyName string  `db:"company_name"`
	DosageForm  string  `db:"dosage_form"`
	Quantity    float64 `db:"quantity"`
	Unit        string  `db:"unit"`
	Price       float64 `db:"price"`
	CreatedAt   string  `db:"created_at"`
}

func (row medicineRow) medicine() (domain.Medicine, error) {
	created, err := domain.ParseTimestamp(row.CreatedAt)
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("record %d: created_at: %w", row.ID, err)
	}
	return domain.Medicine{
		ID:          row.ID,
		BrandName:   row.BrandName,
		SaltName:    row.SaltName,
		CompanyName: row.CompanyName,
		DosageForm:  row.DosageForm,
		Quantity:    row.Quantity,
		Unit:        row.Unit,
		Price:       row.Price,
		CreatedAt:   created,
	}, nil
}

func insertArgs(m domain.NewMedicine, createdAt time.Time) []any {
	return []any{m.BrandName, m.SaltName, m.CompanyName, m.DosageForm, m.Quantity, m.Unit(), m.Price, domain.FormatTimestamp(createdAt)}
}

// stamp returns the creation time at the precision it is stored with, so
// the record returned by Add equals the one read back later. Sub-millisecond
// remainders round up so createdAt is never before the call.
func (r *Repository) stamp() time.Time {
	now := r.now().UTC()
	stamped := now.Truncate(time.Millisecond)
	if stamped.Before(now) {
		stamped = stamped.Add(time.Millisecond)
	}
	return stamped
}

// Add validates c and stores it as a new medicine. Validation failures are
// returned as *domain.ValidationError without touching storage.
func (r *Repository) Add(ctx context.Context, c domain.Candidate) (domain.Medicine, error) {
	started := time.Now()
	nm, err := c.Validate()
	if err != nil {
		r.metrics.Observe("add", metrics.OutcomeInvalid, started)
		return domain.Medicine{}, err
	}

	createdAt := r.stamp()
	id, err := r.insert(ctx, nm, createdAt)
	if err != nil {
		r.metrics.Observe("add", metrics.OutcomeError, started)
		r.logger.Error("add medicine failed", "brand", nm.BrandName, "error", err)
		return domain.Medicine{}, opError("add", err)
	}
	r.metrics.Observe("add", metrics.OutcomeOK, started)
	r.logger.Debug("medicine added", "id", id, "brand", nm.BrandName)
	return nm.Stored(id, createdAt), nil
}

func (r *Repository) insert(ctx context.Context, nm domain.NewMedicine, createdAt time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowxContext(ctx, tx.Rebind(insertMedicine), insertArgs(nm, createdAt)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// readTx starts the scan transaction. Only Postgres gets a READ ONLY
// transaction: modernc sqlite rejects the ReadOnly option, and the
// query_only pragma outlives the transaction on a pooled connection. The
// scan issues nothing but SELECTs either way.
func (r *Repository) readTx(ctx context.Context) (*sqlx.Tx, error) {
	var opts *sql.TxOptions
	if r.dialect == migrations.Postgres {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return r.db.BeginTxx(ctx, opts)
}

// Scan walks every record in id order and yields those matching query.
// Each call starts a fresh scan. A failure is yielded once as an
// *OperationError and ends the sequence.
//
// The scan holds a connection until it finishes, so the loop body must not
// call back into the repository; use List for that.
func (r *Repository) Scan(ctx context.Context, query string) iter.Seq2[domain.Medicine, error] {
	return func(yield func(domain.Medicine, error) bool) {
		started := time.Now()
		outcome := metrics.OutcomeOK
		scanned := 0
		defer func() {
			r.metrics.Scanned(scanned)
			r.metrics.Observe("list", outcome, started)
		}()

		fail := func(err error) {
			outcome = metrics.OutcomeError
			r.logger.Error("list medicines failed", "error", err)
			yield(domain.Medicine{}, opError("list", err))
		}

		tx, err := r.readTx(ctx)
		if err != nil {
			fail(fmt.Errorf("begin: %w", err))
			return
		}
		defer tx.Rollback()

		rows, err := tx.QueryxContext(ctx, `SELECT `+columns+` FROM medicines ORDER BY id`)
		if err != nil {
			fail(fmt.Errorf("open cursor: %w", err))
			return
		}
		defer rows.Close()

		match := search.Matcher(query)
		for rows.Next() {
			var row medicineRow
			if err := rows.StructScan(&row); err != nil {
				fail(fmt.Errorf("scan: %w", err))
				return
			}
			scanned++
			med, err := row.medicine()
			if err != nil {
				fail(err)
				return
			}
			if !match(med) {
				continue
			}
			if !yield(med, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			fail(fmt.Errorf("cursor: %w", err))
		}
	}
}

// List collects the records matching query. An empty query returns all.
func (r *Repository) List(ctx context.Context, query string) ([]domain.Medicine, error) {
	out := []domain.Medicine{}
	for med, err := range r.Scan(ctx, query) {
		if err != nil {
			return nil, err
		}
		out = append(out, med)
	}
	return out, nil
}

// Get returns the record with id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (domain.Medicine, error) {
	started := time.Now()
	var row medicineRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+columns+` FROM medicines WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		r.metrics.Observe("get", metrics.OutcomeOK, started)
		return domain.Medicine{}, ErrNotFound
	}
	if err != nil {
		r.metrics.Observe("get", metrics.OutcomeError, started)
		return domain.Medicine{}, opError("get", err)
	}
	med, err := row.medicine()
	if err != nil {
		r.metrics.Observe("get", metrics.OutcomeError, started)
		return domain.Medicine{}, opError("get", err)
	}
	r.metrics.Observe("get", metrics.OutcomeOK, started)
	return med, nil
}

// Delete removes the record with id and reports whether one existed.
// Deleting an absent id succeeds and changes nothing.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	started := time.Now()
	removed, err := r.delete(ctx, id)
	if err != nil {
		r.metrics.Observe("delete", metrics.OutcomeError, started)
		r.logger.Error("delete medicine failed", "id", id, "error", err)
		return false, opError("delete", err)
	}
	r.metrics.Observe("delete", metrics.OutcomeOK, started)
	r.logger.Debug("medicine deleted", "id", id, "removed", removed)
	return removed, nil
}

func (r *Repository) delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM medicines WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}
