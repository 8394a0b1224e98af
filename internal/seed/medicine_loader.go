// Package seed loads medicine catalogs from CSV files.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"medshelf/m/domain"
	"medshelf/m/internal/repository"
)

// Columns is the header an import file must carry, in any order.
var Columns = []string{"brandName", "saltName", "companyName", "dosageForm", "quantity", "price"}

var ErrMalformedCSV = errors.New("malformed medicine csv")

// Importer stores validated candidates in one transaction.
type Importer interface {
	Import(ctx context.Context, candidates []domain.Candidate) (repository.ImportResult, error)
}

// ReadCandidates parses the CSV into candidates. Blank lines are skipped;
// values are validated later by the importer.
func ReadCandidates(r io.Reader) ([]domain.Candidate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedCSV, err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var candidates []domain.Candidate
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		if blank(record) {
			continue
		}
		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		candidates = append(candidates, domain.Candidate{
			BrandName:   field("brandname"),
			SaltName:    field("saltname"),
			CompanyName: field("companyname"),
			DosageForm:  field("dosageform"),
			Quantity:    domain.NumberText(field("quantity")),
			Price:       domain.NumberText(field("price")),
		})
	}
	return candidates, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[key] = i
	}
	for _, col := range Columns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrMalformedCSV, col)
		}
	}
	return index, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Load reads r and hands every row to the importer.
func Load(ctx context.Context, imp Importer, r io.Reader, logger *slog.Logger) (repository.ImportResult, error) {
	candidates, err := ReadCandidates(r)
	if err != nil {
		return repository.ImportResult{}, err
	}
	result, err := imp.Import(ctx, candidates)
	if err != nil {
		return result, err
	}
	for _, s := range result.Skipped {
		// +2: one for the header, one for 1-based line numbers.
		logger.Warn("skipped medicine row", "line", s.Index+2, "error", s.Err)
	}
	logger.Info("loaded medicine catalog", "added", len(result.Added), "skipped", len(result.Skipped))
	return result, nil
}

// LoadFile opens csvPath and loads it.
func LoadFile(ctx context.Context, imp Importer, csvPath string, logger *slog.Logger) (repository.ImportResult, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return repository.ImportResult{}, fmt.Errorf("open medicine catalog %s: %w", csvPath, err)
	}
	defer file.Close()
	return Load(ctx, imp, file, logger)
}
