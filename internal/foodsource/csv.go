// Package foodsource reads bulk tabular nutrition exports into food rows
// ready for indexing. Source files are CSV with a header row; column names
// are matched case-insensitively so exports from different systems load
// without preprocessing.
package foodsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matchmeal/matchmeal/internal/log"
)

// Food is one food item parsed from a source table.
type Food struct {
	Name         string
	Category     string
	Calories     float64
	Protein      float64
	Fat          float64
	Carbohydrate float64
	Sugar        float64
	Sodium       float64
}

// Column aliases accepted in header rows, lowest-cased.
var columnAliases = map[string]string{
	"name":         "name",
	"food_name":    "name",
	"식품명":          "name",
	"category":     "category",
	"식품군":          "category",
	"calories":     "calories",
	"kcal":         "calories",
	"energy":       "calories",
	"protein":      "protein",
	"fat":          "fat",
	"carbohydrate": "carbohydrate",
	"carbs":        "carbohydrate",
	"sugar":        "sugar",
	"sugars":       "sugar",
	"sodium":       "sodium",
}

// Read parses one CSV stream into food rows.
//
// Parsing is deliberately forgiving: malformed numeric values default to
// zero and the row is still returned; rows without a name are skipped.
// Duplicate names are allowed, they become distinct documents downstream.
func Read(r io.Reader, logger log.Logger) ([]Food, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // source exports are ragged
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := columnAliases[key]; ok {
			cols[canonical] = i
		}
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("source table has no name column (header: %v)", header)
	}

	var foods []Food
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		name := strings.TrimSpace(field(record, cols, "name"))
		if name == "" {
			skipped++
			continue
		}

		foods = append(foods, Food{
			Name:         name,
			Category:     strings.TrimSpace(field(record, cols, "category")),
			Calories:     number(record, cols, "calories"),
			Protein:      number(record, cols, "protein"),
			Fat:          number(record, cols, "fat"),
			Carbohydrate: number(record, cols, "carbohydrate"),
			Sugar:        number(record, cols, "sugar"),
			Sodium:       number(record, cols, "sodium"),
		})
	}

	if skipped > 0 {
		logger.Debug("skipped unnamed rows", "count", skipped)
	}
	return foods, nil
}

// ReadDir parses every .csv file in dir. A missing directory is not an
// error: the server simply starts with an empty food corpus.
func ReadDir(dir string, logger log.Logger) ([]Food, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("food data directory not found", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading food data directory: %w", err)
	}

	var all []Food
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}

		foods, err := Read(f, logger)
		closeErr := f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if closeErr != nil {
			logger.Warn("closing food source file", "path", path, "error", closeErr)
		}

		logger.Debug("parsed food source", "file", entry.Name(), "rows", len(foods))
		all = append(all, foods...)
	}

	return all, nil
}

// field returns the named column's raw value, or "" when absent.
func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// number parses the named column as float64, defaulting to zero on any
// malformed value. Bad numbers never fail a load.
func number(record []string, cols map[string]int, name string) float64 {
	raw := strings.TrimSpace(field(record, cols, name))
	if raw == "" {
		return 0
	}
	// Some exports format thousands with commas.
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
