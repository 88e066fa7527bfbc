package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Header is the column order of roster CSV files.
var Header = []string{
	"team", "season", "id", "first_name", "last_name", "position", "sweater",
	"shoots", "birth_date", "birth_city", "birth_province", "birth_country",
	"height_in", "weight_lb", "headshot",
}

// WriteCSV writes rows with Header. Missing optional values are empty cells.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Team,
			strconv.Itoa(r.Season),
			strconv.Itoa(r.ID),
			r.FirstName,
			r.LastName,
			r.Position,
			formatOptional(r.Sweater),
			r.Shoots,
			r.BirthDate,
			r.BirthCity,
			r.BirthProvince,
			r.BirthCountry,
			formatOptional(r.HeightIn),
			formatOptional(r.WeightLb),
			r.Headshot,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to path, creating parent directories.
func WriteCSVFile(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV reads rows from a roster CSV. Columns are matched by header name,
// so extra columns and reordering are tolerated; team, season and id are
// required.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("roster: read header: %w", err)
	}
	col := make(map[string]int, len(head))
	for i, h := range head {
		col[h] = i
	}
	for _, req := range []string{"team", "season", "id"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("roster: missing column %q", req)
		}
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("roster: line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		row := Row{
			Team:          get("team"),
			FirstName:     get("first_name"),
			LastName:      get("last_name"),
			Position:      get("position"),
			Shoots:        get("shoots"),
			BirthDate:     get("birth_date"),
			BirthCity:     get("birth_city"),
			BirthProvince: get("birth_province"),
			BirthCountry:  get("birth_country"),
			Headshot:      get("headshot"),
		}
		if row.Season, err = parseInt(get("season")); err != nil {
			return nil, fmt.Errorf("roster: line %d season: %w", line, err)
		}
		if row.ID, err = parseInt(get("id")); err != nil {
			return nil, fmt.Errorf("roster: line %d id: %w", line, err)
		}
		if row.Sweater, err = parseOptional(get("sweater")); err != nil {
			return nil, fmt.Errorf("roster: line %d sweater: %w", line, err)
		}
		if row.HeightIn, err = parseOptional(get("height_in")); err != nil {
			return nil, fmt.Errorf("roster: line %d height_in: %w", line, err)
		}
		if row.WeightLb, err = parseOptional(get("weight_lb")); err != nil {
			return nil, fmt.Errorf("roster: line %d weight_lb: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCSVFile reads rows from the CSV file at path.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func formatOptional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// parseInt accepts integers and whole floats such as "73.0".
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

func parseOptional(s string) (*int, error) {
	if s == "" || s == "NaN" || s == "nan" {
		return nil, nil
	}
	n, err := parseInt(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
