package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ParseCSV reads a static inventory from r. The file must carry a header
// row naming host, username, password, secret and device_type columns.
// A blank secret falls back to the row's password.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInventory
	}

	// stitch the header onto each row so column order never matters
	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec := Record{
			Host:       field(row, "host"),
			Username:   field(row, "username"),
			Password:   field(row, "password"),
			Secret:     field(row, "secret"),
			DeviceType: field(row, "device_type"),
		}
		if rec.Host == "" {
			return nil, fmt.Errorf("%w (row %d)", ErrMissingHost, n+1)
		}
		if rec.DeviceType == "" {
			// no safe default exists for the transport profile
			return nil, fmt.Errorf("%w (row %d, host %s)", ErrMissingDeviceType, n+1, rec.Host)
		}
		if rec.Secret == "" {
			rec.Secret = rec.Password
		}
		records = append(records, rec)
	}

	result := Dedupe(records)
	if len(result) == 0 {
		return nil, ErrEmptyInventory
	}
	return result, nil
}

// LoadStatic resolves a static inventory file into device records.
func LoadStatic(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory %s: %w", path, err)
	}
	defer f.Close()
	return ParseCSV(f)
}
