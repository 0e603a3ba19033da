// Package inventory resolves the set of target devices for a run,
// either from a static CSV file or from a LibreNMS-style discovery API.
package inventory

import (
	"errors"
)

var (
	ErrEmptyInventory    = errors.New("inventory: no devices resolved")
	ErrMissingDeviceType = errors.New("inventory: row is missing device_type")
	ErrMissingHost       = errors.New("inventory: row is missing host")
)

// Record describes one target device for a single run.
// Immutable after resolution; Host is the identity.
type Record struct {
	Host       string
	Username   string
	Password   string
	Secret     string
	DeviceType string
}

// Dedupe removes records with a Host already seen earlier in the list.
// First-seen wins, order is preserved.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.Host]; dup {
			continue
		}
		seen[r.Host] = struct{}{}
		out = append(out, r)
	}
	return out
}
