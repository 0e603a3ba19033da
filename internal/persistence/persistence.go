// Package persistence writes per-device run artifacts and serialized
// summaries to disk.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Serializer interface {
	Marshal(data any) ([]byte, error)
}

type Writer interface {
	Write(filename string, data []byte) error
}

type JSONSerializer struct {
	Prefix, Indent string
}

func (s JSONSerializer) Marshal(data any) ([]byte, error) {
	return json.MarshalIndent(data, s.Prefix, s.Indent)
}

type FileWriter struct {
	Overwrite bool
}

func (w FileWriter) Write(filename string, data []byte) error {
	if filename == "" {
		return os.ErrInvalid
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) && !w.Overwrite {
		return os.ErrExist
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// WriteJSON persists data as JSON through the provided serializer/writer pair.
func WriteJSON(data any, filename string, serializer Serializer, writer Writer) error {
	bytes, err := serializer.Marshal(data)
	if err != nil {
		return err
	}
	if err := writer.Write(filename, bytes); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

// illegal or discouraged in filenames on Windows, but any of it can show
// up in a command string or hostname. All platforms suffer equally.
var illegalRunes = ` <>:\/|?*$"`

var illegalNames = []string{"CON", "PRN", "AUX", "NUL", "COM", "LPT", ".."}

// SanitizeFilename replaces characters that cannot appear in a filename.
// Every derived artifact name must pass through here before creation.
func SanitizeFilename(name string) string {
	for _, s := range illegalNames {
		name = strings.ReplaceAll(name, s, "_")
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || strings.ContainsRune(illegalRunes, r) {
			return '_'
		}
		return r
	}, name)
}

// ArtifactDir is the root directory of one run's artifacts. Each device
// gets its own subdirectory keyed by host, which keeps concurrent writers
// collision-free.
type ArtifactDir struct {
	Root   string
	writer FileWriter
}

func NewArtifactDir(root string) (*ArtifactDir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", root, err)
	}
	return &ArtifactDir{Root: root, writer: FileWriter{Overwrite: true}}, nil
}

// WriteDeviceFile writes one artifact for host under its own directory.
func (a *ArtifactDir) WriteDeviceFile(host, name, contents string) error {
	path := filepath.Join(a.Root, SanitizeFilename(host), SanitizeFilename(name))
	return a.writer.Write(path, []byte(contents))
}

// WriteSummary serializes the run summary at the artifact root.
func (a *ArtifactDir) WriteSummary(summary any) error {
	path := filepath.Join(a.Root, "summary.json")
	return WriteJSON(summary, path, JSONSerializer{Indent: "    "}, a.writer)
}
