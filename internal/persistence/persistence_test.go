// test module for package persistence

package persistence_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewPiroli/NOS-MCT/internal/persistence"
)

const sampleJSON = "{\n    \"key\": \"value\"\n}"

type MockSerializer struct {
	Bytes []byte
	Err   error
}

func (s MockSerializer) Marshal(data any) ([]byte, error) {
	return s.Bytes, s.Err
}

type MockWriter struct {
	Data map[string][]byte
	Err  error
}

func (w *MockWriter) Write(filename string, data []byte) error {
	if w.Data == nil {
		w.Data = make(map[string][]byte)
	}
	w.Data[filename] = data
	return w.Err
}

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		serializer  persistence.Serializer
		writer      *MockWriter
		expectedErr bool
	}{
		{
			name:       "valid input",
			filename:   "output.json",
			serializer: MockSerializer{Bytes: []byte(sampleJSON)},
			writer:     &MockWriter{},
		},
		{
			name:        "serializer error",
			filename:    "output.json",
			serializer:  MockSerializer{Err: fmt.Errorf("serialization failed")},
			writer:      &MockWriter{},
			expectedErr: true,
		},
		{
			name:        "writer error",
			filename:    "output.json",
			serializer:  MockSerializer{Bytes: []byte(sampleJSON)},
			writer:      &MockWriter{Err: fmt.Errorf("write failed")},
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := persistence.WriteJSON(map[string]string{"key": "value"}, tt.filename, tt.serializer, tt.writer)
			if tt.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, sampleJSON, string(tt.writer.Data[tt.filename]))
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"show version", "show_version"},
		{"show ip route 0.0.0.0/0", "show_ip_route_0.0.0.0_0"},
		{"core-sw-01", "core-sw-01"},
		{`a<b>c:d"e`, "a_b_c_d_e"},
		{"..", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, persistence.SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestArtifactDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "run")
	dir, err := persistence.NewArtifactDir(root)
	require.NoError(t, err)

	require.NoError(t, dir.WriteDeviceFile("sw1", "show version.txt", "IOS 15.2"))
	data, err := os.ReadFile(filepath.Join(root, "sw1", "show_version.txt"))
	require.NoError(t, err)
	assert.Equal(t, "IOS 15.2", string(data))

	// host names with path separators must not escape the run directory
	require.NoError(t, dir.WriteDeviceFile("../evil", "x.txt", "nope"))
	_, err = os.Stat(filepath.Join(root, "__evil", "x.txt"))
	assert.NoError(t, err)

	require.NoError(t, dir.WriteSummary(map[string]int{"success": 2}))
	_, err = os.Stat(filepath.Join(root, "summary.json"))
	assert.NoError(t, err)
}
