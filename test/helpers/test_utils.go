package helpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t       *testing.T
	tempDir string
}

// NewTestHelper creates a new test helper
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	return &TestHelper{
		t:       t,
		tempDir: t.TempDir(),
	}
}

// GetTempDir returns the temporary directory for this test
func (th *TestHelper) GetTempDir() string {
	return th.tempDir
}

// Path returns the absolute path of name inside the temporary directory
func (th *TestHelper) Path(name string) string {
	return filepath.Join(th.tempDir, name)
}

// CreateTempFile creates a temporary file with the given content
func (th *TestHelper) CreateTempFile(filename, content string) string {
	th.t.Helper()

	filePath := th.Path(filename)

	// Create directory if needed
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		th.t.Fatalf("Failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		th.t.Fatalf("Failed to create temp file %s: %v", filePath, err)
	}

	return filePath
}

// ReadFile returns the trimmed content of a file, failing the test if it cannot be read
func (th *TestHelper) ReadFile(filePath string) string {
	th.t.Helper()

	data, err := os.ReadFile(filePath)
	if err != nil {
		th.t.Fatalf("Failed to read file %s: %v", filePath, err)
	}
	return strings.TrimSpace(string(data))
}

// AssertFileExists checks if a file exists
func (th *TestHelper) AssertFileExists(filePath string) {
	th.t.Helper()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		th.t.Errorf("File %s does not exist", filePath)
	}
}

// AssertFileNotExists checks if a file does not exist
func (th *TestHelper) AssertFileNotExists(filePath string) {
	th.t.Helper()

	if _, err := os.Stat(filePath); err == nil {
		th.t.Errorf("File %s exists but should not", filePath)
	}
}

// FileModTime returns the modification time of a file in nanoseconds, or 0 when absent
func (th *TestHelper) FileModTime(filePath string) int64 {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}
