package fixtures

import (
	"os"
	"path/filepath"
	"testing"
)

// FactoryHelper provides convenient methods for creating test data in tests
type FactoryHelper struct {
	t         *testing.T
	factory   *DataFactory
	outputDir string
}

// NewFactoryHelper creates a new factory helper with default configuration
func NewFactoryHelper(t *testing.T) *FactoryHelper {
	t.Helper()

	return NewFactoryHelperWithConfig(t, DataGenerationConfig{
		Size:       Small,
		CustomSeed: 12345, // Fixed seed for reproducible tests
	})
}

// NewFactoryHelperWithConfig creates a factory helper with custom configuration
func NewFactoryHelperWithConfig(t *testing.T, config DataGenerationConfig) *FactoryHelper {
	t.Helper()

	return &FactoryHelper{
		t:         t,
		factory:   NewDataFactory(config),
		outputDir: t.TempDir(),
	}
}

// CreateModelsCSV generates a dataset and writes it as CSV with a header row.
// It returns the file path and the generated dataset.
func (fh *FactoryHelper) CreateModelsCSV(filename string) (string, *ModelDataset) {
	fh.t.Helper()

	dataset := fh.factory.Generate()
	data, err := dataset.CSV(true)
	if err != nil {
		fh.t.Fatalf("Failed to render dataset: %v", err)
	}

	path := filepath.Join(fh.outputDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		fh.t.Fatalf("Failed to write dataset %s: %v", path, err)
	}
	return path, dataset
}

// CreateModelsCSVBytes generates a dataset and returns it as CSV bytes
func (fh *FactoryHelper) CreateModelsCSVBytes(withHeader bool) ([]byte, *ModelDataset) {
	fh.t.Helper()

	dataset := fh.factory.Generate()
	data, err := dataset.CSV(withHeader)
	if err != nil {
		fh.t.Fatalf("Failed to render dataset: %v", err)
	}
	return data, dataset
}

// GetOutputDir returns the directory generated files are written to
func (fh *FactoryHelper) GetOutputDir() string {
	return fh.outputDir
}
