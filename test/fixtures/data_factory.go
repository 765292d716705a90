package fixtures

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// DatasetSize defines the size categories for test datasets
type DatasetSize int

const (
	Tiny   DatasetSize = 10    // Debug/quick tests
	Small  DatasetSize = 100   // Unit tests
	Medium DatasetSize = 2500  // Multi-batch pipeline tests
	Large  DatasetSize = 25000 // Roughly the size of the published dataset
)

// ModelColumns is the dataset header in column order
var ModelColumns = []string{
	"model", "dtype", "brand", "brand_title", "code", "code_alias", "model_name", "ver_name",
}

// DataGenerationConfig configures how test data is generated
type DataGenerationConfig struct {
	Size           DatasetSize
	NullValueRatio float64 // Ratio of empty optional cells (0.0-1.0)
	UnicodeData    bool    // Include non-ASCII model names
	EdgeCaseValues bool    // Include quotes, delimiters and line breaks in cells
	CustomSeed     int64   // Random seed for reproducibility
}

// ModelRecord is one generated dataset row. An empty field is written as an
// empty cell.
type ModelRecord struct {
	Model      string
	Dtype      string
	Brand      string
	BrandTitle string
	Code       string
	CodeAlias  string
	ModelName  string
	VerName    string
}

// Values returns the fields in column order
func (r ModelRecord) Values() []string {
	return []string{r.Model, r.Dtype, r.Brand, r.BrandTitle, r.Code, r.CodeAlias, r.ModelName, r.VerName}
}

// ModelDataset is a generated set of rows
type ModelDataset struct {
	Records        []ModelRecord
	GeneratedAt    time.Time
	GenerationTime time.Duration
	Config         DataGenerationConfig
}

// DataFactory generates phone model rows with various patterns
type DataFactory struct {
	rng     *rand.Rand
	config  DataGenerationConfig
	brands  [][2]string // brand, brand_title
	dtypes  []string
	series  []string
	regions []string
}

// NewDataFactory creates a new data factory with the given configuration
func NewDataFactory(config DataGenerationConfig) *DataFactory {
	seed := config.CustomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &DataFactory{
		rng:    rand.New(rand.NewSource(seed)),
		config: config,
		brands: [][2]string{
			{"xiaomi", "Xiaomi"}, {"huawei", "HUAWEI"}, {"oppo", "OPPO"}, {"vivo", "vivo"},
			{"honor", "HONOR"}, {"oneplus", "OnePlus"}, {"samsung", "Samsung"}, {"meizu", "Meizu"},
		},
		dtypes:  []string{"phone", "pad", "watch", "tv", "band"},
		series:  []string{"Note", "Pro", "Ultra", "Lite", "Max", "Mini", "Plus", "Neo"},
		regions: []string{"China", "Global", "India", "Europe", "Japan"},
	}
}

// Generate creates Size rows with the configured patterns applied
func (df *DataFactory) Generate() *ModelDataset {
	start := time.Now()
	size := int(df.config.Size)
	if size <= 0 {
		size = int(Tiny)
	}

	records := make([]ModelRecord, size)
	for i := range records {
		records[i] = df.generateRecord(i)
	}

	dataset := &ModelDataset{
		Records:     records,
		GeneratedAt: start,
		Config:      df.config,
	}
	df.applyDataPatterns(dataset)
	dataset.GenerationTime = time.Since(start)
	return dataset
}

func (df *DataFactory) generateRecord(i int) ModelRecord {
	brand := df.brands[df.rng.Intn(len(df.brands))]
	series := df.series[df.rng.Intn(len(df.series))]
	code := fmt.Sprintf("%s%04d", strings.ToUpper(brand[0][:2]), i)
	return ModelRecord{
		Model:      fmt.Sprintf("M%05dAC", i),
		Dtype:      df.dtypes[df.rng.Intn(len(df.dtypes))],
		Brand:      brand[0],
		BrandTitle: brand[1],
		Code:       code,
		CodeAlias:  strings.ToLower(code) + "_alias",
		ModelName:  fmt.Sprintf("%s %d %s", brand[1], 10+df.rng.Intn(5), series),
		VerName:    df.regions[df.rng.Intn(len(df.regions))],
	}
}

// applyDataPatterns applies the configured data patterns to the dataset
func (df *DataFactory) applyDataPatterns(dataset *ModelDataset) {
	if df.config.NullValueRatio > 0 {
		df.introduceNullValues(dataset)
	}
	if df.config.UnicodeData {
		df.introduceUnicodeData(dataset)
	}
	if df.config.EdgeCaseValues {
		df.introduceEdgeCases(dataset)
	}
}

// introduceNullValues empties optional cells; model and brand stay populated
func (df *DataFactory) introduceNullValues(dataset *ModelDataset) {
	for i := range dataset.Records {
		r := &dataset.Records[i]
		for _, field := range []*string{&r.Dtype, &r.BrandTitle, &r.Code, &r.CodeAlias, &r.VerName} {
			if df.rng.Float64() < df.config.NullValueRatio {
				*field = ""
			}
		}
	}
}

// introduceUnicodeData replaces some model names with non-ASCII text
func (df *DataFactory) introduceUnicodeData(dataset *ModelDataset) {
	unicodeNames := []string{
		"小米 14 Ultra", "华为 Mate 60 Pro", "ギャラクシー S24", "Redmi Note 13 Pro+",
		"荣耀 Magic6", "Café Edition", "🚀 Rocket Phone",
	}
	for i := range dataset.Records {
		if df.rng.Float64() < 0.1 {
			dataset.Records[i].ModelName = unicodeNames[df.rng.Intn(len(unicodeNames))]
		}
	}
}

// introduceEdgeCases places hostile values in the first rows
func (df *DataFactory) introduceEdgeCases(dataset *ModelDataset) {
	edgeCases := []func(*ModelRecord){
		func(r *ModelRecord) { r.ModelName = "Xiaomi's phone" },
		func(r *ModelRecord) { r.ModelName = "O'Brien's ''quoted'' model" },
		func(r *ModelRecord) { r.VerName = "Global, EEA" },
		func(r *ModelRecord) { r.BrandTitle = "Line\nBreak" },
		func(r *ModelRecord) { r.CodeAlias = `say "hi"` },
		func(r *ModelRecord) { r.Code = "'); DROP TABLE phone_models; --" },
	}
	for i, apply := range edgeCases {
		if i < len(dataset.Records) {
			apply(&dataset.Records[i])
		}
	}
}

// CSV renders the dataset as CSV, with or without the header row
func (dataset *ModelDataset) CSV(withHeader bool) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if withHeader {
		if err := writer.Write(ModelColumns); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i, record := range dataset.Records {
		if err := writer.Write(record.Values()); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// CountEmpty returns how many cells of column are empty
func (dataset *ModelDataset) CountEmpty(column string) int {
	idx := -1
	for i, c := range ModelColumns {
		if c == column {
			idx = i
		}
	}
	if idx < 0 {
		return 0
	}
	n := 0
	for _, r := range dataset.Records {
		if r.Values()[idx] == "" {
			n++
		}
	}
	return n
}
