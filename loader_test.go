package main

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yoRyuuuuu/modelsync/test/fixtures"
)

func text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

var null = sql.NullString{}

const testHeader = "model,dtype,brand,brand_title,code,code_alias,model_name,ver_name"

func TestParseModels_Success(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		opts     ParseOptions
		expected []PhoneModel
	}{
		{
			name: "header with empty cells",
			content: testHeader + "\n" +
				"M2012K11AC,phone,xiaomi,Xiaomi,haydn,,Redmi K40 Pro,China\n",
			opts: DefaultParseOptions(),
			expected: []PhoneModel{
				{
					Model: text("M2012K11AC"), Dtype: text("phone"), Brand: text("xiaomi"),
					BrandTitle: text("Xiaomi"), Code: text("haydn"), CodeAlias: null,
					ModelName: text("Redmi K40 Pro"), VerName: text("China"),
				},
			},
		},
		{
			name: "header columns in another order",
			content: "brand,model,ver_name,model_name,code_alias,code,brand_title,dtype\n" +
				"oppo,PHB110,China,OPPO Find X6,,taurus,OPPO,phone\n",
			opts: DefaultParseOptions(),
			expected: []PhoneModel{
				{
					Model: text("PHB110"), Dtype: text("phone"), Brand: text("oppo"),
					BrandTitle: text("OPPO"), Code: text("taurus"), CodeAlias: null,
					ModelName: text("OPPO Find X6"), VerName: text("China"),
				},
			},
		},
		{
			name: "headerless detected automatically",
			content: "A1,phone,b,B,c,ca,Name,Global\n" +
				"A2,pad,b,B,c,,Name 2,\n",
			opts: DefaultParseOptions(),
			expected: []PhoneModel{
				{Model: text("A1"), Dtype: text("phone"), Brand: text("b"), BrandTitle: text("B"),
					Code: text("c"), CodeAlias: text("ca"), ModelName: text("Name"), VerName: text("Global")},
				{Model: text("A2"), Dtype: text("pad"), Brand: text("b"), BrandTitle: text("B"),
					Code: text("c"), CodeAlias: null, ModelName: text("Name 2"), VerName: null},
			},
		},
		{
			name:    "header row kept as data when header is false",
			content: testHeader + "\n",
			opts:    ParseOptions{Delimiter: ',', Header: HeaderNever},
			expected: []PhoneModel{
				{Model: text("model"), Dtype: text("dtype"), Brand: text("brand"), BrandTitle: text("brand_title"),
					Code: text("code"), CodeAlias: text("code_alias"), ModelName: text("model_name"), VerName: text("ver_name")},
			},
		},
		{
			name:     "header only",
			content:  testHeader,
			opts:     DefaultParseOptions(),
			expected: nil,
		},
		{
			name:    "byte order mark and CRLF line endings",
			content: "\xef\xbb\xbf" + testHeader + "\r\nA1,phone,b,B,c,ca,Name,Global\r\n",
			opts:    DefaultParseOptions(),
			expected: []PhoneModel{
				{Model: text("A1"), Dtype: text("phone"), Brand: text("b"), BrandTitle: text("B"),
					Code: text("c"), CodeAlias: text("ca"), ModelName: text("Name"), VerName: text("Global")},
			},
		},
		{
			name: "quoted cells with delimiter, quote and line break",
			content: testHeader + "\n" +
				`A1,phone,b,"Line` + "\n" + `Break",c,"say ""hi""","Xiaomi's phone","Global, EEA"` + "\n",
			opts: DefaultParseOptions(),
			expected: []PhoneModel{
				{Model: text("A1"), Dtype: text("phone"), Brand: text("b"), BrandTitle: text("Line\nBreak"),
					Code: text("c"), CodeAlias: text(`say "hi"`), ModelName: text("Xiaomi's phone"), VerName: text("Global, EEA")},
			},
		},
		{
			name:    "quote inside an unquoted cell is literal",
			content: testHeader + "\nTAB1,pad,samsung,Samsung,gts8,,Galaxy Tab S8 11\" WiFi,Global\n",
			opts:    DefaultParseOptions(),
			expected: []PhoneModel{
				{Model: text("TAB1"), Dtype: text("pad"), Brand: text("samsung"), BrandTitle: text("Samsung"),
					Code: text("gts8"), CodeAlias: null, ModelName: text(`Galaxy Tab S8 11" WiFi`), VerName: text("Global")},
			},
		},
		{
			name:    "escaped quote inside a quoted cell",
			content: testHeader + "\nA1,phone,b,B,c,ca,\"Pad 12.4\"\" Pro\",Global\n",
			opts:    DefaultParseOptions(),
			expected: []PhoneModel{
				{Model: text("A1"), Dtype: text("phone"), Brand: text("b"), BrandTitle: text("B"),
					Code: text("c"), CodeAlias: text("ca"), ModelName: text(`Pad 12.4" Pro`), VerName: text("Global")},
			},
		},
		{
			name:    "configured null values",
			content: testHeader + "\nA1,NaN,b,B,N/A,,Name,Global\n",
			opts:    ParseOptions{Delimiter: ',', Header: HeaderAuto, NullValues: []string{"NaN", "N/A"}},
			expected: []PhoneModel{
				{Model: text("A1"), Dtype: null, Brand: text("b"), BrandTitle: text("B"),
					Code: null, CodeAlias: null, ModelName: text("Name"), VerName: text("Global")},
			},
		},
		{
			name:    "unknown column ignored",
			content: testHeader + ",note\nA1,phone,b,B,c,ca,Name,Global,extra\n",
			opts:    DefaultParseOptions(),
			expected: []PhoneModel{
				{Model: text("A1"), Dtype: text("phone"), Brand: text("b"), BrandTitle: text("B"),
					Code: text("c"), CodeAlias: text("ca"), ModelName: text("Name"), VerName: text("Global")},
			},
		},
		{
			name:    "tab delimited",
			content: strings.ReplaceAll(testHeader, ",", "\t") + "\nA1\tphone\tb\tB\tc\tca\tName, Pro\tGlobal\n",
			opts:    ParseOptions{Delimiter: '\t', Header: HeaderAuto},
			expected: []PhoneModel{
				{Model: text("A1"), Dtype: text("phone"), Brand: text("b"), BrandTitle: text("B"),
					Code: text("c"), CodeAlias: text("ca"), ModelName: text("Name, Pro"), VerName: text("Global")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models, err := ParseModels([]byte(tt.content), tt.opts)
			if err != nil {
				t.Fatalf("ParseModels() error = %v", err)
			}
			if diff := cmp.Diff(tt.expected, models); diff != "" {
				t.Errorf("ParseModels() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseModels_Error(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		opts         ParseOptions
		expectedLine int
		errContains  string
	}{
		{
			name:        "empty dataset",
			content:     "",
			opts:        DefaultParseOptions(),
			errContains: "dataset is empty",
		},
		{
			name:        "whitespace only",
			content:     "\n\n  \n",
			opts:        DefaultParseOptions(),
			errContains: "dataset is empty",
		},
		{
			name:         "short row",
			content:      testHeader + "\nA1,phone,b,B,c,ca,Name,Global\nA2,phone\n",
			opts:         DefaultParseOptions(),
			expectedLine: 3,
			errContains:  "column count (2) does not match expected column count (8)",
		},
		{
			name:         "header missing a column",
			content:      "model,dtype,brand,brand_title,code,code_alias,model_name\nA1,phone,b,B,c,ca,Name\n",
			opts:         ParseOptions{Delimiter: ',', Header: HeaderAlways},
			expectedLine: 1,
			errContains:  "missing required column 'ver_name'",
		},
		{
			name:         "duplicate header column",
			content:      testHeader + ",model\n",
			opts:         ParseOptions{Delimiter: ',', Header: HeaderAlways},
			expectedLine: 1,
			errContains:  "duplicate header column",
		},
		{
			name:         "headerless row with wrong width",
			content:      "A1,phone,b\n",
			opts:         ParseOptions{Delimiter: ',', Header: HeaderNever},
			expectedLine: 1,
			errContains:  "expected column count (8)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModels([]byte(tt.content), tt.opts)
			if err == nil {
				t.Fatal("ParseModels() expected error, got nil")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("ParseModels() error type = %T, want *ParseError", err)
			}
			if parseErr.Line != tt.expectedLine {
				t.Errorf("ParseError.Line = %d, want %d", parseErr.Line, tt.expectedLine)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestParseModels_GeneratedDataset(t *testing.T) {
	helper := fixtures.NewFactoryHelperWithConfig(t, fixtures.DataGenerationConfig{
		Size:           fixtures.Small,
		NullValueRatio: 0.2,
		UnicodeData:    true,
		EdgeCaseValues: true,
		CustomSeed:     42,
	})

	for _, withHeader := range []bool{true, false} {
		data, dataset := helper.CreateModelsCSVBytes(withHeader)

		models, err := ParseModels(data, DefaultParseOptions())
		if err != nil {
			t.Fatalf("ParseModels(header=%v) error = %v", withHeader, err)
		}
		if len(models) != len(dataset.Records) {
			t.Fatalf("ParseModels(header=%v) returned %d rows, want %d", withHeader, len(models), len(dataset.Records))
		}
		for i, record := range dataset.Records {
			want := record.Values()
			for j, got := range models[i].Values() {
				if want[j] == "" {
					if got.Valid {
						t.Errorf("row %d column %s = %q, want NULL", i, ModelColumns[j], got.String)
					}
					continue
				}
				if got != text(want[j]) {
					t.Errorf("row %d column %s = %+v, want %q", i, ModelColumns[j], got, want[j])
				}
			}
		}
	}
}
