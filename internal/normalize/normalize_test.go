package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantNormalized string
		wantBaseName   string
		wantVersion    string
	}{
		{
			name:           "arc enablement annotation stripped, year version kept in name",
			raw:            "Windows Server 2016 (Arc-enabled)",
			wantNormalized: "Windows Server 2016",
			wantBaseName:   "Windows Server",
			wantVersion:    "2016",
		},
		{
			name:           "arc annotation without parentheses",
			raw:            "Windows Server 2019 Arc enabled",
			wantNormalized: "Windows Server 2019",
			wantBaseName:   "Windows Server",
			wantVersion:    "2019",
		},
		{
			name:           "architecture marker stripped",
			raw:            "PostgreSQL 14 x86_64",
			wantNormalized: "PostgreSQL 14",
			wantBaseName:   "PostgreSQL",
			wantVersion:    "14",
		},
		{
			name:           "parenthesized architecture stripped",
			raw:            "SQL Server 2019 (x64)",
			wantNormalized: "SQL Server 2019",
			wantBaseName:   "SQL Server",
			wantVersion:    "2019",
		},
		{
			name:           "bitness marker stripped",
			raw:            "Java 8 64-bit",
			wantNormalized: "Java 8",
			wantBaseName:   "Java",
			wantVersion:    "8",
		},
		{
			name:           "whitespace collapsed and trimmed",
			raw:            "  Red   Hat  Enterprise Linux   8.6  ",
			wantNormalized: "Red Hat Enterprise Linux 8.6",
			wantBaseName:   "Red Hat Enterprise Linux",
			wantVersion:    "8.6",
		},
		{
			name:           "dotted semantic version",
			raw:            "Python 3.11.5",
			wantNormalized: "Python 3.11.5",
			wantBaseName:   "Python",
			wantVersion:    "3.11.5",
		},
		{
			name:           "major minor not misread as trailing integer",
			raw:            "Ubuntu 22.04",
			wantNormalized: "Ubuntu 22.04",
			wantBaseName:   "Ubuntu",
			wantVersion:    "22.04",
		},
		{
			name:           "single trailing integer",
			raw:            "Windows 11",
			wantNormalized: "Windows 11",
			wantBaseName:   "Windows",
			wantVersion:    "11",
		},
		{
			name:           "year wins over trailing integer position",
			raw:            "Exchange Server 2013 CU23",
			wantNormalized: "Exchange Server 2013 CU23",
			wantBaseName:   "Exchange Server CU23",
			wantVersion:    "2013",
		},
		{
			name:           "qualifier stop list blocks numeric product family",
			raw:            "Office 365",
			wantNormalized: "Office 365",
			wantBaseName:   "Office 365",
			wantVersion:    "",
		},
		{
			name:           "no version at all",
			raw:            "mystery-internal-tool",
			wantNormalized: "mystery-internal-tool",
			wantBaseName:   "mystery-internal-tool",
			wantVersion:    "",
		},
		{
			name:           "empty input",
			raw:            "",
			wantNormalized: "",
			wantBaseName:   "",
			wantVersion:    "",
		},
		{
			name:           "pure noise input collapses to empty",
			raw:            " (x64) 64-bit ",
			wantNormalized: "",
			wantBaseName:   "",
			wantVersion:    "",
		},
		{
			name:           "dotted name not misread as version",
			raw:            "node.js 18",
			wantNormalized: "node.js 18",
			wantBaseName:   "node.js",
			wantVersion:    "18",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.raw)
			assert.Equal(t, tt.raw, q.Raw)
			assert.Equal(t, tt.wantNormalized, q.Normalized)
			assert.Equal(t, tt.wantBaseName, q.BaseName)
			assert.Equal(t, tt.wantVersion, q.Version)
		})
	}
}

func TestParseWithVersion(t *testing.T) {
	t.Run("explicit version overrides extracted", func(t *testing.T) {
		q := ParseWithVersion("Windows Server 2016", "2019")
		assert.Equal(t, "Windows Server 2016", q.Normalized)
		assert.Equal(t, "2019", q.Version)
		// The explicit token is absent from the name, so the base name keeps it.
		assert.Equal(t, "Windows Server 2016", q.BaseName)
	})

	t.Run("explicit version on versionless name", func(t *testing.T) {
		q := ParseWithVersion("mystery-internal-tool", "1.2.3")
		assert.Equal(t, "mystery-internal-tool", q.Normalized)
		assert.Equal(t, "mystery-internal-tool", q.BaseName)
		assert.Equal(t, "1.2.3", q.Version)
	})

	t.Run("blank explicit version keeps extraction", func(t *testing.T) {
		q := ParseWithVersion("Python 3.11.5", "  ")
		assert.Equal(t, "3.11.5", q.Version)
		assert.Equal(t, "Python", q.BaseName)
	})
}

func TestParseDeterminism(t *testing.T) {
	// Same raw string, same query, every time.
	first := Parse("Windows Server 2016 (Arc-enabled)")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Parse("Windows Server 2016 (Arc-enabled)"))
	}
}
