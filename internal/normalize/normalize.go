// Package normalize turns raw inventory product strings into lookup queries.
// Inventory feeds attach architecture and enablement annotations to product
// names ("Windows Server 2016 (Arc-enabled)", "PostgreSQL 14 x86_64"); the
// resolver registry and cache both key on the cleaned form.
package normalize

import (
	"regexp"
	"strings"

	"sunset/internal/domain"
)

// noiseStrips is applied in order before any version extraction. Each entry
// removes one class of annotation that inventory collectors append to names.
var noiseStrips = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(\s*arc[\s-]?enabled\s*\)`),
	regexp.MustCompile(`(?i)\barc[\s-]?enabled\b`),
	regexp.MustCompile(`(?i)\bazure\s+arc\b`),
	regexp.MustCompile(`(?i)\(\s*(?:x86[_-]?64|x86|x64|amd64|arm64|aarch64|i[36]86)\s*\)`),
	regexp.MustCompile(`(?i)\b(?:x86[_-]64|amd64|arm64|aarch64|i[36]86)\b`),
	regexp.MustCompile(`(?i)\b(?:32|64)[\s-]?bit\b`),
	regexp.MustCompile(`\(\s*\)`),
}

// versionPatterns is tried in order; the first captured token that survives
// the qualifier stop-list wins. Order matters: year-style release trains
// outrank dotted versions, and a bare trailing integer outranks major.minor
// so "Windows 11" is not left versionless.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b((?:19|20)\d{2})\b`),
	regexp.MustCompile(`\b(\d+\.\d+\.\d+(?:\.\d+)?)\b`),
	regexp.MustCompile(`(?:^|\s)(\d{1,4})\s*$`),
	regexp.MustCompile(`\b(\d+\.\d+)\b`),
}

// versionStopList holds tokens that look version-shaped to the patterns
// above but are really product qualifiers. "Office 365" has no version 365.
var versionStopList = map[string]struct{}{
	"server":       {},
	"enterprise":   {},
	"runtime":      {},
	"standard":     {},
	"datacenter":   {},
	"professional": {},
	"core":         {},
	"edition":      {},
	"client":       {},
	"essentials":   {},
	"365":          {},
	"360":          {},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Parse cleans a raw product string and extracts its version. It never
// fails: unrecognizable input comes back as the cleaned string with an
// empty version. The normalized name keeps the version token; BaseName is
// the normalized name with that token removed, for resolver lookups.
func Parse(raw string) domain.Query {
	cleaned := raw
	for _, strip := range noiseStrips {
		cleaned = strip.ReplaceAllString(cleaned, " ")
	}
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(cleaned, " -,")

	version := extractVersion(cleaned)

	return domain.Query{
		Raw:        raw,
		Normalized: cleaned,
		BaseName:   stripVersionToken(cleaned, version),
		Version:    version,
	}
}

// ParseWithVersion is Parse with an explicitly supplied version. The
// explicit version wins over whatever the patterns would extract, but the
// normalized name is left untouched.
func ParseWithVersion(raw, version string) domain.Query {
	q := Parse(raw)
	version = strings.TrimSpace(version)
	if version != "" {
		q.Version = version
		q.BaseName = stripVersionToken(q.Normalized, version)
	}
	return q
}

func extractVersion(name string) string {
	for _, pattern := range versionPatterns {
		for _, match := range pattern.FindAllStringSubmatch(name, -1) {
			token := match[1]
			if _, stopped := versionStopList[strings.ToLower(token)]; stopped {
				continue
			}
			return token
		}
	}
	return ""
}

// stripVersionToken removes the first standalone occurrence of the version
// token from the name. When the version was supplied externally and never
// appears in the name, the name comes back unchanged.
func stripVersionToken(name, version string) string {
	if version == "" {
		return name
	}
	tokenPattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(version) + `\b`)
	if err != nil {
		return name
	}
	loc := tokenPattern.FindStringIndex(name)
	if loc == nil {
		return name
	}
	stripped := name[:loc[0]] + name[loc[1]:]
	stripped = whitespaceRun.ReplaceAllString(stripped, " ")
	return strings.Trim(stripped, " -,")
}
