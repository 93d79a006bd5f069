package cleaning

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxBlankRun = 2

// NormalizeFormat converts line endings to LF, trims trailing whitespace
// from every line and collapses runs of more than two blank lines.
func NormalizeFormat(input string) string {
	lines := strings.Split(normalizeLineEndings(input), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			blank++
			if blank > maxBlankRun {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ConvertFormat normalizes input and prefixes it with a conversion report.
func ConvertFormat(input string) string {
	normalized := NormalizeFormat(input)
	nonASCII := 0
	for _, r := range normalized {
		if r > unicode.MaxASCII && !unicode.IsSpace(r) {
			nonASCII++
		}
	}

	var b strings.Builder
	b.WriteString("Format Conversion Report\n")
	b.WriteString("========================\n")
	fmt.Fprintf(&b, "Original size: %d bytes\n", len(input))
	fmt.Fprintf(&b, "Converted size: %d bytes\n", len(normalized))
	fmt.Fprintf(&b, "UTF-8 valid: %t\n", utf8.ValidString(normalized))
	fmt.Fprintf(&b, "Special characters found: %d\n", nonASCII)
	b.WriteString("Line ending type: Unix (LF)\n\n")
	b.WriteString("Converted Content:\n")
	b.WriteString("==================\n")
	b.WriteString(normalized)
	return b.String()
}
