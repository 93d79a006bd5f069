package cleaning

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/poiesic/scour/core"
)

const wordsPerMinute = 200

// Metadata is the document produced by metadata_extraction tasks.
type Metadata struct {
	FileID              core.ID           `json:"file_id"`
	TaskID              core.ID           `json:"task_id"`
	ProcessingTimestamp time.Time         `json:"processing_timestamp"`
	Statistics          ContentStatistics `json:"content_statistics"`
	Analysis            ContentAnalysis   `json:"content_analysis"`
	SizeBytes           int               `json:"size_bytes"`
}

// ContentStatistics are counts derived from the raw text.
type ContentStatistics struct {
	TotalLines               int     `json:"total_lines"`
	NonEmptyLines            int     `json:"non_empty_lines"`
	EmptyLines               int     `json:"empty_lines"`
	TotalWords               int     `json:"total_words"`
	UniqueWords              int     `json:"unique_words"`
	TotalCharacters          int     `json:"total_characters"`
	CharactersNoSpaces       int     `json:"characters_no_spaces"`
	AverageWordsPerLine      float64 `json:"average_words_per_line"`
	AverageCharactersPerLine float64 `json:"average_characters_per_line"`
	ReadingTimeMinutes       int     `json:"reading_time_minutes"`
}

// ContentAnalysis holds heuristic classifications of the text.
type ContentAnalysis struct {
	ContentKind     string  `json:"content_type"`
	Language        string  `json:"language"`
	ComplexityScore float64 `json:"complexity_score"`
	HasNumbers      bool    `json:"has_numbers"`
	HasSpecialChars bool    `json:"has_special_chars"`
	SentenceCount   int     `json:"sentence_count"`
}

// ExtractMetadata builds the metadata document for task and renders it as
// indented JSON.
func ExtractMetadata(task *core.CleaningTask, now time.Time) (string, error) {
	md := Metadata{
		FileID:              task.FileID,
		TaskID:              task.Id,
		ProcessingTimestamp: now.UTC(),
		Statistics:          Statistics(task.InputContent),
		Analysis:            Analyze(task.InputContent),
		SizeBytes:           len(task.InputContent),
	}
	out, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(out), nil
}

// Statistics counts lines, words and characters in text.
func Statistics(text string) ContentStatistics {
	var s ContentStatistics
	if text != "" {
		lines := strings.Split(strings.TrimSuffix(normalizeLineEndings(text), "\n"), "\n")
		s.TotalLines = len(lines)
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				s.EmptyLines++
			}
		}
		s.NonEmptyLines = s.TotalLines - s.EmptyLines
	}

	words := strings.Fields(text)
	s.TotalWords = len(words)
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	s.UniqueWords = len(unique)

	for _, r := range text {
		s.TotalCharacters++
		if !unicode.IsSpace(r) {
			s.CharactersNoSpaces++
		}
	}
	if s.NonEmptyLines > 0 {
		s.AverageWordsPerLine = float64(s.TotalWords) / float64(s.NonEmptyLines)
		s.AverageCharactersPerLine = float64(s.TotalCharacters) / float64(s.NonEmptyLines)
	}
	s.ReadingTimeMinutes = int(math.Ceil(float64(s.TotalWords) / wordsPerMinute))
	return s
}

// Analyze classifies text with keyword heuristics.
func Analyze(text string) ContentAnalysis {
	a := ContentAnalysis{
		ContentKind:     DetectContentKind(text),
		Language:        DetectLanguage(text),
		ComplexityScore: ComplexityScore(text),
		SentenceCount:   SentenceCount(text),
	}
	for _, r := range text {
		if unicode.IsNumber(r) {
			a.HasNumbers = true
		}
		if isSpecial(r) {
			a.HasSpecialChars = true
		}
	}
	return a
}

// SentenceCount returns the number of sentence terminators in text.
func SentenceCount(text string) int {
	return strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
}

var contentKinds = []struct {
	kind     string
	keywords []string
}{
	{"technical_documentation", []string{"api", "endpoint", "function"}},
	{"code", []string{"def ", "class ", "import ", "const ", "var "}},
	{"email", []string{"dear ", "sincerely", "regards"}},
	{"meeting_notes", []string{"meeting", "agenda", "minutes"}},
	{"research", []string{"research", "study", "analysis"}},
	{"article", []string{"introduction", "conclusion", "article"}},
}

// DetectContentKind guesses what sort of document text is. The first kind
// with a matching keyword wins; "general_text" otherwise.
func DetectContentKind(text string) string {
	lower := strings.ToLower(text)
	for _, ck := range contentKinds {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				return ck.kind
			}
		}
	}
	return "general_text"
}

var stopWords = map[string][]string{
	"english": {"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by"},
	"spanish": {"el", "la", "de", "que", "y", "a", "en", "un", "es", "se", "no", "te"},
	"french":  {"le", "de", "et", "à", "un", "il", "être", "en", "avoir", "que", "pour"},
}

// DetectLanguage picks the language whose common words occur most often in
// text. Ties favour english, then spanish, then french. Text with no common
// words at all is "unknown".
func DetectLanguage(text string) string {
	counts := make(map[string]int, len(stopWords))
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		for lang, words := range stopWords {
			for _, sw := range words {
				if w == sw {
					counts[lang]++
					break
				}
			}
		}
	}

	best, bestCount := "unknown", 0
	for _, lang := range []string{"english", "spanish", "french"} {
		if counts[lang] > bestCount {
			best, bestCount = lang, counts[lang]
		}
	}
	return best
}

// ComplexityScore rates text between 0 and 1 from word length, sentence
// length, punctuation density and capitalisation.
func ComplexityScore(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	n := float64(len(words))

	var letters, capitalized int
	for _, w := range words {
		letters += len(w)
		for _, r := range w {
			if unicode.IsUpper(r) {
				capitalized++
			}
			break
		}
	}
	special := 0
	for _, r := range text {
		if isSpecial(r) {
			special++
		}
	}
	sentences := max(SentenceCount(text)+1, 1)

	score := math.Min(float64(letters)/n/10, 0.3)
	score += math.Min(n/float64(sentences)/20, 0.3)
	score += math.Min(float64(special)/n, 0.2)
	score += math.Min(float64(capitalized)/n, 0.2)
	return math.Min(score, 1)
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsSpace(r)
}
