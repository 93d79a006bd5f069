// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

// repairJSON attempts to fix common JSON formatting issues from LLM responses:
// keys missing their opening quote and trailing commas before a closing
// bracket.
func repairJSON(s string) string {
	return dropTrailingCommas(quoteKeys([]rune(s)))
}

// quoteKeys restores a missing opening quote before object keys.
// Example: `, type":` -> `, "type":`
func quoteKeys(in []rune) []rune {
	out := make([]rune, 0, len(in)+16)

	i := 0
	for i < len(in) {
		ch := in[i]
		out = append(out, ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		for i < len(in) && isSpace(in[i]) {
			out = append(out, in[i])
			i++
		}
		if i >= len(in) || in[i] == '"' || !isLetter(in[i]) {
			continue
		}

		keyStart := i
		for i < len(in) && (isLetter(in[i]) || in[i] == '_') {
			i++
		}
		// Only a key followed by `":` is missing its opening quote
		if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
			out = append(out, '"')
		}
		out = append(out, in[keyStart:i]...)
	}
	return out
}

// dropTrailingCommas removes commas that directly precede } or ], outside strings.
func dropTrailingCommas(in []rune) string {
	out := make([]rune, 0, len(in))
	inString, escaped := false, false

	for i, ch := range in {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			out = append(out, ch)
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' && closesNext(in[i+1:]) {
			continue
		}
		out = append(out, ch)
	}
	return string(out)
}

// closesNext reports whether the next non-space rune closes an object or array.
func closesNext(rest []rune) bool {
	for _, r := range rest {
		if isSpace(r) {
			continue
		}
		return r == '}' || r == ']'
	}
	return false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
