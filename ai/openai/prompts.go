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

import "fmt"

const refineResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "cleaned_text": {
      "type": "string"
    }
  },
  "required": ["cleaned_text"],
  "additionalProperties": false
}`

const refinePromptTemplate = `Clean up the given text and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Fix broken line wraps, stray hyphenation, repeated whitespace and obvious OCR or encoding artifacts.
- Keep the original wording, language and order. Do not summarize, translate or add content.
- Keep paragraph breaks as single newline characters.
- If the text needs no changes, return it unchanged.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "The quick brown fox jum-\nped over the  lazy dog."
Output:
{"cleaned_text":"The quick brown fox jumped over the lazy dog."}`

// buildSystemPrompt creates the system prompt with the response schema embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(refinePromptTemplate, refineResponseSchema)
}
