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


package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/scour/core"
)

// Cleaner turns the input content of a task into its output content.
type Cleaner interface {
	Clean(ctx context.Context, task *core.CleaningTask) (string, error)
}

// Transformer runs the built-in transform for each task type.
type Transformer struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		t.logger = logger
	}
}

// WithClock overrides the clock used for processing timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		t.now = now
	}
}

// NewTransformer creates a Transformer.
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "cleaning-transformer")
	return t
}

// Clean implements Cleaner.
func (t *Transformer) Clean(ctx context.Context, task *core.CleaningTask) (string, error) {
	if task == nil {
		return "", core.ErrInvalidTask
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(task.InputContent) == "" {
		return "", ErrNoInput
	}

	var (
		out string
		err error
	)
	switch task.Type {
	case core.TaskTypeTextCleanup:
		out = CleanupText(task.InputContent)
	case core.TaskTypeMetadataExtraction:
		out, err = ExtractMetadata(task, t.now())
	case core.TaskTypeFormatConversion:
		out = ConvertFormat(task.InputContent)
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidTaskType, task.Type)
	}
	if err != nil {
		return "", err
	}

	t.logger.Debug("transformed task content",
		"task_id", task.Id,
		"type", task.Type,
		"input_bytes", len(task.InputContent),
		"output_bytes", len(out))
	return out, nil
}

// CleanupText trims every line, drops blank lines and joins the rest with "\n".
func CleanupText(input string) string {
	lines := strings.Split(normalizeLineEndings(input), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
