// Package cleaning implements the content transforms run by cleaning tasks.
//
// Transformer provides the deterministic transforms for every core.TaskType.
// Refining wraps any Cleaner and passes text_cleanup output through an
// ai.Refiner before it is stored.
package cleaning
