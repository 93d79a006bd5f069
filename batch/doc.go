// Package batch runs queued cleaning tasks and reports progress.
//
// Processor drains pending tasks one at a time, publishing started,
// progress and completed events on an events.Bus. A RunGuard shared between
// runners ensures only one batch runs at a time.
package batch
