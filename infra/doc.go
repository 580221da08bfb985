// Package infra contains technical adapters — structured logging and
// metrics exporters — that depend only on the interfaces defined in the
// core packages.
package infra
