//go:build tools

// Package tools documents development tool dependencies.
// These tools are run through `go run` or installed with `go install` and are not
// tracked in go.mod since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the ports in internal/core
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock/mockgen@v0.6.0
//
// goose - creates and inspects SQL migrations under internal/migrate/migrations
//   Install: go install github.com/pressly/goose/v3/cmd/goose@v3.26.0
//   New migration: goose -dir internal/migrate/migrations create add_posting_index sql
