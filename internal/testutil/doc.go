// Package testutil provides shared test helpers: a slog logger that writes
// to the test log, deterministic ID sequences, and a small league fixture
// covering every entity type and relation class.
package testutil
