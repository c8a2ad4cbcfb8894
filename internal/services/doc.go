// Package services defines shared utilities consumed by the run pipeline and
// external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper so the executor and the
//     CLI can classify failures (skip vs retry vs abort) without inspecting
//     message text.
//   - Context helpers that stamp the run identifier for logging.
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
