// Package connector provides the framework for building audit-log source
// adapters against cloud vendor APIs.
//
// The package is organized into several sub-packages:
//
//   - core: Defines the SourceAdapter interface that all vendor adapters
//     implement, the raw record and canonical event types, and shared helpers
//     for timestamp normalization and relevant-user extraction.
//
//   - base: Provides the retry policy driving paginated API fetches, with
//     exponential backoff and retryable-error classification.
//
//   - sources: Contains the vendor adapter implementations. Each adapter
//     translates its vendor's pagination scheme, timestamp format and record
//     identity into the common adapter contract.
//
//   - registry: Implements a factory pattern for adapter discovery and
//     instantiation. Adapters self-register during initialization via blank
//     imports in the command entry point.
//
// An adapter is deliberately passive: it builds requests, parses pages and
// maps records, while the engine package owns pagination, retries, rate
// limiting and watermark filtering. Adding a vendor means implementing
// core.SourceAdapter and registering a factory; nothing in the engine or
// sink changes.
package connector
