// Package enrollment provides gate.EnrollmentStore implementations.
//
// All of them also implement gate.EnrollmentCreator, so concurrent first
// visits for one identity settle on a single secret:
//
//   - MemoryStore: process memory, for tests and demos
//   - FileStore: one JSON file, written atomically via temp file and rename
//   - PostgresStore: table tfa_enrollments, see Schema
//   - RedisStore: one JSON value per identity, no expiry
//
// NewStore picks one by persistence type ("memory", "file", "postgres",
// "redis").
package enrollment
