// Package storage defines the persistence contracts for CareLink.
//
// # Overview
//
// The storage layer is split into focused interfaces that services depend on
// individually:
//
//   - UserStore: staff accounts (the credential store)
//   - PermissionStore: per-user capability flags
//   - PatientStore, DoctorStore, MappingStore: clinical records
//   - IssueStore: issue requests
//   - HealthChecker: backend liveness
//
// These compose into Store, which a backend implements in full.
//
// # Backend Implementations
//
// postgres.Store keeps everything in PostgreSQL via lib/pq. Unique constraints on
// username and email are enforced by the database and surface as *DuplicateError.
//
//	db, err := postgres.Open(ctx, cfg)
//	store := postgres.NewStore(db)
//
// memory.Store keeps everything in process. It is used for local development
// (CARELINK_STORAGE_TYPE=memory) and by handler and service tests.
//
// # Errors
//
// Lookups that find nothing return ErrNotFound. Writes that violate a unique
// constraint return a *DuplicateError naming the field. Other failures are
// wrapped with context and should be treated as internal.
//
// # Identity
//
// Stored user ids start at 1. Id 0 is reserved for the configured super-admin
// and is never written.
package storage
