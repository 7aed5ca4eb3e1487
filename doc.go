// Package talentwire provides the real-time core of a recruiting
// marketplace: a connection-scoped event broker, cascading status
// transitions across users, jobs, and applications, skill matching,
// and a scheduled external-listing import pipeline.
//
// Talentwire is designed as a library, not a service. Import it,
// configure a store, and wire the engine behind your HTTP layer.
//
// # Quick Start
//
//	eng := engine.New(memory.New(), engine.WithLogger(logger))
//	auth := gateway.NewJWTAuthenticator(secret, 24*time.Hour)
//	srv := gateway.NewServer(eng, auth)
//	http.ListenAndServe(":8080", srv)
//
// # Architecture
//
// Talentwire follows a composable store pattern where each entity
// subsystem (user, job, application, profile) defines its own store
// interface. A single backend implements all of them; the in-memory
// backend ships with the module for tests and development.
//
// Status changes never write entity fields directly. The transition
// package decides whether a change is legal and which side effects it
// carries, and the cascade executor applies those side effects and
// forwards the resulting events to the broker.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package talentwire
