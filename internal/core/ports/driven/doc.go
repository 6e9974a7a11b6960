// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports).
//
// Driven ports are what the core needs from the outside world: the
// language model, the embedding service, the vector index, and the
// stores for patients, guideline chunks, assessments, configuration
// and prompts. Adapters implement these interfaces; core services
// depend only on the interfaces.
package driven
