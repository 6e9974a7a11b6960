// Package domain defines the core business entities for Triage.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - PatientRecord: A structured patient case from the patient dataset
//   - GuidelineChunk: A stored span of guideline text, the unit of retrieval
//   - EvidenceChunk: A retrieval result with its source attribution
//   - Citation: A page-attributed excerpt backing a clinical claim
//   - AssessmentResult: The referral decision produced for a patient
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
