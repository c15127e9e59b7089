// Package service contains the application use cases of the measurement
// system. It orchestrates domain objects, the stores defined in
// internal/store and the processing pipeline to fulfill the operations the
// API exposes.
//
// Key components:
//
// 1. MeasurementService:
//   - Records manual measurements on processed photos, reusing the scale the
//     pipeline persisted, and completes the linked subtask in the same
//     transaction
//   - Revises, reads and deletes measurements
//
// 2. UploadService:
//   - Accepts guest photo batches all-or-nothing, storing bytes in object
//     storage and rows in one transaction
//   - Requests processing for every stored photo once the batch commits
//   - Resets and re-dispatches photos on explicit reprocess requests
//
// 3. Error Handling:
//   - Expected conditions are sentinel errors checked with errors.Is
//   - Unexpected errors are wrapped in the service-specific error types
//
// The service layer depends on domain entities and store interfaces, never on
// specific infrastructure implementations.
package service
