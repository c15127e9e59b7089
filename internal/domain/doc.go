// Package domain contains the core business entities, value objects, and
// domain logic of the application: measurement tasks, their photos, the
// measurements taken on those photos, subtasks bound to measurements and the
// notification audit trail. It is independent of any specific infrastructure
// or delivery mechanism.
package domain
