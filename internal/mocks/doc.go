// Package mocks provides centralized fakes for testing.
//
// MemoryStore implements every store interface plus store.Transactor over
// in-memory maps, with rollback on failed transactions and hooks for fault
// injection. The remaining types fake the external collaborators of the
// pipeline and the services: the vision analyzer, object storage, the delay
// scheduler, the event emitter and the notification publisher.
//
// Usage:
//
//	memStore := mocks.NewMemoryStore()
//	memStore.PutTask(task)
//	analyzer := &mocks.MockAnalyzer{
//	    AnalyzeFn: func(ctx context.Context, req vision.AnalyzeRequest) (*vision.Result, error) {
//	        return nil, vision.ErrTransportFailure
//	    },
//	}
//
// Fakes follow the same pattern: an optional Fn field per method, default
// return values, and mutex-guarded call tracking.
package mocks
