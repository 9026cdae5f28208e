// Package mocks provides test doubles for ports interfaces.
//
// Store is a thread-safe, in-memory implementation of ports.Store. Its
// conditional updates mirror the SQL: a claim only succeeds on a pending
// item, a Kanban transition only applies while the record is still in the
// expected status, and enqueue is rejected while the message has a live item.
// Each mock provides:
//
//   - Default behavior that matches the PostgreSQL store
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for setting and inspecting state directly
//
// # Usage Example
//
//	func TestMyService(t *testing.T) {
//		store := mocks.NewStore()
//		store.AddFeedback(domain.FeedbackRecord{ID: "f1", Text: "slow app"})
//
//		svc := NewService(store)
//		// ... test service behavior
//	}
package mocks
