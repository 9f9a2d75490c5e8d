// Package event provides lightweight notification primitives.
//
// An Emitter fans a value out to listeners; a Signal is an Emitter that
// carries no value. Every Subscribe returns a Subscription whose Cancel is
// idempotent, and a Scope groups subscriptions that are acquired together and
// must be released together:
//
//	scope := event.NewScope()
//	scope.Add(service.OnStateChanged(onState))
//	scope.Add(viewModel.OnFocusedStackFrameUpdated(onFrame))
//	defer scope.Close()
//
// Emitters are safe for concurrent use. Delivery is synchronous in the
// emitting goroutine; callers that need single-threaded handling post work to
// a loop before emitting.
package event
