// Package pagination drives offset based listing endpoints that do not
// report a total count.
//
// The only signal that a listing is exhausted is an empty page, so the
// sequencer always issues one request past the last non-empty page and
// never one more after an empty page arrives. Requests are strictly
// sequential: offset N+1 is requested only after every record of page N
// has been handed to the consumer and the consumer has returned.
//
// Example usage:
//
//	seq := pagination.NewSequencer[pinboard.Post](client, pagination.DefaultConfig())
//	state := pagination.NewRunState()
//	err := seq.Run(ctx, state, func(ctx context.Context, post pinboard.Post) error {
//		// handle one record; returning an error aborts the run
//		return nil
//	})
//
// Consumers can end pagination early with RunState.Stop, e.g. once a global
// processing limit is reached. No further request is issued after Stop.
package pagination
