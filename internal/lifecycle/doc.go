// Package lifecycle drives install, uninstall and update operations against
// the application API and tracks each one until the catalog shows it has
// taken effect.
//
// # Transitions
//
// Every operation follows the same shape:
//
//  1. The application id is marked in the shared state.Tracker under the
//     operation's kind (installing, uninstalling or updating). The mark is
//     visible to readers before the remote write returns.
//  2. The write is issued through a manager.AppWriter. If it fails the mark
//     is removed, the error is returned to the caller wrapped with the kind
//     and id, and the result is recorded as OutcomeRejected.
//  3. If it succeeds a poll loop is started for the id. Each tick refreshes
//     the view the kind depends on (the installed list for install and
//     uninstall, the catalog for update) and evaluates Complete. When the
//     predicate holds the mark is removed and the loop stops.
//
// Only one operation per application may be in flight. A second request for
// an id that is marked or still polling fails with ErrTransitionInProgress
// and never reaches the API.
//
// # Polling
//
// Loops tick every Options.PollInterval (DefaultPollInterval when unset) on
// an injected clock.Clock. A refresh failure is logged and retried on the
// next tick. Options.MaxAttempts and Options.PollTimeout bound a loop; both
// default to zero, which polls until the transition is observed or the loop
// is cancelled. A loop that runs out of budget clears its mark and records
// OutcomeTimedOut.
//
// Cancel stops one loop and clears its mark. Close stops all of them and
// waits for their goroutines to exit.
//
// # Testing
//
// Tests drive loops with github.com/juju/clock/testclock. WaitAdvance with a
// zero duration doubles as a barrier: it returns once the expected number of
// loops are parked on the clock, which means their previous tick has fully
// completed.
package lifecycle
