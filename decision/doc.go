// Package decision implements the per-task authorization levels that gate
// whether and when a task body may run.
//
// A Level is a tagged variant with four kinds:
//
//   - Mechanical runs at once; its executor call is retried MaxRetries times.
//   - Recommended waits Timeout for a cancel signal, then proceeds with
//     DefaultAction.
//   - Confirmed waits, without timeout, for one approve or reject signal.
//   - Arbitrated collects stakeholder votes until Quorum approvals exist or
//     the quorum can no longer be reached.
//
// Signals reach a waiting task through a Hub, which keeps one Mailbox per
// (run, task). Signals posted before the task starts waiting are buffered.
package decision
