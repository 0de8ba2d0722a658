// Package retry provides the backoff decision function shared by every
// component that talks to an external collaborator, together with the
// Transient/Permanent error classification it consumes. The policy is a
// pure function: callers own scheduling and sleeping.
package retry
