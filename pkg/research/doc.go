// Package research runs AI research jobs against an external provider.
//
// A job moves pending → processing → completed, or to failed from either
// non-terminal state. Transitions only ever move forward: an observation
// that would send a job back to an earlier status is discarded. Terminal jobs
// are never touched again; retrying means submitting a new job.
//
// Submission is fire-and-forget. Submit stores the job as pending and hands
// it to the provider from a background goroutine; the outcome is only seen
// by later calls to Poll. When no provider is configured, or the provider
// rejects the submission, the job follows a simulated timeline derived
// purely from its age so the dashboard works without live credentials.
package research
