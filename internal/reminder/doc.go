// Package reminder triggers the planner daemon's recurring jobs (today's
// agenda, autosave, weekly load checks) on cron expressions, fixed
// intervals or daily clock times.
//
// Jobs run directly on the cron goroutine with a per-run timeout. A job that
// is still running when its next trigger fires is skipped, not queued.
package reminder
