// Package scheduler implements admission control for generation jobs: a
// bounded number of queued jobs are started on their own goroutines, a freed
// capacity slot immediately admits the next queued job, and queue positions
// are re-ranked after every admission change.
package scheduler
