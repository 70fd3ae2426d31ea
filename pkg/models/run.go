package models

import (
	"fmt"
	"strings"
	"time"
)

// RunStatus represents the current state of an engagement run
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusFailed    RunStatus = "FAILED"
	StatusCancelled RunStatus = "CANCELLED"
)

// RunRequest is the payload for starting a run. Field names match the
// frontend contract; delays are plain seconds.
type RunRequest struct {
	AccountsInput        string  `json:"accounts_input"`
	TargetPost           string  `json:"target_post"`
	CommentsInput        string  `json:"comments_input"`
	MaxComments          *int    `json:"max_comments,omitempty"`
	Iterations           *int    `json:"iterations,omitempty"`
	DelayAfterLike       *int    `json:"delay_after_like,omitempty"`
	DelayAfterComment    *int    `json:"delay_after_comment,omitempty"`
	DelayBetweenAccounts *int    `json:"delay_between_accounts,omitempty"`
	DelayBetweenRounds   *int    `json:"delay_between_rounds,omitempty"`
	Proxy                string  `json:"proxy,omitempty"`
	ClientID             string  `json:"client_id,omitempty"`
}

// Validate checks the fields that must be present before a run is even
// attempted. It reports the first missing field by its JSON name.
func (r *RunRequest) Validate() error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"accounts_input", r.AccountsInput},
		{"target_post", r.TargetPost},
		{"comments_input", r.CommentsInput},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("field %s is required", f.name)
		}
	}
	return nil
}

// RunConfig is the immutable, typed configuration a run executes with.
type RunConfig struct {
	AccountsInput string
	TargetPost    string
	CommentsInput string
	MaxComments   int
	Iterations    int

	DelayAfterLike       time.Duration
	DelayAfterComment    time.Duration
	DelayBetweenAccounts time.Duration
	DelayBetweenRounds   time.Duration

	Proxy string
}

// Config applies defaults and converts the request into a RunConfig.
func (r *RunRequest) Config() RunConfig {
	return RunConfig{
		AccountsInput:        r.AccountsInput,
		TargetPost:           strings.TrimSpace(r.TargetPost),
		CommentsInput:        r.CommentsInput,
		MaxComments:          intOr(r.MaxComments, 1),
		Iterations:           intOr(r.Iterations, 1),
		DelayAfterLike:       secondsOr(r.DelayAfterLike, 5*time.Second),
		DelayAfterComment:    secondsOr(r.DelayAfterComment, 5*time.Second),
		DelayBetweenAccounts: secondsOr(r.DelayBetweenAccounts, 5*time.Second),
		DelayBetweenRounds:   secondsOr(r.DelayBetweenRounds, 10*time.Second),
		Proxy:                strings.TrimSpace(r.Proxy),
	}
}

func intOr(v *int, def int) int {
	if v == nil || *v < 0 {
		return def
	}
	return *v
}

func secondsOr(v *int, def time.Duration) time.Duration {
	if v == nil || *v < 0 {
		return def
	}
	return time.Duration(*v) * time.Second
}

// RunStats aggregates what a finished run accomplished.
type RunStats struct {
	TotalComments  int            `json:"total_comments"`
	ActiveAccounts int            `json:"active_accounts"`
	TotalAccounts  int            `json:"total_accounts"`
	AccountDetails map[string]int `json:"account_details"`
}

// RunResult is the outcome reported back to the caller.
type RunResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Stats   RunStats `json:"stats"`
}

// Run represents one tracked engagement run.
type Run struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"clientId,omitempty"`
	Status     RunStatus  `json:"status"`
	TargetPost string     `json:"targetPost"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Result     *RunResult `json:"result,omitempty"`
}
