// Package runner drives engagement runs: login all accounts, then a
// configured number of like+comment rounds with human-pacing delays.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"buzzrunner/internal/accounts"
	"buzzrunner/internal/auth"
	"buzzrunner/internal/platform"
	"buzzrunner/internal/sessionstore"
	"buzzrunner/pkg/models"
)

// Runner executes one run at a time; it is stateless across runs.
type Runner struct {
	factory platform.Factory
	store   *sessionstore.Store
}

func New(factory platform.Factory, store *sessionstore.Store) *Runner {
	return &Runner{factory: factory, store: store}
}

// Run executes the full run synchronously and always returns a result;
// errors along the way are folded into it. Within a run everything is
// sequential on purpose — the delays mimic human pacing.
func (r *Runner) Run(ctx context.Context, cfg models.RunConfig, log zerolog.Logger) *models.RunResult {
	accs := accounts.Parse(cfg.AccountsInput)
	comments := accounts.ParseComments(cfg.CommentsInput)

	// Pre-flight validation; nothing is attempted when it fails.
	switch {
	case len(accs) == 0:
		return failResult("no accounts provided")
	case len(comments) == 0:
		return failResult("no comments provided")
	case cfg.TargetPost == "":
		return failResult("no target post URL provided")
	}

	authMgr := auth.NewManager(r.factory, r.store, log)

	clients := make(map[string]platform.Client, len(accs))
	counts := make(map[string]int, len(accs))
	var active []string
	for _, acc := range accs {
		counts[acc.Username] = 0
		cl, err := authMgr.Authenticate(ctx, acc, cfg.Proxy)
		if err != nil {
			log.Error().Err(err).Str("user", acc.Username).Msg("login failed")
			continue
		}
		log.Info().Str("user", acc.Username).Msg("login succeeded")
		clients[acc.Username] = cl
		active = append(active, acc.Username)
	}
	if len(active) == 0 {
		return failResult("no accounts logged in")
	}

	exec := newExecutor(cfg, comments, counts, log)

	for round := 0; round < cfg.Iterations; round++ {
		log.Info().Int("round", round+1).Int("rounds", cfg.Iterations).Int("active", len(active)).Msg("round started")

		for _, username := range snapshot(active) {
			if ctx.Err() != nil {
				return cancelledResult(accs, active, counts)
			}

			err := exec.runAccount(ctx, clients[username], username)
			if err != nil {
				var fatal *accountFatalError
				switch {
				case errors.As(err, &fatal):
					log.Error().Err(err).Str("user", username).Msg("account removed from run")
					active = remove(active, username)
					delete(clients, username)
				case ctx.Err() != nil:
					return cancelledResult(accs, active, counts)
				default:
					log.Error().Err(err).Str("user", username).Msg("account action failed")
				}
			}

			// Best-effort re-save so token rotations survive restarts.
			if cl, ok := clients[username]; ok {
				authMgr.SaveSession(username, cl)
			}

			if err := sleepCtx(ctx, cfg.DelayBetweenAccounts); err != nil {
				return cancelledResult(accs, active, counts)
			}
		}

		if round < cfg.Iterations-1 {
			if err := sleepCtx(ctx, cfg.DelayBetweenRounds); err != nil {
				return cancelledResult(accs, active, counts)
			}
		}
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return &models.RunResult{
		Success: true,
		Message: fmt.Sprintf("run finished: %d comments sent", total),
		Stats:   stats(accs, active, counts),
	}
}

func stats(accs []models.Account, active []string, counts map[string]int) models.RunStats {
	total := 0
	for _, n := range counts {
		total += n
	}
	return models.RunStats{
		TotalComments:  total,
		ActiveAccounts: len(active),
		TotalAccounts:  len(accs),
		AccountDetails: counts,
	}
}

func failResult(msg string) *models.RunResult {
	return &models.RunResult{Success: false, Message: msg}
}

func cancelledResult(accs []models.Account, active []string, counts map[string]int) *models.RunResult {
	return &models.RunResult{Success: false, Message: "run cancelled", Stats: stats(accs, active, counts)}
}

func snapshot(s []string) []string {
	return append([]string(nil), s...)
}

func remove(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
