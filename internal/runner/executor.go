package runner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"buzzrunner/internal/platform"
	"buzzrunner/pkg/models"
)

const fallbackRetries = 3

// fallbackDelay returns the wait before retry attempt+1 of the fallback
// comment path: 1s, 2s, 4s.
func fallbackDelay(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}

// accountFatalError marks a failure that removes the account from all
// subsequent rounds. Any other executor failure only aborts the current
// action.
type accountFatalError struct {
	username string
	err      error
}

func (e *accountFatalError) Error() string {
	return fmt.Sprintf("[%s] verification required: %v", e.username, e.err)
}

func (e *accountFatalError) Unwrap() error { return e.err }

// executor performs the like+comment sequence for one account per round.
// It owns the shared comment counters for the run.
type executor struct {
	cfg      models.RunConfig
	comments []string
	counts   map[string]int
	log      zerolog.Logger

	// Overridable in tests; defaults to fallbackDelay.
	backoff func(attempt int) time.Duration
}

func newExecutor(cfg models.RunConfig, comments []string, counts map[string]int, log zerolog.Logger) *executor {
	return &executor{
		cfg:      cfg,
		comments: comments,
		counts:   counts,
		log:      log,
		backoff:  fallbackDelay,
	}
}

// runAccount executes one round of actions for the account. A returned
// *accountFatalError drops the account from later rounds; a context
// error aborts the run; nil means the round is done for this account
// (successfully or not).
func (e *executor) runAccount(ctx context.Context, cl platform.Client, username string) error {
	log := e.log.With().Str("user", username).Logger()

	mediaID, err := cl.ResolveMediaID(ctx, e.cfg.TargetPost)
	if err != nil {
		log.Error().Err(err).Str("url", e.cfg.TargetPost).Msg("failed to resolve target post")
		return nil
	}

	if err := cl.Like(ctx, mediaID); err != nil {
		log.Warn().Err(err).Msg("like failed")
		if platform.IsChallenge(err) {
			return &accountFatalError{username: username, err: err}
		}
	} else {
		log.Info().Str("media_id", mediaID).Msg("liked target post")
		if err := sleepCtx(ctx, e.cfg.DelayAfterLike); err != nil {
			return err
		}
	}

	current := e.counts[username]
	if current >= e.cfg.MaxComments {
		log.Info().Int("count", current).Int("max", e.cfg.MaxComments).Msg("comment limit reached, skipping")
		return nil
	}
	if len(e.comments) == 0 {
		log.Info().Msg("no candidate comments available")
		return nil
	}
	text := e.comments[rand.Intn(len(e.comments))]

	err = cl.Comment(ctx, mediaID, text)
	if err == nil {
		e.counts[username] = current + 1
		log.Info().Str("comment", text).Int("count", e.counts[username]).Int("max", e.cfg.MaxComments).Msg("comment posted")
		return sleepCtx(ctx, e.cfg.DelayAfterComment)
	}

	log.Warn().Err(err).Msg("comment failed")
	switch {
	case platform.IsChallenge(err):
		return &accountFatalError{username: username, err: err}
	case platform.IsRateLimited(err):
		log.Error().Err(err).Msg("rate limited or action blocked, stopping comment attempts")
		return nil
	}

	ok, err := e.fallbackComment(ctx, cl, mediaID, text, log)
	if err != nil {
		if platform.IsChallenge(err) {
			return &accountFatalError{username: username, err: err}
		}
		return err // context cancellation
	}
	if ok {
		e.counts[username] = current + 1
		log.Info().Str("comment", text).Int("count", e.counts[username]).Int("max", e.cfg.MaxComments).Msg("comment posted via fallback")
		return sleepCtx(ctx, e.cfg.DelayAfterComment)
	}
	log.Warn().Int("attempts", fallbackRetries).Msg("fallback comment exhausted all attempts")
	return nil
}

// fallbackComment retries the comment through the raw request interface.
// Any response without an explicit failure marker counts as success.
func (e *executor) fallbackComment(ctx context.Context, cl platform.Client, mediaID, text string, log zerolog.Logger) (bool, error) {
	endpoint := fmt.Sprintf("media/%s/comment/", mediaID)
	payload := map[string]string{"comment_text": text}

	for attempt := 1; attempt <= fallbackRetries; attempt++ {
		_, err := cl.RawRequest(ctx, endpoint, payload)
		if err == nil {
			return true, nil
		}
		if platform.IsChallenge(err) {
			return false, err
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("fallback comment attempt failed")
		if attempt == fallbackRetries {
			return false, nil
		}
		delay := e.backoff(attempt)
		log.Debug().Dur("delay", delay).Msg("waiting before fallback retry")
		if err := sleepCtx(ctx, delay); err != nil {
			return false, err
		}
	}
	return false, nil
}

// sleepCtx blocks for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
