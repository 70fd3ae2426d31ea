package platform

import (
	"errors"
	"fmt"
)

// Kind classifies a platform failure. The classification happens once, at
// the API boundary; downstream code switches on kinds instead of
// inspecting error text.
type Kind int

const (
	KindOther Kind = iota
	KindTwoFactorRequired
	KindChallengeRequired
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindTwoFactorRequired:
		return "two_factor_required"
	case KindChallengeRequired:
		return "challenge_required"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// Error is a classified platform failure.
type Error struct {
	Kind    Kind
	Op      string // e.g. "login", "like", "comment"
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or KindOther for errors that
// did not originate at the platform boundary.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// IsChallenge reports whether err requires manual verification.
func IsChallenge(err error) bool { return KindOf(err) == KindChallengeRequired }

// IsTwoFactor reports whether err requires a 2FA code.
func IsTwoFactor(err error) bool { return KindOf(err) == KindTwoFactorRequired }

// IsRateLimited reports whether the platform throttled or blocked the action.
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }
