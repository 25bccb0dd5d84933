package portal

import (
	"fmt"
	"strings"
	"time"
)

// LoginFormNotFoundError means every resolution strategy was exhausted:
// multi-scope search, the reveal trigger and the direct navigation fallback.
type LoginFormNotFoundError struct {
	Attempts []string
}

func (e *LoginFormNotFoundError) Error() string {
	return "login form not found after all strategies: " + strings.Join(e.Attempts, "; ")
}

// AuthenticationRejectedError carries the failure phrase the portal showed.
type AuthenticationRejectedError struct {
	Phrase string
}

func (e *AuthenticationRejectedError) Error() string {
	return fmt.Sprintf("authentication rejected by portal (matched phrase %q)", e.Phrase)
}

// RotationCredentialMissingError is a configuration error: the portal forced
// a credential rotation but no replacement credential was supplied.
type RotationCredentialMissingError struct{}

func (e *RotationCredentialMissingError) Error() string {
	return "password rotation required but no replacement credential configured"
}

// RotationSubmitNotFoundError means the rotation interstitial was detected
// but no visible control to submit it.
type RotationSubmitNotFoundError struct{}

func (e *RotationSubmitNotFoundError) Error() string {
	return "rotation page detected but no visible submit control found"
}

// AuthenticationSignalTimeoutError is the ambiguous outcome: submission went
// through but none of the authenticated-UI signals appeared in time. Could
// be a silent rejection or a slow page; reported as such, never guessed.
type AuthenticationSignalTimeoutError struct {
	Deadline time.Duration
}

func (e *AuthenticationSignalTimeoutError) Error() string {
	return fmt.Sprintf("no authenticated-UI signal observed within %s after submit", e.Deadline)
}
