package domain

import (
	"errors"
	"fmt"
)

// UserFacing is an error whose message can be shown to the acting user
// verbatim. Anything else reaching the dispatch boundary is a fault.
type UserFacing interface {
	error
	UserMessage() string
}

// UserMessage returns the user-facing text carried by err, if any.
func UserMessage(err error) (string, bool) {
	var uf UserFacing
	if errors.As(err, &uf) {
		return uf.UserMessage(), true
	}
	return "", false
}

// UserError is a plain user-facing error.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string       { return e.Msg }
func (e *UserError) UserMessage() string { return e.Msg }

var (
	ErrSessionExpired = &UserError{Msg: "Your registration session has expired. Start again from the registration panel."}
	ErrSessionExists  = &UserError{Msg: "You already have a clan registration in progress."}
	ErrWrongStep      = &UserError{Msg: "That step is not available right now. Continue from the current step."}
	ErrCommitting     = &UserError{Msg: "Your clan is being created and can no longer be cancelled."}
	ErrNotLeader      = &UserError{Msg: "You do not lead a clan in this server."}
	ErrNotMember      = &UserError{Msg: "You are not a member of any clan."}
)

// InvalidInputError rejects a single malformed field.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) UserMessage() string {
	return fmt.Sprintf("Invalid %s: %s.", e.Field, e.Reason)
}

// FormatError reports a roster line that does not match the expected shape.
type FormatError struct {
	Line    int // 1-based
	Content string
	Reason  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("roster line %d: %s", e.Line, e.Reason)
}

func (e *FormatError) UserMessage() string {
	return fmt.Sprintf("Roster line %d (`%s`): %s. Each line must look like `%s`.", e.Line, e.Content, e.Reason, RosterLineShape)
}

// DuplicateInListError reports an id appearing twice in one roster.
type DuplicateInListError struct {
	Line      int
	FirstLine int
	Field     string
	Value     string
}

func (e *DuplicateInListError) Error() string {
	return fmt.Sprintf("roster line %d: duplicate %s %s (first on line %d)", e.Line, e.Field, e.Value, e.FirstLine)
}

func (e *DuplicateInListError) UserMessage() string {
	return fmt.Sprintf("Roster line %d repeats %s `%s` already used on line %d.", e.Line, e.Field, e.Value, e.FirstLine)
}

// Rejection is a uniqueness collision against another clan in the guild.
type Rejection struct {
	Field    string // "tag", "name" or "color"
	Value    string
	ClanID   string
	ClanTag  string
	Distance float64 // set for color collisions
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s %q collides with clan %s", r.Field, r.Value, r.ClanID)
}

func (r *Rejection) UserMessage() string {
	switch r.Field {
	case "tag":
		return fmt.Sprintf("The clan tag `%s` is already taken.", r.Value)
	case "name":
		return fmt.Sprintf("The clan name %q is already taken.", r.Value)
	case "color":
		return fmt.Sprintf("The color `%s` is too similar to the color of clan `%s`. Pick a different shade.", r.Value, r.ClanTag)
	default:
		return r.Error()
	}
}

// AlreadyInClanError reports an identity already claimed by a clan.
type AlreadyInClanError struct {
	ChatID  string
	GameID  string
	ClanTag string
	Name    string
}

func (e *AlreadyInClanError) Error() string {
	return fmt.Sprintf("identity chat=%s game=%s already in clan %s", e.ChatID, e.GameID, e.ClanTag)
}

func (e *AlreadyInClanError) UserMessage() string {
	who := "This user"
	if e.ChatID != "" {
		who = fmt.Sprintf("<@%s>", e.ChatID)
	}
	return fmt.Sprintf("%s is already a member of clan `%s` %s and must leave it first.", who, e.ClanTag, e.Name)
}

// BelowMinimumError rejects a roster that is too small at approval time.
type BelowMinimumError struct {
	Have int
	Min  int
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("clan has %d members, minimum is %d", e.Have, e.Min)
}

func (e *BelowMinimumError) UserMessage() string {
	return fmt.Sprintf("A clan needs at least %d members including the leader; you listed %d. Add %d more.", e.Min, e.Have, e.Min-e.Have)
}

// ClanNotFoundError is returned when no clan matches a lookup.
type ClanNotFoundError struct {
	Key string
}

func (e *ClanNotFoundError) Error() string {
	return fmt.Sprintf("clan not found: %s", e.Key)
}

func (e *ClanNotFoundError) UserMessage() string {
	return "That clan could not be found. It may have been dissolved."
}

// IntegrityError is a uniqueness violation detected at commit time.
type IntegrityError struct {
	Field string
	Err   error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s: %v", e.Field, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func (e *IntegrityError) UserMessage() string {
	if e.Field != "" {
		return fmt.Sprintf("Another clan just claimed that %s. Please choose another one.", e.Field)
	}
	return "Another clan was just registered with the same details. Please review and try again."
}

// ExternalCallError wraps a failed chat platform call.
type ExternalCallError struct {
	Op  string
	Err error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }
