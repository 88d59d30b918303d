// Package sessions manages opaque bearer tokens. A user holds at most one
// live token; issuing a new one invalidates all previous tokens for that
// user immediately and permanently.
package sessions

// SessionToken maps an opaque token string to the account it authenticates.
// The token carries no embedded expiry: it is a capability, valid exactly
// while the server holds this row.
type SessionToken struct {
	UserID int32
	Token  string
}
