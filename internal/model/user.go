// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a person who has signed in at least once.
//
// We use GitHub OAuth as the identity provider, so the lookup key for a
// returning user is the GitHub account ID (an integer). We still generate
// our own internal string ID (xid) and never key anything else on GitHub's
// numbering.
//
// A User is created exactly once per GitHub account, on first login, and
// is never updated afterwards: the name and login captured at that moment
// stay as they were even if the GitHub profile changes.
//
// Handle is optional and not unique. It is only used by the CLI to pick an
// author (see sqlite.DB.GetUserByHandle).
type User struct {
	ID          string    `json:"id"          yaml:"id"          db:"id"`
	Handle      *string   `json:"handle"      yaml:"handle"      db:"handle"`
	Name        string    `json:"name"        yaml:"name"        db:"name"`
	GitHubID    int64     `json:"githubId"    yaml:"githubId"    db:"github_id"`    // GitHub's numeric user ID
	GitHubLogin string    `json:"githubLogin" yaml:"githubLogin" db:"github_login"` // GitHub username, e.g. "octocat"
	CreatedAt   time.Time `json:"createdAt"   yaml:"createdAt"   db:"created_at"`
}

// DisplayName returns the name to show next to the user's notes.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.GitHubLogin
}
