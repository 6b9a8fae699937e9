package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, handle, name, github_id, github_login, created_at`

// CreateUser inserts a new user, generating its ID and CreatedAt.
//
// github_id is UNIQUE. When two first logins for the same GitHub account
// race, the loser's INSERT fails here and gets apperror.ErrConflict; the
// caller is expected to re-read the existing row with GetUserByGitHubID.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	var githubID, githubLogin any
	if user.GitHubID != 0 {
		githubID = user.GitHubID
		githubLogin = user.GitHubLogin
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Handle,
		user.Name,
		githubID,
		githubLogin,
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", strconv.FormatInt(user.GitHubID, 10))
		}
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM user WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByGitHubID retrieves the user linked to a GitHub account.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM user WHERE github_id = ?`, githubID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", "github:"+strconv.FormatInt(githubID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return user, nil
}

// GetUserByHandle finds a user by handle or GitHub login. A handle match
// beats a login match; handles are not unique, so among equals the oldest
// user wins.
func (db *DB) GetUserByHandle(ctx context.Context, handle string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM user
		 WHERE handle = ?1 OR github_login = ?1
		 ORDER BY coalesce(handle = ?1, 0) DESC, created_at ASC, rowid ASC
		 LIMIT 1`, handle)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", "@"+handle)
		}
		return nil, fmt.Errorf("sqlite: getting user by handle %q: %w", handle, err)
	}
	return user, nil
}

// scanUser reads one row selected with userColumns.
func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u           model.User
		handle      sql.NullString
		githubID    sql.NullInt64
		githubLogin sql.NullString
		createdAt   int64
	)
	if err := row.Scan(&u.ID, &handle, &u.Name, &githubID, &githubLogin, &createdAt); err != nil {
		return nil, err
	}
	if handle.Valid {
		u.Handle = &handle.String
	}
	u.GitHubID = githubID.Int64
	u.GitHubLogin = githubLogin.String
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return &u, nil
}
