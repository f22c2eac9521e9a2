package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateVote means the (user, poll) unique index rejected an insert.
	ErrDuplicateVote = errors.New("vote already recorded for user and poll")
	// ErrOptionNotInPoll means the option does not exist or belongs to another poll.
	ErrOptionNotInPoll = errors.New("option does not belong to poll")
	// ErrCounterNotUpdated means the option row vanished between insert and increment.
	ErrCounterNotUpdated = errors.New("option vote counter not updated")
)

// isUniqueViolation inspects err for a unique-constraint failure from any of
// the supported drivers. Foreign key and other constraint failures are not
// matched.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
