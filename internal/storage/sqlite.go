package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"leekbot/internal/model"

	"leekbot/migrations"
)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// Interleaved writers (poll loop, daily loop, command handlers) share
	// this pool; each logical operation is a single short statement.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateUser inserts a user and their preferences if the user is absent.
// Returns true when the user row was newly added.
func (s *SQLite) CreateUser(ctx context.Context, user *model.User, prefs model.UserPreferences) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (username, easy_solved, medium_solved, hard_solved, total_solved, ranking, streak)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.EasySolved, user.MediumSolved, user.HardSolved,
		user.TotalSolved, user.Ranking, user.Streak,
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	added, err := wasInserted(res)
	if err != nil {
		return false, err
	}

	if _, err := s.insertPreferences(ctx, user.Username, prefs); err != nil {
		return added, err
	}
	return added, nil
}

// GetUser returns a single user by username.
func (s *SQLite) GetUser(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT username, easy_solved, medium_solved, hard_solved, total_solved, ranking, streak
		 FROM users WHERE username = ?`, username,
	)
	var u model.User
	err := row.Scan(&u.Username, &u.EasySolved, &u.MediumSolved, &u.HardSolved,
		&u.TotalSolved, &u.Ranking, &u.Streak)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// UpdateUserStats overwrites a user's solved counts and ranking. The streak
// column is left alone; only the streak engine touches it.
func (s *SQLite) UpdateUserStats(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET easy_solved = ?, medium_solved = ?, hard_solved = ?, total_solved = ?, ranking = ?
		 WHERE username = ?`,
		user.EasySolved, user.MediumSolved, user.HardSolved, user.TotalSolved,
		user.Ranking, user.Username,
	)
	if err != nil {
		return fmt.Errorf("update user stats: %w", err)
	}
	return nil
}

// ListTrackedUsers returns every user whose preferences mark them tracked.
func (s *SQLite) ListTrackedUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.username, u.easy_solved, u.medium_solved, u.hard_solved, u.total_solved, u.ranking, u.streak
		 FROM users u
		 JOIN user_prefs p ON p.username = u.username
		 WHERE p.tracked = 1
		 ORDER BY u.username`,
	)
	if err != nil {
		return nil, fmt.Errorf("query tracked users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Username, &u.EasySolved, &u.MediumSolved, &u.HardSolved,
			&u.TotalSolved, &u.Ranking, &u.Streak); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetTracked flips the tracked flag, materializing a default preferences row
// first if the user has none.
func (s *SQLite) SetTracked(ctx context.Context, username string, tracked bool) error {
	if _, err := s.insertPreferences(ctx, username, model.DefaultPreferences()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_prefs SET tracked = ? WHERE username = ?`,
		boolToInt(tracked), username,
	)
	if err != nil {
		return fmt.Errorf("set tracked: %w", err)
	}
	return nil
}

// GetPreferences returns a user's preferences. A user with announcements
// disabled gets a nil Announcement sub-record.
func (s *SQLite) GetPreferences(ctx context.Context, username string) (model.UserPreferences, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tracked, announce, announce_fail, announce_link FROM user_prefs WHERE username = ?`,
		username,
	)
	var tracked, announce, announceFail, announceLink int
	err := row.Scan(&tracked, &announce, &announceFail, &announceLink)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserPreferences{}, fmt.Errorf("preferences for %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return model.UserPreferences{}, fmt.Errorf("scan preferences: %w", err)
	}

	prefs := model.UserPreferences{Tracked: tracked == 1}
	if announce == 1 {
		prefs.Announcement = &model.AnnouncementPreferences{
			AnnounceFailures:  announceFail == 1,
			HasSubmissionLink: announceLink == 1,
		}
	}
	return prefs, nil
}

// UpsertPreferences replaces a user's preferences row wholesale. Partial
// overlays are merged in the model layer before reaching here.
func (s *SQLite) UpsertPreferences(ctx context.Context, username string, prefs model.UserPreferences) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_prefs (username, tracked, announce, announce_fail, announce_link)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (username) DO UPDATE SET
		   tracked = excluded.tracked,
		   announce = excluded.announce,
		   announce_fail = excluded.announce_fail,
		   announce_link = excluded.announce_link`,
		username, boolToInt(prefs.Tracked), boolToInt(prefs.Announcement != nil),
		boolToInt(prefs.Announcement != nil && prefs.Announcement.AnnounceFailures),
		boolToInt(prefs.Announcement != nil && prefs.Announcement.HasSubmissionLink),
	)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// GetStreak returns the current streak counter for a user.
func (s *SQLite) GetStreak(ctx context.Context, username string) (int64, error) {
	var streak int64
	err := s.db.QueryRowContext(ctx,
		`SELECT streak FROM users WHERE username = ?`, username,
	).Scan(&streak)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query streak: %w", err)
	}
	return streak, nil
}

// IncrementStreak adds one to the user's streak counter.
func (s *SQLite) IncrementStreak(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET streak = streak + 1 WHERE username = ?`, username,
	)
	if err != nil {
		return fmt.Errorf("increment streak: %w", err)
	}
	return nil
}

// ResetStreak sets the user's streak counter back to zero.
func (s *SQLite) ResetStreak(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET streak = 0 WHERE username = ?`, username,
	)
	if err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}

// HasAcceptedSince reports whether the user has an accepted submission with a
// timestamp at or after sinceMillis.
func (s *SQLite) HasAcceptedSince(ctx context.Context, username string, sinceMillis int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM submissions
		 WHERE username = ? AND accepted = 1 AND timestamp >= ?
		 LIMIT 1`,
		username, sinceMillis,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check activity: %w", err)
	}
	return true, nil
}

// InsertProblem adds a problem if absent. Returns true when newly added.
func (s *SQLite) InsertProblem(ctx context.Context, p model.Problem) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO problems (title, slug, difficulty) VALUES (?, ?, ?)`,
		p.Title, p.Slug, p.Difficulty,
	)
	if err != nil {
		return false, fmt.Errorf("insert problem: %w", err)
	}
	return wasInserted(res)
}

// InsertSubmission adds a submission if its (problem, username, timestamp)
// tuple is absent. Returns true when newly added.
func (s *SQLite) InsertSubmission(ctx context.Context, sub model.Submission) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO submissions (problem_title, username, language, timestamp, accepted, url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.Problem.Title, sub.Username, sub.Language, sub.Timestamp,
		boolToInt(sub.Accepted), sub.URL,
	)
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	return wasInserted(res)
}

// RecentSubmissions returns the user's submissions within the recency
// threshold of nowMillis, newest first.
func (s *SQLite) RecentSubmissions(ctx context.Context, username string, nowMillis int64) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		submissionSelect+`
		 WHERE s.username = ? AND ? - s.timestamp < ?
		 ORDER BY s.timestamp DESC`,
		username, nowMillis, model.RecentThresholdMillis,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubmissions(rows)
}

// UncachedSubmissions returns the user's submissions within the recency
// threshold of nowMillis that have no announcement cache entry, newest first.
func (s *SQLite) UncachedSubmissions(ctx context.Context, username string, nowMillis int64) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		submissionSelect+`
		 WHERE s.username = ? AND ? - s.timestamp < ?
		   AND NOT EXISTS (
		     SELECT 1 FROM recent_cache r
		     WHERE r.problem_title = s.problem_title
		       AND r.username = s.username
		       AND r.timestamp = s.timestamp
		   )
		 ORDER BY s.timestamp DESC`,
		username, nowMillis, model.RecentThresholdMillis,
	)
	if err != nil {
		return nil, fmt.Errorf("query uncached submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubmissions(rows)
}

// InsertCacheEntry records that a submission has been considered for
// announcement. Returns true when newly added.
func (s *SQLite) InsertCacheEntry(ctx context.Context, sub model.Submission) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO recent_cache (problem_title, username, timestamp, accepted)
		 VALUES (?, ?, ?, ?)`,
		sub.Problem.Title, sub.Username, sub.Timestamp, boolToInt(sub.Accepted),
	)
	if err != nil {
		return false, fmt.Errorf("insert cache entry: %w", err)
	}
	return wasInserted(res)
}

// PurgeCache deletes cache entries older than the recency threshold relative
// to nowMillis.
func (s *SQLite) PurgeCache(ctx context.Context, nowMillis int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM recent_cache WHERE ? - timestamp > ?`,
		nowMillis, model.RecentThresholdMillis,
	)
	if err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

const submissionSelect = `SELECT s.username, s.language, s.timestamp, s.accepted, s.url,
		        p.title, p.slug, p.difficulty
		 FROM submissions s
		 JOIN problems p ON p.title = s.problem_title`

func scanSubmissions(rows *sql.Rows) ([]model.Submission, error) {
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		var accepted int
		err := rows.Scan(&sub.Username, &sub.Language, &sub.Timestamp, &accepted, &sub.URL,
			&sub.Problem.Title, &sub.Problem.Slug, &sub.Problem.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Accepted = accepted == 1
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLite) insertPreferences(ctx context.Context, username string, prefs model.UserPreferences) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_prefs (username, tracked, announce, announce_fail, announce_link)
		 VALUES (?, ?, ?, ?, ?)`,
		username, boolToInt(prefs.Tracked), boolToInt(prefs.Announcement != nil),
		boolToInt(prefs.Announcement != nil && prefs.Announcement.AnnounceFailures),
		boolToInt(prefs.Announcement != nil && prefs.Announcement.HasSubmissionLink),
	)
	if err != nil {
		return false, fmt.Errorf("insert preferences: %w", err)
	}
	return wasInserted(res)
}

func wasInserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
