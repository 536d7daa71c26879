package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// UserRow is one account row, with the login-relevant columns.
type UserRow struct {
	ID           int32
	Name         string
	NameUnicode  string // empty when null
	PasswordHash string
	Privileges   int32
	Country      string
	SilenceEnd   int64
	CreatedAt    time.Time
}

// StatsRow is one per-mode stats row.
type StatsRow struct {
	RankedScore int64
	TotalScore  int64
	Playcount   int32
	Accuracy    float32
	GlobalRank  int32
	PP          int16
}

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// FetchByUsername loads a user by safe name. Returns (nil, nil) on a miss.
func (r *UserRepo) FetchByUsername(ctx context.Context, safeName string) (*UserRow, error) {
	return r.fetch(ctx, `WHERE name_safe = $1`, safeName)
}

// FetchByID loads a user by id. Returns (nil, nil) on a miss.
func (r *UserRepo) FetchByID(ctx context.Context, id int32) (*UserRow, error) {
	return r.fetch(ctx, `WHERE id = $1`, id)
}

func (r *UserRepo) fetch(ctx context.Context, where string, arg any) (*UserRow, error) {
	row := &UserRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(name_unicode,''), password_hash,
		        privileges, country, silence_end, created_at
		 FROM users `+where, arg,
	).Scan(
		&row.ID, &row.Name, &row.NameUnicode, &row.PasswordHash,
		&row.Privileges, &row.Country, &row.SilenceEnd, &row.CreatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// StatsFor loads the stats row for one mode; zero stats on a miss.
func (r *UserRepo) StatsFor(ctx context.Context, userID int32, mode uint8) (*StatsRow, error) {
	row := &StatsRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT ranked_score, total_score, playcount, accuracy, global_rank, pp
		 FROM stats WHERE user_id = $1 AND mode = $2`, userID, int16(mode),
	).Scan(
		&row.RankedScore, &row.TotalScore, &row.Playcount,
		&row.Accuracy, &row.GlobalRank, &row.PP,
	)
	if isNoRows(err) {
		return row, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Friends returns the user's friend ids.
func (r *UserRepo) Friends(ctx context.Context, userID int32) ([]int32, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT friend_id FROM relationships WHERE user_id = $1 ORDER BY friend_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AddFriend persists one friendship edge.
func (r *UserRepo) AddFriend(ctx context.Context, userID, friendID int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO relationships (user_id, friend_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, userID, friendID)
	return err
}

// RemoveFriend removes one friendship edge.
func (r *UserRepo) RemoveFriend(ctx context.Context, userID, friendID int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM relationships WHERE user_id = $1 AND friend_id = $2`,
		userID, friendID)
	return err
}

// UpdateLatestActivity bumps the user's last-seen timestamp.
func (r *UserRepo) UpdateLatestActivity(ctx context.Context, userID int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET latest_activity = now() WHERE id = $1`, userID)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
