package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

// CreateUser creates user and returns its id. Email uniqueness is enforced
// by the users_email_key constraint.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	s.logger.Debugf("Creating user (%s)", email)

	var id int64
	sql := "insert into users (name, email, password_hash, created_at) values ($1, $2, $3, $4) returning id"
	err := s.db.QueryRow(ctx, sql, name, email, passwordHash, time.Now()).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.UniqueViolation {
				return 0, ErrUserExists
			}
		}
		return 0, err
	}

	s.logger.Debugf("Created user (%s) with id %d", email, id)

	return id, nil
}

// UserByEmail returns the user registered with email along with its password hash
func (s *Store) UserByEmail(ctx context.Context, email string) (User, string, error) {
	var (
		u    User
		hash string
	)
	sql := `select id, name, email, password_hash, coalesce(profile_pic, ''), coalesce(bio, ''), created_at
			  from users
			 where email = $1`
	err := s.db.QueryRow(ctx, sql, email).Scan(&u.ID, &u.Name, &u.Email, &hash, &u.ProfilePic, &u.Bio, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, "", ErrUserNotExist
		}
		return User{}, "", err
	}

	u.Followers = []int64{}
	u.Following = []int64{}

	return u, hash, nil
}

const userProfileSQL = `
		select u.id,
			   u.name,
			   u.email,
			   coalesce(u.profile_pic, ''),
			   coalesce(u.bio, ''),
			   u.created_at,
			   coalesce(array_agg(distinct fr.follower_id) filter (where fr.follower_id is not null), '{}'),
			   coalesce(array_agg(distinct fe.followee_id) filter (where fe.followee_id is not null), '{}')
		  from users u
		  left join follows fr on fr.followee_id = u.id
		  left join follows fe on fe.follower_id = u.id`

// UserByID returns the user with resolved follower and followee id sets
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	s.logger.Debugf("Retrieving user (id: %d)", id)

	sql := userProfileSQL + " where u.id = $1 group by u.id"

	u, err := scanUser(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}

	return u, nil
}

// Users returns all users except the one with excludeID
func (s *Store) Users(ctx context.Context, excludeID int64) ([]User, error) {
	s.logger.Debugf("Retrieving users (excluding id: %d)", excludeID)

	sql := userProfileSQL + " where u.id <> $1 group by u.id order by u.id"

	rows, err := s.db.Query(ctx, sql, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d users", len(users))

	return users, nil
}

// Follow records that follower follows target.
func (s *Store) Follow(ctx context.Context, followerID, targetID int64) error {
	s.logger.Debugf("User (id: %d) follows user (id: %d)", followerID, targetID)

	sql := "insert into follows (follower_id, followee_id, created_at) values ($1, $2, $3)"
	_, err := s.db.Exec(ctx, sql, followerID, targetID, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrAlreadyFollowing
			case pgerrcode.ForeignKeyViolation:
				return ErrUserNotExist
			}
		}
		return err
	}

	return nil
}

// Unfollow removes a follow record. Unfollowing a user that is not followed
// is a no-op, an unknown target is reported as ErrUserNotExist.
func (s *Store) Unfollow(ctx context.Context, followerID, targetID int64) error {
	s.logger.Debugf("User (id: %d) unfollows user (id: %d)", followerID, targetID)

	// check if target exists
	var i int8
	err := s.db.QueryRow(ctx, "select 1 from users where id = $1", targetID).Scan(&i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotExist
		}
		return err
	}

	_, err = s.db.Exec(ctx, "delete from follows where follower_id = $1 and followee_id = $2", followerID, targetID)
	return err
}

// SetProfilePic stores the picture data on the profile and returns the updated user
func (s *Store) SetProfilePic(ctx context.Context, userID int64, data string) (User, error) {
	var id int64
	err := s.db.QueryRow(ctx, "update users set profile_pic = $2 where id = $1 returning id", userID, data).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}

	return s.UserByID(ctx, userID)
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		followers pgtype.Int8Array
		following pgtype.Int8Array
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.ProfilePic, &u.Bio, &u.CreatedAt, &followers, &following)
	if err != nil {
		return User{}, err
	}

	if err := followers.AssignTo(&u.Followers); err != nil {
		return User{}, err
	}
	if err := following.AssignTo(&u.Following); err != nil {
		return User{}, err
	}
	if u.Followers == nil {
		u.Followers = []int64{}
	}
	if u.Following == nil {
		u.Following = []int64{}
	}

	return u, nil
}
