package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

// postSQL aggregates likes into an int array and comments into a jsonb
// array per post, comment authors resolved to {id, name} objects.
const postSQL = `
		with comments_agg as (
			select c.post_id,
				   array_agg(jsonb_build_object(
						'id', c.id,
						'user', jsonb_build_object('id', u.id, 'name', u.name),
						'text', c.text,
						'createdAt', c.created_at
				   ) order by c.created_at) as comments
			  from post_comments c
			  join users u on u.id = c.author_id
			 group by c.post_id
		),

		likes_agg as (
			select post_id, array_agg(user_id) as likes
			  from post_likes
			 group by post_id
		)

		select p.id,
			   p.author_id,
			   u.name,
			   p.text,
			   p.created_at,
			   l.likes,
			   c.comments
		  from posts p
		  join users u on u.id = p.author_id
		  left join likes_agg l on l.post_id = p.id
		  left join comments_agg c on c.post_id = p.id`

// CreatePost creates a post and returns it with the author name resolved
func (s *Store) CreatePost(ctx context.Context, authorID int64, text string) (Post, error) {
	s.logger.Debugf("Creating post from user (id: %d)", authorID)

	var p Post
	sql := `with p as (
				insert into posts (author_id, text, created_at) values ($1, $2, $3)
				returning id, author_id, text, created_at
			)
			select p.id, p.author_id, u.name, p.text, p.created_at
			  from p
			  join users u on u.id = p.author_id`
	err := s.db.QueryRow(ctx, sql, authorID, text, time.Now()).
		Scan(&p.ID, &p.User.ID, &p.User.Name, &p.Text, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.ForeignKeyViolation {
				return Post{}, ErrUserNotExist
			}
		}
		return Post{}, err
	}

	p.Likes = []int64{}
	p.Comments = []Comment{}

	return p, nil
}

// Posts returns all posts sorted by creation time (from latest to oldest)
// with author names, like id sets and comments resolved
func (s *Store) Posts(ctx context.Context) ([]Post, error) {
	s.logger.Debug("Retrieving posts")

	rows, err := s.db.Query(ctx, postSQL+" order by p.created_at desc")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d posts", len(posts))

	return posts, nil
}

// PostByID returns a single post with likes and comments resolved
func (s *Store) PostByID(ctx context.Context, postID int64) (Post, error) {
	p, err := scanPost(s.db.QueryRow(ctx, postSQL+" where p.id = $1", postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotExist
		}
		return Post{}, err
	}

	return p, nil
}

// ToggleLike removes the caller's like when present, records it otherwise,
// and returns the updated post
func (s *Store) ToggleLike(ctx context.Context, postID, userID int64) (Post, error) {
	s.logger.Debugf("User (id: %d) toggles like on post (id: %d)", userID, postID)

	ct, err := s.db.Exec(ctx, "delete from post_likes where post_id = $1 and user_id = $2", postID, userID)
	if err != nil {
		return Post{}, err
	}

	if ct.RowsAffected() == 0 {
		_, err = s.db.Exec(ctx, "insert into post_likes (post_id, user_id) values ($1, $2)", postID, userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				if pgErr.Code == pgerrcode.ForeignKeyViolation {
					switch pgErr.ConstraintName {
					case "post_likes_post_id_fkey":
						return Post{}, ErrPostNotExist
					case "post_likes_user_id_fkey":
						return Post{}, ErrUserNotExist
					}
				}
			}
			return Post{}, err
		}
	}

	return s.PostByID(ctx, postID)
}

// AddComment creates a comment and returns the updated post
func (s *Store) AddComment(ctx context.Context, postID, authorID int64, text string) (Post, error) {
	s.logger.Debugf("User (id: %d) comments on post (id: %d)", authorID, postID)

	sql := "insert into post_comments (post_id, author_id, text, created_at) values ($1, $2, $3, $4)"
	_, err := s.db.Exec(ctx, sql, postID, authorID, text, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.ForeignKeyViolation {
				switch pgErr.ConstraintName {
				case "post_comments_post_id_fkey":
					return Post{}, ErrPostNotExist
				case "post_comments_author_id_fkey":
					return Post{}, ErrUserNotExist
				}
			}
		}
		return Post{}, err
	}

	return s.PostByID(ctx, postID)
}

// DeleteComment removes a comment. Only the comment author or the post
// author may delete it.
func (s *Store) DeleteComment(ctx context.Context, postID, commentID, callerID int64) (Post, error) {
	var commentAuthor, postAuthor int64
	sql := `select c.author_id, p.author_id
			  from post_comments c
			  join posts p on p.id = c.post_id
			 where c.id = $1 and c.post_id = $2`
	err := s.db.QueryRow(ctx, sql, commentID, postID).Scan(&commentAuthor, &postAuthor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrCommentNotExist
		}
		return Post{}, err
	}

	if callerID != commentAuthor && callerID != postAuthor {
		return Post{}, ErrNotCommentAuthor
	}

	_, err = s.db.Exec(ctx, "delete from post_comments where id = $1", commentID)
	if err != nil {
		return Post{}, err
	}

	return s.PostByID(ctx, postID)
}

// DeletePost removes a post with its likes and comments. Only the author
// may delete it.
func (s *Store) DeletePost(ctx context.Context, postID, callerID int64) error {
	var author int64
	err := s.db.QueryRow(ctx, "select author_id from posts where id = $1", postID).Scan(&author)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPostNotExist
		}
		return err
	}

	if author != callerID {
		return ErrNotPostAuthor
	}

	_, err = s.db.Exec(ctx, "delete from posts where id = $1", postID)
	return err
}

func scanPost(row pgx.Row) (Post, error) {
	var (
		p        Post
		likes    pgtype.Int8Array
		comments pgtype.JSONBArray
	)
	err := row.Scan(&p.ID, &p.User.ID, &p.User.Name, &p.Text, &p.CreatedAt, &likes, &comments)
	if err != nil {
		return Post{}, err
	}

	if err := likes.AssignTo(&p.Likes); err != nil {
		return Post{}, err
	}
	if p.Likes == nil {
		p.Likes = []int64{}
	}

	p.Comments = make([]Comment, len(comments.Elements))
	if comments.Status == pgtype.Present {
		commentsJSON := make([]string, len(comments.Elements))
		if err := comments.AssignTo(&commentsJSON); err != nil {
			return Post{}, err
		}
		for i, v := range commentsJSON {
			if err := json.Unmarshal([]byte(v), &p.Comments[i]); err != nil {
				return Post{}, err
			}
		}
	}

	return p, nil
}
