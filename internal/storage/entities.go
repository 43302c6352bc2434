package storage

import "time"

// UserRef is a user resolved to its public display fields. It is embedded
// wherever a record references a user (messages, comments, posts).
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Followers  []int64   `json:"followers"`
	Following  []int64   `json:"following"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Comment struct {
	ID        int64     `json:"id"`
	User      UserRef   `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID        int64     `json:"id"`
	User      UserRef   `json:"user"`
	Text      string    `json:"text"`
	Likes     []int64   `json:"likes"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one direct message between two users. Messages are immutable
// once created and are never deleted.
type Message struct {
	ID        int64     `json:"id"`
	Sender    UserRef   `json:"sender"`
	Receiver  UserRef   `json:"receiver"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
