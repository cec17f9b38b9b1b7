// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes without behavior.
package model

import "time"

// Author is the public profile attached to an LP.
type Author struct {
	ID       int64  `json:"id"`
	Nickname string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

// Tag labels an LP for search.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Like records a user's like on an LP.
type Like struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"userId"`
	LpID   int64 `json:"lpId"`
}

// Lp is a single card in the gallery feed.
type Lp struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Thumbnail string    `json:"thumbnail"`
	Published bool      `json:"published"`
	AuthorID  int64     `json:"authorId"`
	Author    *Author   `json:"author,omitempty"`
	Tags      []Tag     `json:"tags,omitempty"`
	Likes     []Like    `json:"likes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment is a reader's comment under an LP.
type Comment struct {
	ID        int64     `json:"id"`
	LpID      int64     `json:"lpId"`
	Content   string    `json:"content"`
	AuthorID  int64     `json:"authorId"`
	Author    *Author   `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeCount is the number of likes carried with the card.
func (l Lp) LikeCount() int { return len(l.Likes) }
