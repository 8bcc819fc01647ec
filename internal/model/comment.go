package model

import "time"

// Comment is a customer's review text attached to a restaurant.  Its id is
// mirrored into Restaurant.comments and Customer.comments.
type Comment struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Author    AuthorSnapshot    `json:"author"`
	Recipient RecipientSnapshot `json:"recipient"`
	CreatedAt time.Time         `json:"createdAt"`
}

// AuthorSnapshot is the customer data copied into a comment.
type AuthorSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// RecipientSnapshot is the restaurant data copied into a comment.
type RecipientSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
	Role Role   `json:"role"`
}
