package service

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/schema"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// CommentService manages restaurant reviews and the comment id lists kept
// on the restaurant and on the author.
type CommentService struct {
	*base
}

type commentText struct {
	Text string `validate:"required,min=2,max=1024"`
}

// Create posts a comment by the calling customer on restaurantID.
func (s *CommentService) Create(ctx context.Context, p model.Principal, restaurantID, text string) (model.Comment, error) {
	cp, err := asCustomer(p)
	if err != nil {
		return model.Comment{}, err
	}
	text = strings.TrimSpace(text)
	if err := s.check(commentText{Text: text}); err != nil {
		return model.Comment{}, err
	}
	unlock, err := s.lock(ctx, customerKey(cp.ID))
	if err != nil {
		return model.Comment{}, err
	}
	defer unlock()

	var r model.Restaurant
	if err := s.load(ctx, model.EntityRestaurant, restaurantID, &r); err != nil {
		return model.Comment{}, err
	}
	var cust model.Customer
	if err := s.load(ctx, model.EntityCustomer, cp.ID, &cust); err != nil {
		return model.Comment{}, err
	}

	c := model.Comment{
		Text:      text,
		Author:    model.AuthorSnapshot{ID: cust.ID, Username: cust.Username, Role: model.RoleCustomer},
		Recipient: model.RecipientSnapshot{ID: r.ID, Name: r.Name, City: r.Address.City, Role: model.RoleRestaurant},
		CreatedAt: s.now(),
	}
	res, err := s.run(ctx, p, schema.CommentCreate, schema.Params{
		schema.PComment:      c,
		schema.PRestaurantID: r.ID,
		schema.PCustomerID:   cust.ID,
	})
	if err != nil {
		return model.Comment{}, err
	}
	c.ID, _ = res.InsertedID(1)
	return c, nil
}

// Update replaces the text of a comment written by the caller.
func (s *CommentService) Update(ctx context.Context, p model.Principal, id, text string) (model.Comment, error) {
	text = strings.TrimSpace(text)
	if err := s.check(commentText{Text: text}); err != nil {
		return model.Comment{}, err
	}
	unlock, err := s.lock(ctx, commentKey(id))
	if err != nil {
		return model.Comment{}, err
	}
	defer unlock()

	var c model.Comment
	if err := s.load(ctx, model.EntityComment, id, &c); err != nil {
		return model.Comment{}, err
	}
	if err := authorizeOwner(p, c.Author.ID); err != nil {
		return model.Comment{}, err
	}
	if _, err := s.run(ctx, p, schema.CommentUpdate, schema.Params{
		schema.PCommentID: c.ID,
		schema.PText:      text,
	}); err != nil {
		return model.Comment{}, err
	}
	c.Text = text
	return c, nil
}

// Delete removes a comment written by the caller and its id from the
// restaurant and author lists.
func (s *CommentService) Delete(ctx context.Context, p model.Principal, id string) error {
	unlock, err := s.lock(ctx, commentKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	var c model.Comment
	if err := s.load(ctx, model.EntityComment, id, &c); err != nil {
		return err
	}
	if err := authorizeOwner(p, c.Author.ID); err != nil {
		return err
	}
	unlockC, err := s.lock(ctx, customerKey(c.Author.ID))
	if err != nil {
		return err
	}
	defer unlockC()
	_, err = s.run(ctx, p, schema.CommentDelete, schema.Params{
		schema.PCommentID:    c.ID,
		schema.PRestaurantID: c.Recipient.ID,
		schema.PCustomerID:   c.Author.ID,
	})
	return err
}

func (s *CommentService) Get(ctx context.Context, id string) (model.Comment, error) {
	var c model.Comment
	err := s.load(ctx, model.EntityComment, id, &c)
	return c, err
}

// List returns comments, optionally only those on restaurantID, oldest
// first.
func (s *CommentService) List(ctx context.Context, restaurantID string) ([]model.Comment, error) {
	docs, err := s.store.Query(ctx, model.EntityComment)
	if err != nil {
		return nil, err
	}
	out := make([]model.Comment, 0, len(docs))
	for _, doc := range docs {
		var c model.Comment
		if err := store.Decode(doc, &c); err != nil {
			return nil, err
		}
		if restaurantID != "" && c.Recipient.ID != restaurantID {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func commentKey(id string) string { return "comment:" + id }
