package service

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/schema"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// CocktailService owns cocktails and the personalCocktails mirror.
type CocktailService struct {
	*base
}

// CreateCocktailInput is a new cocktail recipe.
type CreateCocktailInput struct {
	Name        string             `json:"name" validate:"required,min=2,max=255"`
	Category    string             `json:"category" validate:"required,min=2,max=255"`
	Glass       string             `json:"glass" validate:"max=255"`
	Ingredients []model.Ingredient `json:"ingredients" validate:"dive"`
	Preparation string             `json:"preparation" validate:"max=2048"`
	Image       *model.Image       `json:"image"`
}

// CocktailFilter narrows List.  Empty fields match everything.
type CocktailFilter struct {
	OwnerID  string
	Category string
}

// Create stores a cocktail owned by the calling bartender and mirrors its
// snapshot into the bartender's personalCocktails.  Names are unique.
func (s *CocktailService) Create(ctx context.Context, p model.Principal, in CreateCocktailInput) (model.Cocktail, error) {
	bp, err := asBartender(p)
	if err != nil {
		return model.Cocktail{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.check(in); err != nil {
		return model.Cocktail{}, err
	}

	unlock, err := s.lock(ctx, nameKey(in.Name))
	if err != nil {
		return model.Cocktail{}, err
	}
	defer unlock()
	unlockB, err := s.lock(ctx, bartenderKey(bp.ID))
	if err != nil {
		return model.Cocktail{}, err
	}
	defer unlockB()

	var owner model.Bartender
	if err := s.load(ctx, model.EntityBartender, bp.ID, &owner); err != nil {
		return model.Cocktail{}, err
	}
	dups, err := s.store.Query(ctx, model.EntityCocktail, store.Where(model.FieldName, in.Name))
	if err != nil {
		return model.Cocktail{}, err
	}
	if len(dups) > 0 {
		return model.Cocktail{}, alreadyExists("cocktail %q", in.Name)
	}

	c := model.Cocktail{
		Name:        in.Name,
		Category:    in.Category,
		Glass:       in.Glass,
		Ingredients: in.Ingredients,
		Preparation: in.Preparation,
		Image:       in.Image,
		Owner:       owner.Snapshot(),
		Likes:       []model.LikeEntry{},
		CreatedAt:   s.now(),
	}
	if c.Ingredients == nil {
		c.Ingredients = []model.Ingredient{}
	}
	res, err := s.run(ctx, p, schema.CocktailCreate, schema.Params{
		schema.PCocktail:    c,
		schema.PBartenderID: owner.ID,
		schema.PName:        c.Name,
		schema.PCategory:    c.Category,
		schema.PImage:       c.Image,
	})
	if err != nil {
		return model.Cocktail{}, err
	}
	c.ID, _ = res.InsertedID(1)
	return c, nil
}

// Delete removes a cocktail owned by the caller, its snapshot in the
// owner's personalCocktails and every like it had.
func (s *CocktailService) Delete(ctx context.Context, p model.Principal, id string) error {
	if _, err := asBartender(p); err != nil {
		return err
	}
	unlock, err := s.lock(ctx, cocktailKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	var c model.Cocktail
	if err := s.load(ctx, model.EntityCocktail, id, &c); err != nil {
		return err
	}
	if err := authorizeOwner(p, c.Owner.ID); err != nil {
		return err
	}
	// a profile edit would otherwise rewrite the owner of a removed cocktail
	unlockB, err := s.lock(ctx, bartenderKey(c.Owner.ID))
	if err != nil {
		return err
	}
	defer unlockB()
	_, err = s.run(ctx, p, schema.CocktailDelete, schema.Params{
		schema.PCocktailID:  c.ID,
		schema.PBartenderID: c.Owner.ID,
		schema.PLikes:       c.Likes,
	})
	return err
}

// UpdateCocktailInput is a partial recipe edit.  Empty strings and a nil
// ingredient list keep the current value.
type UpdateCocktailInput struct {
	Name        string             `json:"name" validate:"omitempty,min=2,max=255"`
	Category    string             `json:"category" validate:"omitempty,min=2,max=255"`
	Glass       string             `json:"glass" validate:"max=255"`
	Ingredients []model.Ingredient `json:"ingredients" validate:"omitempty,dive"`
	Preparation string             `json:"preparation" validate:"max=2048"`
}

// Update edits a cocktail owned by the caller and refreshes its snapshot
// in the owner's personalCocktails.  A rename keeps names unique.
func (s *CocktailService) Update(ctx context.Context, p model.Principal, id string, in UpdateCocktailInput) (model.Cocktail, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.check(in); err != nil {
		return model.Cocktail{}, err
	}
	return s.edit(ctx, p, id, in.Name, func(c *model.Cocktail) {
		if in.Name != "" {
			c.Name = in.Name
		}
		if in.Category != "" {
			c.Category = in.Category
		}
		if in.Glass != "" {
			c.Glass = in.Glass
		}
		if in.Ingredients != nil {
			c.Ingredients = in.Ingredients
		}
		if in.Preparation != "" {
			c.Preparation = in.Preparation
		}
	})
}

// SetImage replaces the picture of a cocktail owned by the caller.
func (s *CocktailService) SetImage(ctx context.Context, p model.Principal, id string, img model.Image) (model.Cocktail, error) {
	img.ImgName = strings.TrimSpace(img.ImgName)
	img.ImgPath = strings.TrimSpace(img.ImgPath)
	if img.ImgName == "" || img.ImgPath == "" {
		return model.Cocktail{}, invalidInput("imgName and imgPath are required")
	}
	return s.edit(ctx, p, id, "", func(c *model.Cocktail) { c.Image = &img })
}

// edit runs the cocktail.update plan for the cocktail after fn changed it.
// rename is the requested new name, or empty.
func (s *CocktailService) edit(ctx context.Context, p model.Principal, id, rename string, fn func(*model.Cocktail)) (model.Cocktail, error) {
	if _, err := asBartender(p); err != nil {
		return model.Cocktail{}, err
	}
	unlock, err := s.lock(ctx, cocktailKey(id))
	if err != nil {
		return model.Cocktail{}, err
	}
	defer unlock()

	var c model.Cocktail
	if err := s.load(ctx, model.EntityCocktail, id, &c); err != nil {
		return model.Cocktail{}, err
	}
	if err := authorizeOwner(p, c.Owner.ID); err != nil {
		return model.Cocktail{}, err
	}
	// a rename takes the name lock Create uses
	if rename != "" && !strings.EqualFold(rename, c.Name) {
		unlockName, err := s.lock(ctx, nameKey(rename))
		if err != nil {
			return model.Cocktail{}, err
		}
		defer unlockName()
		dups, err := s.store.Query(ctx, model.EntityCocktail, store.Where(model.FieldName, rename))
		if err != nil {
			return model.Cocktail{}, err
		}
		if len(dups) > 0 {
			return model.Cocktail{}, alreadyExists("cocktail %q", rename)
		}
	}

	fn(&c)
	if c.Ingredients == nil {
		c.Ingredients = []model.Ingredient{}
	}
	if _, err := s.run(ctx, p, schema.CocktailUpdate, schema.Params{
		schema.PCocktailID:  c.ID,
		schema.PBartenderID: c.Owner.ID,
		schema.PName:        c.Name,
		schema.PCategory:    c.Category,
		schema.PGlass:       c.Glass,
		schema.PIngredients: c.Ingredients,
		schema.PPreparation: c.Preparation,
		schema.PImage:       c.Image,
	}); err != nil {
		return model.Cocktail{}, err
	}
	return c, nil
}

// Get returns one cocktail.
func (s *CocktailService) Get(ctx context.Context, id string) (model.Cocktail, error) {
	var c model.Cocktail
	err := s.load(ctx, model.EntityCocktail, id, &c)
	return c, err
}

// List returns cocktails matching f, newest first.
func (s *CocktailService) List(ctx context.Context, f CocktailFilter) ([]model.Cocktail, error) {
	var matches []store.Match
	if f.Category != "" {
		matches = append(matches, store.Where("category", f.Category))
	}
	docs, err := s.store.Query(ctx, model.EntityCocktail, matches...)
	if err != nil {
		return nil, err
	}
	out := make([]model.Cocktail, 0, len(docs))
	for _, doc := range docs {
		var c model.Cocktail
		if err := store.Decode(doc, &c); err != nil {
			return nil, err
		}
		if f.OwnerID != "" && c.Owner.ID != f.OwnerID {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func cocktailKey(id string) string { return "cocktail:" + id }

func nameKey(name string) string { return "cocktail-name:" + strings.ToLower(name) }
