// Package service holds the domain operations behind the HTTP API.  Each
// operation resolves the principal, checks existence and ownership, builds
// the event's plan from the schema registry and hands it to the fan-out
// writer.
package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/logger"
	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/observability"
	"github.com/iliyamo/cocktail-hub/internal/rating"
	"github.com/iliyamo/cocktail-hub/internal/schema"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// Core is the narrow surface the write path exposes to callers: plan
// execution and the rating arithmetic.
type Core struct {
	writer *fanout.Writer
	engine rating.Engine
}

// NewCore wires a writer and a rating engine.
func NewCore(w *fanout.Writer, e rating.Engine) *Core {
	return &Core{writer: w, engine: e}
}

// ExecutePlan runs plan and reports the committed steps and, on failure,
// the failed step through a *fanout.PartialFailure.
func (c *Core) ExecutePlan(ctx context.Context, plan fanout.Plan) (fanout.Result, error) {
	return c.writer.Execute(ctx, plan)
}

func (c *Core) ComputeRatingAfterAdd(s rating.State, value int) (rating.State, error) {
	return c.engine.Add(s, value)
}

func (c *Core) ComputeRatingAfterReplace(s rating.State, previous, next int) (rating.State, error) {
	return c.engine.Replace(s, previous, next)
}

func (c *Core) ComputeRatingAfterRemove(s rating.State, value int) (rating.State, error) {
	return c.engine.Remove(s, value)
}

// PresentRating rounds a stored aggregate for callers.
func (c *Core) PresentRating(s rating.State) model.Rating {
	return model.Rating(c.engine.Present(s))
}

// AuthConfig holds the credential settings used by AuthService.
type AuthConfig struct {
	JWTSecret    string
	AccessTTLMin int
	BcryptCost   int
}

// Deps are the collaborators shared by every service.  Only Store is
// required.
type Deps struct {
	Store    store.Store
	Writer   *fanout.Writer
	Engine   rating.Engine
	Locker   rating.Locker
	Reporter *Reporter
	Metrics  *observability.Metrics
	Log      *logger.Logger
	Auth     AuthConfig
	Now      func() time.Time
}

type base struct {
	store    store.Store
	core     *Core
	locker   rating.Locker
	reporter *Reporter
	metrics  *observability.Metrics
	log      *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func newBase(d Deps) *base {
	if d.Store == nil {
		panic("service: nil store")
	}
	if d.Writer == nil {
		d.Writer = fanout.NewWriter(d.Store)
	}
	if d.Locker == nil {
		d.Locker = rating.NewKeyedMutex()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &base{
		store:    d.Store,
		core:     NewCore(d.Writer, d.Engine),
		locker:   d.Locker,
		reporter: d.Reporter,
		metrics:  d.Metrics,
		log:      d.Log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return d.Now().UTC() },
	}
}

// load decodes the document et/id into out.
func (b *base) load(ctx context.Context, et model.EntityType, id string, out any) error {
	if id == "" {
		return notFound(et, id)
	}
	doc, err := b.store.Find(ctx, et, id)
	if err != nil {
		return err
	}
	return store.Decode(doc, out)
}

func (b *base) check(in any) error {
	if err := b.validate.Struct(in); err != nil {
		return validationError(err)
	}
	return nil
}

// lock serializes read-modify-write work on key.
func (b *base) lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	unlock, err := b.locker.Lock(ctx, key)
	b.metrics.ObserveLockWait(time.Since(start))
	return unlock, err
}

// run builds event from the registry, executes it and reports the outcome.
func (b *base) run(ctx context.Context, p model.Principal, event string, params schema.Params) (fanout.Result, error) {
	plan, err := schema.Build(event, params)
	if err != nil {
		return fanout.Result{}, err
	}
	res, err := b.core.ExecutePlan(ctx, plan)
	if err != nil {
		b.reporter.PlanFailed(ctx, p, err)
		return res, err
	}
	b.reporter.PlanCommitted(ctx, p, res)
	return res, nil
}

// Services bundles every domain service over one set of Deps.
type Services struct {
	Core      *Core
	Auth      *AuthService
	Cocktails *CocktailService
	Likes     *LikeService
	Comments  *CommentService
	Ratings   *RatingService
	Favorites *FavoriteService
	Accounts  *AccountService
	Profiles  *ProfileService
}

// New builds every service.
func New(d Deps) *Services {
	b := newBase(d)
	return &Services{
		Core:      b.core,
		Auth:      &AuthService{base: b, cfg: d.Auth},
		Cocktails: &CocktailService{base: b},
		Likes:     &LikeService{base: b},
		Comments:  &CommentService{base: b},
		Ratings:   &RatingService{base: b},
		Favorites: &FavoriteService{base: b},
		Accounts:  &AccountService{base: b},
		Profiles:  &ProfileService{base: b},
	}
}
