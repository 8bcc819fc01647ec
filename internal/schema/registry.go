package schema

import (
	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/model"
)

// Events.
const (
	CocktailCreate   = "cocktail.create"
	CocktailDelete   = "cocktail.delete"
	CocktailUpdate   = "cocktail.update"
	LikeCreate       = "like.create"
	LikeRemove       = "like.remove"
	CommentCreate    = "comment.create"
	CommentUpdate    = "comment.update"
	CommentDelete    = "comment.delete"
	RestaurantRate   = "restaurant.rate"
	RestaurantUnrate = "restaurant.unrate"

	FavoriteRestaurantAdd    = "favorite.restaurant.add"
	FavoriteRestaurantRemove = "favorite.restaurant.remove"
	FavoriteBartenderAdd     = "favorite.bartender.add"
	FavoriteBartenderRemove  = "favorite.bartender.remove"

	BartenderProfileUpdate = "bartender.profile.update"
	CustomerProfileUpdate  = "customer.profile.update"
	ExperienceAdd          = "bartender.experience.add"
	ExperienceRemove       = "bartender.experience.remove"
)

// Parameter names read by the templates.
const (
	PCocktail       = "cocktail"
	PCocktailID     = "cocktailId"
	PBartenderID    = "bartenderId"
	PCustomerID     = "customerId"
	PRestaurantID   = "restaurantId"
	PLikeID         = "likeId"
	PLikes          = "likes"
	PUsername       = "username"
	PAvatar         = "avatar"
	PName           = "name"
	PCategory       = "category"
	PImage          = "image"
	PComment        = "comment"
	PCommentID      = "commentId"
	PText           = "text"
	PRating         = "rating"
	PRate           = "rate"
	PRestaurantName = "restaurantName"
	PReplace        = "replace"
	PRestaurant     = "restaurant"
	PBartender      = "bartender"
	PCreatedAt      = "createdAt"
	PEmail          = "email"
	PDescription    = "description"
	PGlass          = "glass"
	PIngredients    = "ingredients"
	PPreparation    = "preparation"
	POwner          = "owner"
	PAuthor         = "author"
	PCocktails      = "cocktails"
	PFans           = "fans"
	PLikeEntries    = "likeEntries"
	PComments       = "comments"
	PExperience     = "experience"
	PExperienceID   = "experienceId"
)

var registry = map[string][]StepTemplate{
	CocktailCreate: {
		{Target: model.EntityCocktail, Op: fanout.OpInsert, Value: Param(PCocktail)},
		{Target: model.EntityBartender, Op: fanout.OpArrayPush, ID: Param(PBartenderID), Field: model.FieldPersonalCocktails,
			Value: Obj(map[string]Value{
				"id":       Ref(1),
				"name":     Param(PName),
				"category": Param(PCategory),
				"image":    Opt(PImage),
			})},
	},
	// Deleting a cocktail also retires its likes, otherwise the owner's
	// raiting would keep counting them.
	CocktailDelete: {
		{Target: model.EntityCocktail, Op: fanout.OpRemove, ID: Param(PCocktailID)},
		{Target: model.EntityBartender, Op: fanout.OpArrayPull, ID: Param(PBartenderID), Field: model.FieldPersonalCocktails,
			Value: MatchOn("id", Param(PCocktailID))},
		{Target: model.EntityLike, Op: fanout.OpRemove, ID: Item("id"), Each: PLikes},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Item("customerId"), Field: model.FieldFavCocktails,
			Value: MatchOn("", Param(PCocktailID)), Each: PLikes},
		{Target: model.EntityBartender, Op: fanout.OpIncrement, ID: Param(PBartenderID), Field: model.FieldRaiting,
			Value: Lit(int64(-1)), Each: PLikes},
	},
	// The personalCocktails snapshot is replaced whole: pulled by id, then
	// pushed again with the new name, category and image.
	CocktailUpdate: {
		{Target: model.EntityCocktail, Op: fanout.OpSetField, ID: Param(PCocktailID), Field: model.FieldName,
			Value: Param(PName)},
		{Target: model.EntityCocktail, Op: fanout.OpSetField, ID: Param(PCocktailID), Field: model.FieldCategory,
			Value: Param(PCategory)},
		{Target: model.EntityCocktail, Op: fanout.OpSetField, ID: Param(PCocktailID), Field: model.FieldGlass,
			Value: Param(PGlass)},
		{Target: model.EntityCocktail, Op: fanout.OpSetField, ID: Param(PCocktailID), Field: model.FieldIngredients,
			Value: Param(PIngredients)},
		{Target: model.EntityCocktail, Op: fanout.OpSetField, ID: Param(PCocktailID), Field: model.FieldPreparation,
			Value: Param(PPreparation)},
		{Target: model.EntityCocktail, Op: fanout.OpSetField, ID: Param(PCocktailID), Field: model.FieldImage,
			Value: Opt(PImage)},
		{Target: model.EntityBartender, Op: fanout.OpArrayPull, ID: Param(PBartenderID), Field: model.FieldPersonalCocktails,
			Value: MatchOn("id", Param(PCocktailID))},
		{Target: model.EntityBartender, Op: fanout.OpArrayPush, ID: Param(PBartenderID), Field: model.FieldPersonalCocktails,
			Value: Obj(map[string]Value{
				"id":       Param(PCocktailID),
				"name":     Param(PName),
				"category": Param(PCategory),
				"image":    Opt(PImage),
			})},
	},
	LikeCreate: {
		{Target: model.EntityLike, Op: fanout.OpInsert, Value: Obj(map[string]Value{
			"customerId": Param(PCustomerID),
			"cocktailId": Param(PCocktailID),
			"createdAt":  Opt(PCreatedAt),
		})},
		{Target: model.EntityCocktail, Op: fanout.OpArrayPush, ID: Param(PCocktailID), Field: model.FieldLikes,
			Value: Obj(map[string]Value{
				"id":         Ref(1),
				"customerId": Param(PCustomerID),
				"username":   Param(PUsername),
				"avatar":     Opt(PAvatar),
			})},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPush, ID: Param(PCustomerID), Field: model.FieldFavCocktails,
			Value: Param(PCocktailID)},
		{Target: model.EntityBartender, Op: fanout.OpIncrement, ID: Param(PBartenderID), Field: model.FieldRaiting,
			Value: Lit(int64(1))},
	},
	LikeRemove: {
		{Target: model.EntityLike, Op: fanout.OpRemove, ID: Param(PLikeID)},
		{Target: model.EntityCocktail, Op: fanout.OpArrayPull, ID: Param(PCocktailID), Field: model.FieldLikes,
			Value: MatchOn("id", Param(PLikeID))},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Param(PCustomerID), Field: model.FieldFavCocktails,
			Value: MatchOn("", Param(PCocktailID))},
		{Target: model.EntityBartender, Op: fanout.OpIncrement, ID: Param(PBartenderID), Field: model.FieldRaiting,
			Value: Lit(int64(-1))},
	},
	CommentCreate: {
		{Target: model.EntityComment, Op: fanout.OpInsert, Value: Param(PComment)},
		{Target: model.EntityRestaurant, Op: fanout.OpArrayPush, ID: Param(PRestaurantID), Field: model.FieldComments,
			Value: Ref(1)},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPush, ID: Param(PCustomerID), Field: model.FieldComments,
			Value: Ref(1)},
	},
	CommentUpdate: {
		{Target: model.EntityComment, Op: fanout.OpSetField, ID: Param(PCommentID), Field: model.FieldText,
			Value: Param(PText)},
	},
	CommentDelete: {
		{Target: model.EntityComment, Op: fanout.OpRemove, ID: Param(PCommentID)},
		{Target: model.EntityRestaurant, Op: fanout.OpArrayPull, ID: Param(PRestaurantID), Field: model.FieldComments,
			Value: MatchOn("", Param(PCommentID))},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Param(PCustomerID), Field: model.FieldComments,
			Value: MatchOn("", Param(PCommentID))},
	},
	// rating is the already computed aggregate; replace is set when the
	// customer had rated this restaurant before.
	RestaurantRate: {
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Param(PCustomerID), Field: model.FieldRatedRestaurants,
			Value: MatchOn("restaurantId", Param(PRestaurantID)), When: PReplace},
		{Target: model.EntityRestaurant, Op: fanout.OpSetField, ID: Param(PRestaurantID), Field: model.FieldRating,
			Value: Param(PRating)},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPush, ID: Param(PCustomerID), Field: model.FieldRatedRestaurants,
			Value: Obj(map[string]Value{
				"restaurantId":   Param(PRestaurantID),
				"restaurantName": Param(PRestaurantName),
				"rate":           Param(PRate),
			})},
	},
	RestaurantUnrate: {
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Param(PCustomerID), Field: model.FieldRatedRestaurants,
			Value: MatchOn("restaurantId", Param(PRestaurantID))},
		{Target: model.EntityRestaurant, Op: fanout.OpSetField, ID: Param(PRestaurantID), Field: model.FieldRating,
			Value: Param(PRating)},
	},
	FavoriteRestaurantAdd: {
		{Target: model.EntityCustomer, Op: fanout.OpArrayPush, ID: Param(PCustomerID), Field: model.FieldFavRestaurants,
			Value: Param(PRestaurant)},
	},
	FavoriteRestaurantRemove: {
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Param(PCustomerID), Field: model.FieldFavRestaurants,
			Value: MatchOn("id", Param(PRestaurantID))},
	},
	FavoriteBartenderAdd: {
		{Target: model.EntityCustomer, Op: fanout.OpArrayPush, ID: Param(PCustomerID), Field: model.FieldFavBartenders,
			Value: Param(PBartender)},
	},
	FavoriteBartenderRemove: {
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Param(PCustomerID), Field: model.FieldFavBartenders,
			Value: MatchOn("id", Param(PBartenderID))},
	},
	// owner is the new OwnerSnapshot, cocktails lists {id} of every owned
	// cocktail and fans lists {id, entry} of every customer keeping the
	// bartender in favBartenders, entry being the refreshed snapshot.
	BartenderProfileUpdate: {
		{Target: model.EntityBartender, Op: fanout.OpSetField, ID: Param(PBartenderID), Field: model.FieldUsername,
			Value: Param(PUsername)},
		{Target: model.EntityBartender, Op: fanout.OpSetField, ID: Param(PBartenderID), Field: model.FieldEmail,
			Value: Param(PEmail)},
		{Target: model.EntityBartender, Op: fanout.OpSetField, ID: Param(PBartenderID), Field: model.FieldDescription,
			Value: Param(PDescription)},
		{Target: model.EntityBartender, Op: fanout.OpSetField, ID: Param(PBartenderID), Field: model.FieldAvatar,
			Value: Opt(PAvatar)},
		{Target: model.EntityCocktail, Op: fanout.OpSetField, ID: Item("id"), Field: model.FieldOwner,
			Value: Param(POwner), Each: PCocktails},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPull, ID: Item("id"), Field: model.FieldFavBartenders,
			Value: MatchOn("id", Param(PBartenderID)), Each: PFans},
		{Target: model.EntityCustomer, Op: fanout.OpArrayPush, ID: Item("id"), Field: model.FieldFavBartenders,
			Value: Item("entry"), Each: PFans},
	},
	// likeEntries lists {id, cocktailId, entry} for every active like of the
	// customer and comments lists {id} of everything they wrote.
	CustomerProfileUpdate: {
		{Target: model.EntityCustomer, Op: fanout.OpSetField, ID: Param(PCustomerID), Field: model.FieldUsername,
			Value: Param(PUsername)},
		{Target: model.EntityCustomer, Op: fanout.OpSetField, ID: Param(PCustomerID), Field: model.FieldEmail,
			Value: Param(PEmail)},
		{Target: model.EntityCustomer, Op: fanout.OpSetField, ID: Param(PCustomerID), Field: model.FieldAvatar,
			Value: Opt(PAvatar)},
		{Target: model.EntityCocktail, Op: fanout.OpArrayPull, ID: Item("cocktailId"), Field: model.FieldLikes,
			Value: MatchOn("id", Item("id")), Each: PLikeEntries},
		{Target: model.EntityCocktail, Op: fanout.OpArrayPush, ID: Item("cocktailId"), Field: model.FieldLikes,
			Value: Item("entry"), Each: PLikeEntries},
		{Target: model.EntityComment, Op: fanout.OpSetField, ID: Item("id"), Field: model.FieldAuthor,
			Value: Param(PAuthor), Each: PComments},
	},
	ExperienceAdd: {
		{Target: model.EntityBartender, Op: fanout.OpArrayPush, ID: Param(PBartenderID), Field: model.FieldExperience,
			Value: Param(PExperience)},
	},
	ExperienceRemove: {
		{Target: model.EntityBartender, Op: fanout.OpArrayPull, ID: Param(PBartenderID), Field: model.FieldExperience,
			Value: MatchOn("id", Param(PExperienceID))},
	},
}
