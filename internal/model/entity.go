package model

// EntityType names a collection in the entity store.  Every canonical
// record and every denormalized mirror lives inside a document of one of
// these types.
type EntityType string

const (
	EntityCocktail   EntityType = "cocktail"
	EntityBartender  EntityType = "bartender"
	EntityCustomer   EntityType = "customer"
	EntityRestaurant EntityType = "restaurant"
	EntityComment    EntityType = "comment"
	EntityLike       EntityType = "like"
)

// EntityTypes lists every known entity type in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityCocktail,
		EntityBartender,
		EntityCustomer,
		EntityRestaurant,
		EntityComment,
		EntityLike,
	}
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Document field names shared by the store, the schema registry and the
// services.  They match the json tags of the entity structs.
const (
	FieldID                = "id"
	FieldName              = "name"
	FieldEmail             = "email"
	FieldPassword          = "password"
	FieldText              = "text"
	FieldCustomerID        = "customerId"
	FieldCocktailID        = "cocktailId"
	FieldRestaurantID      = "restaurantId"
	FieldLikes             = "likes"
	FieldPersonalCocktails = "personalCocktails"
	FieldRaiting           = "raiting"
	FieldFavCocktails      = "favCocktails"
	FieldFavRestaurants    = "favRestaurants"
	FieldFavBartenders     = "favBartenders"
	FieldRatedRestaurants  = "ratedRestaurants"
	FieldComments          = "comments"
	FieldRating            = "rating"
	FieldUsername          = "username"
	FieldAvatar            = "avatar"
	FieldDescription       = "description"
	FieldExperience        = "experience"
	FieldOwner             = "owner"
	FieldAuthor            = "author"
	FieldCategory          = "category"
	FieldGlass             = "glass"
	FieldIngredients       = "ingredients"
	FieldPreparation       = "preparation"
	FieldImage             = "image"
)

// Image references an uploaded picture by name and path.  Only metadata
// is stored; the file itself is served elsewhere.
type Image struct {
	ImgName string `json:"imgName"`
	ImgPath string `json:"imgPath"`
}
