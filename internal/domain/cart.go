package domain

// PlaceholderImage is used when a product is added without an image.
const PlaceholderImage = "assets/images/placeholder.jpg"

// LineItem is one product entry in the cart with its quantity.
// Identity key is ID; the cart merges quantities on duplicate adds.
type LineItem struct {
	ID       string  `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
	Image    string  `json:"image" bson:"image"`
}

type Phone struct {
	Number string `json:"number"`
}

// CustomerData is collected per checkout attempt and never persisted.
type CustomerData struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Phone   Phone  `json:"phone"`
}
