package domain

// ActionCreatePreference is the action the payment backend expects for
// order creation requests.
const ActionCreatePreference = "create_preference"

// OrderItem is a line item mapped to the backend's wire shape.
type OrderItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderData struct {
	Items []OrderItem  `json:"items"`
	Payer CustomerData `json:"payer"`
}

// PreferenceRequest is the body of the single POST issued during checkout.
type PreferenceRequest struct {
	Action string    `json:"action"`
	Data   OrderData `json:"data"`
}

// PreferenceResponse is the expected backend answer. Any other shape is a
// checkout failure; Error carries the server-provided message when present.
type PreferenceResponse struct {
	Success   bool   `json:"success"`
	InitPoint string `json:"init_point"`
	Error     string `json:"error,omitempty"`
}

// NewOrder maps cart line items and the payer into an order payload.
func NewOrder(items []LineItem, payer CustomerData) OrderData {
	orderItems := make([]OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, OrderItem{
			ID:        item.ID,
			Title:     item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return OrderData{Items: orderItems, Payer: payer}
}
