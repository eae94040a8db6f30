package events

import "time"

const CartCheckedOutRoutingKey = "cart.checkedout.v1"

type CartCheckedOut struct {
	EventType   string          `json:"eventType"`
	SessionID   string          `json:"sessionId"`
	Items       []CartItemEvent `json:"items"`
	TotalAmount int64           `json:"totalAmount"`
	Timestamp   time.Time       `json:"timestamp"`
}

type CartItemEvent struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}
