// Package ordersv1 описывает контракт orders.v1.OrderService: сообщения, JSON-кодек
// и дескриптор сервиса для grpc-go. Те же сообщения используются REST API.
package ordersv1

// CheckoutRequest оформляет заказ из корзины пользователя.
type CheckoutRequest struct {
	UserID string `json:"userId"`
}

// GetOrderRequest запрашивает заказ по идентификатору.
type GetOrderRequest struct {
	OrderID string `json:"orderId"`
}

// ListUserOrdersRequest запрашивает заказы пользователя.
type ListUserOrdersRequest struct {
	UserID string `json:"userId"`
}

// ListAllOrdersRequest запрашивает все заказы.
type ListAllOrdersRequest struct{}

// LineItem — позиция заказа при обновлении.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	// Явная стоимость строки. Если не задана, считается по текущей цене товара.
	Price *string `json:"price,omitempty"`
}

// UpdateOrderRequest меняет статус и, если передан items, позиции заказа.
// Отсутствующий или null items оставляет позиции без изменений, [] отклоняется.
type UpdateOrderRequest struct {
	OrderID string     `json:"orderId"`
	Status  string     `json:"status"`
	Items   []LineItem `json:"items"`
}

// UpdateOrderStatusRequest меняет только статус заказа.
type UpdateOrderStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// DeleteOrderRequest удаляет заказ.
type DeleteOrderRequest struct {
	OrderID string `json:"orderId"`
}

// DeleteOrderResponse пуст.
type DeleteOrderResponse struct{}

// OrderItem — позиция заказа в ответе.
type OrderItem struct {
	OrderItemID        string `json:"orderItemId"`
	ProductID          string `json:"productId"`
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
	ProductPrice       string `json:"productPrice"`
	ProductImageURL    string `json:"productImageUrl"`
	Quantity           int32  `json:"quantity"`
	Price              string `json:"price"`
}

// Order — заказ в ответе. Денежные суммы передаются строкой с двумя знаками после точки.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	TotalPrice string      `json:"totalPrice"`
	Status     string      `json:"status"`
	OrderItems []OrderItem `json:"orderItems"`
	CreatedAt  string      `json:"createdAt,omitempty"`
}

// OrderResponse оборачивает один заказ.
type OrderResponse struct {
	Order Order `json:"order"`
}

// ListOrdersResponse содержит список заказов.
type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
}
