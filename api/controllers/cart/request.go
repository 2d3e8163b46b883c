package cart

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}
