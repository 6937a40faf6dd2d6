package model

import (
	uuid "github.com/satori/go.uuid"
)

// CheckoutRequest is a cart grouped by store plus the buyer's choices.
type CheckoutRequest struct {
	Groups           []CartGroup  `json:"cart" validate:"required,gt=0,dive"`
	PaymentMethodID  uuid.UUID    `json:"paymentMethodId" validate:"required"`
	ShippingMethodID uuid.UUID    `json:"shippingMethodId" validate:"required"`
	Destination      *Destination `json:"destination,omitempty" validate:"omitempty"`
	Note             *string      `json:"note,omitempty" validate:"omitempty,max=1000"`
	VoucherCode      *string      `json:"voucherCode,omitempty" validate:"omitempty,min=1,max=64"`
	Guest            *Guest       `json:"guest,omitempty" validate:"omitempty"`
}

// CartGroup is the part of a cart bought from one store.
type CartGroup struct {
	StoreID     uuid.UUID  `json:"storeId" validate:"required"`
	Items       []CartItem `json:"items" validate:"required,gt=0,dive"`
	VoucherCode *string    `json:"voucherCode,omitempty" validate:"omitempty,min=1,max=64"`
}

// CartItem is one line of a cart group. Prices are never taken from the client.
type CartItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	VariantID uuid.UUID `json:"variantId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// Destination is where a courier delivers to.
type Destination struct {
	ID          string `json:"id"`
	Label       string `json:"label" validate:"max=255"`
	Province    string `json:"province" validate:"max=255"`
	City        string `json:"city" validate:"max=255"`
	District    string `json:"district" validate:"max=255"`
	Subdistrict string `json:"subdistrict" validate:"max=255"`
	ZipCode     string `json:"zipCode" validate:"max=16"`
	Address     string `json:"address" validate:"max=1000"`
}

// Guest identifies a buyer who is not signed in.
type Guest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// Validate checks the structural rules every cart must satisfy before any work is done.
// Requests decoded by the http handler have already passed tag validation; this guards
// other callers.
func (r *CheckoutRequest) Validate() error {
	if len(r.Groups) == 0 {
		return NewValidationError("cart", "must contain at least one store group")
	}

	for i := range r.Groups {
		if len(r.Groups[i].Items) == 0 {
			return NewValidationError("cart.items", "each store group must contain at least one item")
		}

		for j := range r.Groups[i].Items {
			if r.Groups[i].Items[j].Quantity < 1 {
				return NewValidationError("cart.items.quantity", "must be at least 1")
			}
		}
	}

	return nil
}

// ValidateDestination checks the fields courier shipping needs.
func (r *CheckoutRequest) ValidateDestination() error {
	if r.Destination == nil || r.Destination.ID == "" {
		return NewValidationError("destination.id", "required for courier shipping")
	}

	if r.Destination.Address == "" {
		return NewValidationError("destination.address", "required for courier shipping")
	}

	return nil
}

// ConfirmRequest is an operator's manual confirmation of a payment.
type ConfirmRequest struct {
	Note string `json:"note" validate:"max=1000"`
}
