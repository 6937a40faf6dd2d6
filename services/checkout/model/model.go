// Package model provides data that the checkout service operates on.
package model

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	uuid "github.com/satori/go.uuid"
)

const (
	// TransactionStatus* represent transaction statuses at runtime and in db.
	TransactionStatusPending   = "pending"
	TransactionStatusPaid      = "paid"
	TransactionStatusCancelled = "cancelled"

	// PaymentStatus* represent payment statuses at runtime and in db.
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"

	// FulfillmentStatus* are shared by invoices and transaction items.
	FulfillmentStatusPending   = "pending"
	FulfillmentStatusPaid      = "paid"
	FulfillmentStatusShipped   = "shipped"
	FulfillmentStatusDelivered = "delivered"
	FulfillmentStatusCancelled = "cancelled"

	VoucherTypeFixed      = "fixed"
	VoucherTypePercentage = "percentage"

	ShippingMethodCourier = "courier"
	PaymentMethodTransfer = "transfer"

	// Gateway statuses that are mapped onto payment statuses.
	GatewayStatusSettlement = "settlement"
	GatewayStatusFailed     = "failed"
	GatewayStatusFailure    = "failure"

	EventTransactionSettled = "transaction.settled"
)

// Transaction is one checkout event spanning one or more stores.
type Transaction struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Code             string     `json:"code" db:"code"`
	CustomerID       uuid.UUID  `json:"customerId" db:"customer_id"`
	PaymentMethodID  uuid.UUID  `json:"paymentMethodId" db:"payment_method_id"`
	ShippingMethodID uuid.UUID  `json:"shippingMethodId" db:"shipping_method_id"`
	DestinationID    *string    `json:"destinationId" db:"destination_id"`
	DestinationLabel *string    `json:"destinationLabel" db:"destination_label"`
	Province         *string    `json:"province" db:"province"`
	City             *string    `json:"city" db:"city"`
	District         *string    `json:"district" db:"district"`
	Subdistrict      *string    `json:"subdistrict" db:"subdistrict"`
	ZipCode          *string    `json:"zipCode" db:"zip_code"`
	Address          *string    `json:"address" db:"address"`
	ShippingCost     int64      `json:"shippingCost" db:"shipping_cost"`
	VoucherID        *uuid.UUID `json:"voucherId" db:"voucher_id"`
	VoucherAmount    int64      `json:"voucherAmount" db:"voucher_amount"`
	Status           string     `json:"status" db:"status"`
	Note             *string    `json:"note" db:"note"`
	PaidAt           *time.Time `json:"paidAt" db:"paid_at"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
	Invoices         []*Invoice `json:"invoices,omitempty" db:"-"`
}

// IsPaid reports whether the transaction has been settled.
func (t *Transaction) IsPaid() bool {
	return t.Status == TransactionStatusPaid
}

func (t *Transaction) IsCancelled() bool {
	return t.Status == TransactionStatusCancelled
}

// Invoice is the part of a transaction that belongs to one store.
type Invoice struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TransactionID  uuid.UUID  `json:"transactionId" db:"transaction_id"`
	StoreID        uuid.UUID  `json:"storeId" db:"store_id"`
	Code           string     `json:"code" db:"code"`
	BaseAmount     int64      `json:"baseAmount" db:"base_amount"`
	ShippingCost   int64      `json:"shippingCost" db:"shipping_cost"`
	Tax            int64      `json:"tax" db:"tax"`
	VoucherID      *uuid.UUID `json:"voucherId" db:"voucher_id"`
	VoucherAmount  int64      `json:"voucherAmount" db:"voucher_amount"`
	Amount         int64      `json:"amount" db:"amount"`
	DueDate        time.Time  `json:"dueDate" db:"due_date"`
	PaidAt         *time.Time `json:"paidAt" db:"paid_at"`
	Status         string     `json:"status" db:"status"`
	TrackingNumber *string    `json:"trackingNumber" db:"tracking_number"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// ApplyVoucher records discount on the invoice and recomputes the amount.
func (inv *Invoice) ApplyVoucher(voucherID uuid.UUID, discount int64) {
	inv.VoucherID = &voucherID
	inv.VoucherAmount = discount
	inv.Amount = TotalAmount(inv.BaseAmount, inv.ShippingCost, discount)
}

// TotalAmount is base + shipping - discount, floored at zero.
func TotalAmount(base, shipping, discount int64) int64 {
	if result := base + shipping - discount; result > 0 {
		return result
	}

	return 0
}

// TransactionItem is one cart line. Prices are a snapshot taken at checkout.
type TransactionItem struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TransactionID  uuid.UUID `json:"transactionId" db:"transaction_id"`
	StoreID        uuid.UUID `json:"storeId" db:"store_id"`
	VariantID      uuid.UUID `json:"variantId" db:"variant_id"`
	Quantity       int       `json:"quantity" db:"quantity"`
	BasePrice      int64     `json:"basePrice" db:"base_price"`
	DiscountType   *string   `json:"discountType" db:"discount_type"`
	DiscountAmount int64     `json:"discountAmount" db:"discount_amount"`
	FinalPrice     int64     `json:"finalPrice" db:"final_price"`
	Subtotal       int64     `json:"subtotal" db:"subtotal"`
	Status         string    `json:"fulfillmentStatus" db:"fulfillment_status"`
	Rating         *int      `json:"rating" db:"rating"`
	Review         *string   `json:"review" db:"review"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// NewTransactionItem snapshots the current price of variant for qty units.
func NewTransactionItem(txID uuid.UUID, v *Variant, qty int) *TransactionItem {
	return &TransactionItem{
		TransactionID:  txID,
		StoreID:        v.StoreID,
		VariantID:      v.ID,
		Quantity:       qty,
		BasePrice:      v.BasePrice,
		DiscountType:   v.DiscountType,
		DiscountAmount: v.DiscountAmount,
		FinalPrice:     v.FinalPrice,
		Subtotal:       int64(qty) * v.FinalPrice,
		Status:         FulfillmentStatusPending,
	}
}

// Payment is an attempt to collect the total payable of a transaction.
type Payment struct {
	ID              uuid.UUID          `json:"id" db:"id"`
	TransactionID   uuid.UUID          `json:"transactionId" db:"transaction_id"`
	PaymentMethodID uuid.UUID          `json:"paymentMethodId" db:"payment_method_id"`
	Amount          int64              `json:"amount" db:"amount"`
	Status          string             `json:"status" db:"status"`
	Token           *string            `json:"token" db:"token"`
	RedirectURL     *string            `json:"redirectUrl" db:"redirect_url"`
	Payload         types.NullJSONText `json:"-" db:"payload"`
	Note            *string            `json:"note" db:"note"`
	SettledAt       *time.Time         `json:"settledAt" db:"settled_at"`
	CreatedAt       time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time          `json:"updatedAt" db:"updated_at"`
}

// IsCompleted reports whether the payment has been settled.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// Voucher is a discount scoped to one store, or to the whole transaction when StoreID is nil.
type Voucher struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	StoreID    *uuid.UUID `json:"storeId" db:"store_id"`
	Code       string     `json:"code" db:"code"`
	Name       string     `json:"name" db:"name"`
	Type       string     `json:"type" db:"type"`
	Amount     int64      `json:"amount" db:"amount"`
	MinAmount  *int64     `json:"minAmount" db:"min_amount"`
	MaxAmount  *int64     `json:"maxAmount" db:"max_amount"`
	StartDate  time.Time  `json:"startDate" db:"start_date"`
	EndDate    time.Time  `json:"endDate" db:"end_date"`
	DisabledAt *time.Time `json:"disabledAt" db:"disabled_at"`
	UsageLimit *int       `json:"usageLimit" db:"usage_limit"`
}

// Variant is the purchasable unit of a product.
type Variant struct {
	ID             uuid.UUID `db:"id"`
	ProductID      uuid.UUID `db:"product_id"`
	StoreID        uuid.UUID `db:"store_id"`
	Name           string    `db:"name"`
	BasePrice      int64     `db:"base_price"`
	DiscountType   *string   `db:"discount_type"`
	DiscountAmount int64     `db:"discount_amount"`
	FinalPrice     int64     `db:"final_price"`
	Stock          int       `db:"stock"`
}

// Store is a tenant of the marketplace.
type Store struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	OriginID string    `db:"origin_id"`
}

// Method is a payment or shipping method.
type Method struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
	Slug string    `db:"slug"`
}

// IsCourier reports whether the shipping method needs a destination and a quote.
func (m *Method) IsCourier() bool {
	return m.Slug == ShippingMethodCourier
}

// Customer is the buyer a transaction belongs to.
type Customer struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Email string    `db:"email"`
	Phone *string   `db:"phone"`
}

// OutboxEvent is a domain event waiting to be published.
type OutboxEvent struct {
	ID          uuid.UUID      `db:"id"`
	Kind        string         `db:"kind"`
	Key         string         `db:"key"`
	Payload     types.JSONText `db:"payload"`
	CreatedAt   time.Time      `db:"created_at"`
	PublishedAt *time.Time     `db:"published_at"`
}

// SettledEvent is the payload of an EventTransactionSettled event.
type SettledEvent struct {
	TransactionID uuid.UUID `json:"transactionId"`
	Code          string    `json:"code"`
	PaymentID     uuid.UUID `json:"paymentId"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paidAt"`
}

// NewSettledEvent builds the outbox event for a settled transaction.
func NewSettledEvent(tx *Transaction, p *Payment, paidAt time.Time) (*OutboxEvent, error) {
	payload, err := json.Marshal(&SettledEvent{
		TransactionID: tx.ID,
		Code:          tx.Code,
		PaymentID:     p.ID,
		Amount:        p.Amount,
		PaidAt:        paidAt,
	})
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		Kind:    EventTransactionSettled,
		Key:     tx.Code,
		Payload: payload,
	}, nil
}

// PaymentStatusFromGateway maps a gateway transaction status onto a payment status.
func PaymentStatusFromGateway(status string) string {
	switch status {
	case GatewayStatusSettlement:
		return PaymentStatusCompleted
	case GatewayStatusFailed, GatewayStatusFailure:
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// CheckoutResult is everything created by a successful checkout.
type CheckoutResult struct {
	Transaction *Transaction       `json:"transaction"`
	Invoices    []*Invoice         `json:"invoices"`
	Items       []*TransactionItem `json:"items"`
	Payment     *Payment           `json:"payment"`
}
