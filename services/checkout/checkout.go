package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/libs/clients/gateway"
	"github.com/sellora/marketplace/libs/datastore"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/libs/ptr"
	"github.com/sellora/marketplace/services/checkout/discount"
	"github.com/sellora/marketplace/services/checkout/model"
)

// Checkout turns req into a pending transaction with one invoice per store and a payment.
// Everything is written in one database transaction; the payment intent is created last so a
// gateway failure leaves nothing behind.
func (s *Service) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := logging.Logger(ctx, "checkout").With().Str("func", "Checkout").Logger()

	var result *model.CheckoutResult
	err := datastore.WithTx(ctx, s.Datastore, func(dbtx *sqlx.Tx) error {
		var err error
		result, err = s.checkout(ctx, dbtx, req)
		return err
	})
	if err != nil {
		logger.Warn().Err(err).Msg("checkout rolled back")
		return nil, txErr(err)
	}

	logger.Info().
		Str("code", result.Transaction.Code).
		Int64("amount", result.Payment.Amount).
		Int("invoices", len(result.Invoices)).
		Msg("checkout created")

	return result, nil
}

func (s *Service) checkout(ctx context.Context, dbtx *sqlx.Tx, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	now := s.now()

	customer, err := s.resolveCustomer(ctx, dbtx, req.Guest)
	if err != nil {
		return nil, err
	}

	var txVoucher *model.Voucher
	if code := ptr.StringOr(req.VoucherCode, ""); code != "" {
		if txVoucher, err = s.resolveVoucher(ctx, dbtx, code, nil, now); err != nil {
			return nil, err
		}
	}

	pm, err := s.methods.GetPaymentMethod(ctx, dbtx, req.PaymentMethodID)
	if err != nil {
		return nil, lookupErr(err)
	}

	sm, err := s.methods.GetShippingMethod(ctx, dbtx, req.ShippingMethodID)
	if err != nil {
		return nil, lookupErr(err)
	}

	courier := sm.IsCourier()
	if courier {
		if err := req.ValidateDestination(); err != nil {
			return nil, err
		}
	}

	var (
		tx           *model.Transaction
		result       = &model.CheckoutResult{}
		lines        []gateway.LineItem
		totalPayable int64
		txShipping   int64
	)

	for i := range req.Groups {
		group := &req.Groups[i]

		store, err := s.stores.Get(ctx, dbtx, group.StoreID)
		if err != nil {
			return nil, lookupErr(err)
		}

		var shippingCost int64
		if courier {
			quote, err := s.shipping.GetQuote(ctx, store.OriginID, req.Destination.ID, s.cfg.ParcelWeight, s.cfg.Carrier)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", model.ErrQuoteUnavailable, err)
			}

			shippingCost = quote.Cost
		}

		if tx == nil {
			tx, err = s.txns.Create(ctx, dbtx, newTransaction(transactionCode(now), customer.ID, req, courier))
			if err != nil {
				return nil, persistErr(err)
			}
		}

		var subtotal int64
		for j := range group.Items {
			ci := &group.Items[j]

			variant, err := s.catalog.GetVariant(ctx, dbtx, store.ID, ci.VariantID)
			if err != nil {
				return nil, lookupErr(err)
			}

			if !uuid.Equal(variant.ProductID, ci.ProductID) {
				return nil, model.ErrVariantNotFound
			}

			item, err := s.items.Create(ctx, dbtx, model.NewTransactionItem(tx.ID, variant, ci.Quantity))
			if err != nil {
				return nil, persistErr(err)
			}

			subtotal += item.Subtotal
			result.Items = append(result.Items, item)
			lines = append(lines, gateway.LineItem{
				ID:       variant.ID.String(),
				Name:     variant.Name,
				Price:    item.FinalPrice,
				Quantity: item.Quantity,
			})
		}

		inv := &model.Invoice{
			TransactionID: tx.ID,
			StoreID:       store.ID,
			Code:          invoiceCode(now, i),
			BaseAmount:    subtotal,
			ShippingCost:  shippingCost,
			Amount:        model.TotalAmount(subtotal, shippingCost, 0),
			DueDate:       now.Add(s.cfg.InvoiceDue),
			Status:        model.FulfillmentStatusPending,
		}

		if code := ptr.StringOr(group.VoucherCode, ""); code != "" {
			storeID := store.ID

			v, err := s.resolveVoucher(ctx, dbtx, code, &storeID, now)
			if err != nil {
				return nil, err
			}

			if !discount.Validate(v, inv.Amount, now) {
				return nil, model.ErrVoucherNotApplicable
			}

			amount := discount.Calculate(v, inv.Amount)
			inv.ApplyVoucher(v.ID, amount)
			lines = append(lines, gateway.LineItem{
				ID:       "voucher-" + inv.Code,
				Name:     "Voucher " + v.Code,
				Price:    -amount,
				Quantity: 1,
			})
		}

		inv, err = s.invoices.Create(ctx, dbtx, inv)
		if err != nil {
			return nil, persistErr(err)
		}

		totalPayable += inv.Amount
		txShipping += inv.ShippingCost
		result.Invoices = append(result.Invoices, inv)

		if courier {
			lines = append(lines, gateway.LineItem{
				ID:       "shipping-" + strconv.Itoa(i),
				Name:     "Shipping " + store.Name,
				Price:    shippingCost,
				Quantity: 1,
			})
		}
	}

	if txVoucher != nil {
		base := totalPayable - txShipping
		if !discount.Validate(txVoucher, base, now) {
			return nil, model.ErrVoucherNotApplicable
		}

		amount := discount.Calculate(txVoucher, base)
		totalPayable -= amount

		tx.VoucherID = &txVoucher.ID
		tx.VoucherAmount = amount
		lines = append(lines, gateway.LineItem{
			ID:       "voucher-" + tx.Code,
			Name:     "Voucher " + txVoucher.Code,
			Price:    -amount,
			Quantity: 1,
		})
	}

	tx.ShippingCost = txShipping
	if err := s.txns.SetTotals(ctx, dbtx, tx.ID, tx.ShippingCost, tx.VoucherID, tx.VoucherAmount); err != nil {
		return nil, persistErr(err)
	}

	payment := &model.Payment{
		TransactionID:   tx.ID,
		PaymentMethodID: pm.ID,
		Amount:          totalPayable,
		Status:          model.PaymentStatusPending,
	}

	if pm.Slug == model.PaymentMethodTransfer {
		intent, err := s.gateway.CreateIntent(ctx, &gateway.IntentRequest{
			OrderCode:   gateway.OrderCode(tx.Code, 1),
			GrossAmount: totalPayable,
			Items:       lines,
			Customer: gateway.Customer{
				Name:  customer.Name,
				Email: customer.Email,
				Phone: ptr.StringOr(customer.Phone, ""),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrPaymentIntentFailure, err)
		}

		payment.Token = &intent.Token
		if intent.RedirectURL != "" {
			payment.RedirectURL = &intent.RedirectURL
		}
	}

	if payment, err = s.payments.Create(ctx, dbtx, payment); err != nil {
		return nil, persistErr(err)
	}

	result.Transaction = tx
	result.Payment = payment

	return result, nil
}

func (s *Service) resolveCustomer(ctx context.Context, dbi sqlx.QueryerContext, guest *model.Guest) (*model.Customer, error) {
	if id, ok := s.customers.ResolveAuthenticated(ctx); ok {
		c, err := s.customers.Get(ctx, dbi, id)
		if err != nil {
			return nil, lookupErr(err)
		}

		return c, nil
	}

	if guest == nil {
		return nil, model.NewValidationError("guest", "required when not signed in")
	}

	c, err := s.customers.CreateGuest(ctx, dbi, guest.Name, guest.Email, guest.Phone)
	if err != nil {
		if errors.Is(err, model.ErrGuestEmailTaken) {
			return nil, err
		}

		return nil, persistErr(err)
	}

	return c, nil
}

// resolveVoucher finds a voucher usable right now. Vouchers outside their window are
// reported the same as unknown codes.
func (s *Service) resolveVoucher(ctx context.Context, dbi sqlx.QueryerContext, code string, storeID *uuid.UUID, now time.Time) (*model.Voucher, error) {
	v, err := s.vouchers.GetByCode(ctx, dbi, code, storeID)
	if err != nil {
		return nil, lookupErr(err)
	}

	if !discount.Active(v, now) {
		return nil, model.ErrVoucherNotFound
	}

	return v, nil
}

func newTransaction(code string, customerID uuid.UUID, req *model.CheckoutRequest, courier bool) *model.Transaction {
	tx := &model.Transaction{
		Code:             code,
		CustomerID:       customerID,
		PaymentMethodID:  req.PaymentMethodID,
		ShippingMethodID: req.ShippingMethodID,
		Status:           model.TransactionStatusPending,
		Note:             req.Note,
	}

	if courier && req.Destination != nil {
		d := req.Destination
		tx.DestinationID = ptr.To(d.ID)
		tx.DestinationLabel = ptr.To(d.Label)
		tx.Province = ptr.To(d.Province)
		tx.City = ptr.To(d.City)
		tx.District = ptr.To(d.District)
		tx.Subdistrict = ptr.To(d.Subdistrict)
		tx.ZipCode = ptr.To(d.ZipCode)
		tx.Address = ptr.To(d.Address)
	}

	return tx
}

func transactionCode(now time.Time) string {
	return "SL-" + strconv.FormatInt(now.UnixMilli(), 10)
}

func invoiceCode(now time.Time, idx int) string {
	return fmt.Sprintf("INV-%d-%d", now.UnixMilli(), idx)
}
