package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/api/responses"
	"github.com/canteenx/canteenx-backend/api/validators"
	"github.com/canteenx/canteenx-backend/internal/orders"
	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	pkgerrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

const maxOrderListLimit = 200

type createOrderItemBody struct {
	Name           string `json:"name" validate:"required,max=200"`
	Qty            int    `json:"qty" validate:"required,min=1"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"required,min=1"`
}

type createOrderBody struct {
	CanteenID      string                `json:"canteen_id" validate:"required,uuid"`
	VendorID       string                `json:"vendor_id" validate:"required,uuid"`
	CustomerID     string                `json:"customer_id" validate:"required,uuid"`
	OrderType      string                `json:"order_type" validate:"required,oneof=self_service pre_order"`
	Items          []createOrderItemBody `json:"items" validate:"required,min=1,dive"`
	TaxCents       int                   `json:"tax_cents" validate:"min=0"`
	IdempotencyKey string                `json:"idempotency_key" validate:"required,max=128"`
	Notes          *string               `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// CreateOrder places a new order. Reusing an idempotency key is rejected
// with a conflict carrying the id of the order that holds the key.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderType, err := enums.ParseOrderType(body.OrderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
			return
		}

		input := orders.CreateOrderInput{
			CanteenID:      uuid.MustParse(body.CanteenID),
			VendorID:       uuid.MustParse(body.VendorID),
			CustomerID:     uuid.MustParse(body.CustomerID),
			OrderType:      orderType,
			TaxCents:       body.TaxCents,
			IdempotencyKey: strings.TrimSpace(body.IdempotencyKey),
			Notes:          body.Notes,
		}
		for _, item := range body.Items {
			input.Items = append(input.Items, orders.OrderItemInput{
				Name:           validators.SanitizeString(item.Name, 200),
				Qty:            item.Qty,
				UnitPriceCents: item.UnitPriceCents,
			})
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type confirmPaymentBody struct {
	GatewayOrderRef string `json:"gateway_order_ref" validate:"required,max=128"`
}

// ConfirmPayment marks a pending order paid and books its sale entry.
func ConfirmPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmPaymentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), orders.ConfirmPaymentInput{
			OrderID:         orderID,
			GatewayOrderRef: strings.TrimSpace(body.GatewayOrderRef),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AcceptOrder moves a paid pre-order into the vendor's queue.
func AcceptOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc.Accept, logg)
}

// CompleteOrder closes out a fulfilled order.
func CompleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc.Complete, logg)
}

type cancelOrderBody struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CancelOrder cancels an order that has not been paid yet.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, validators.SanitizeString(body.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// GetOrder fetches a single order by id.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListVendorOrders returns a vendor's orders, newest first.
func ListVendorOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := parseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListVendorOrders(r.Context(), vendorID, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": list, "count": len(list)})
	}
}

// ListCustomerOrders returns a customer's order history, newest first.
func ListCustomerOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := parseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListCustomerOrders(r.Context(), customerID, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": list, "count": len(list)})
	}
}

func orderTransition(fn func(ctx context.Context, orderID uuid.UUID) (*models.Order, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := fn(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseOrderFilters(r *http.Request) (orders.ListFilters, error) {
	var filters orders.ListFilters

	limit, err := validators.ParseQueryInt(r, "limit", 50, 1, maxOrderListLimit)
	if err != nil {
		return filters, err
	}
	filters.Limit = limit

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("order_type")); raw != "" {
		orderType, err := enums.ParseOrderType(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_type filter")
		}
		filters.OrderType = &orderType
	}

	from, err := parseTimeQuery(r, "placed_from")
	if err != nil {
		return filters, err
	}
	filters.PlacedFrom = from

	to, err := parseTimeQuery(r, "placed_to")
	if err != nil {
		return filters, err
	}
	filters.PlacedTo = to

	return filters, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"param": name})
	}
	return id, nil
}

func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "timestamp must be RFC3339").WithDetails(map[string]any{"param": key})
	}
	return &value, nil
}
