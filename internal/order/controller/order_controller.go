package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"orderflow/internal/domain"
	"orderflow/internal/dto"
	apperrors "orderflow/internal/errors"
)

const HeaderUserID = "X-User-ID"

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, draft domain.OrderDraft) (string, error)
	GetOrder(ctx context.Context, orderID string) (*dto.OrderDetails, error)
	DeleteOrder(ctx context.Context, orderID string) error
	CloseOrder(ctx context.Context, orderID string) error
	Confirm(ctx context.Context, orderID, actor string) error
	UpdatePayStatus(ctx context.Context, orderID, transactionRef string) error
	BatchShip(ctx context.Context, items []dto.ShipmentItem) (*dto.ShipmentReport, error)
	AutoConfirm(ctx context.Context) (*dto.SweepReport, error)
	Statistics(ctx context.Context, start, end time.Time) (*domain.OrderStatistics, error)
}

type OrderController struct {
	service OrderService
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrderController(service OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{
		service: service,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		c.writeValidationError(w, traceID, "missing user", apperrors.ValidationDetail{
			Field:   HeaderUserID,
			Message: HeaderUserID + " header is required",
		})
		return
	}

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if strings.TrimSpace(req.ReceiverAddress) == "" {
		c.writeValidationError(w, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "receiverAddress",
			Message: "receiverAddress is required",
		})
		return
	}

	orderID, err := c.service.CreateOrder(r.Context(), userID, domain.OrderDraft{
		ReceiverContact: req.ReceiverContact,
		ReceiverMobile:  req.ReceiverMobile,
		ReceiverAddress: req.ReceiverAddress,
		BuyerMessage:    req.BuyerMessage,
		PayType:         req.PayType,
		SourceType:      req.SourceType,
	})
	if err != nil {
		c.handleServiceError(w, traceID, "", err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.CreateOrderResponse{
		TraceID:   traceID,
		OrderID:   orderID,
		Timestamp: c.now(),
	})
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))
	orderID := chi.URLParam(r, "orderId")

	details, err := c.service.GetOrder(r.Context(), orderID)
	if err != nil {
		c.handleServiceError(w, traceID, orderID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, toOrderResponse(traceID, details, c.now()))
}

func (c *OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))
	orderID := chi.URLParam(r, "orderId")

	if err := c.service.DeleteOrder(r.Context(), orderID); err != nil {
		c.handleServiceError(w, traceID, orderID, err, logger)
		return
	}

	w.Header().Set("X-Trace-ID", traceID)
	w.WriteHeader(http.StatusNoContent)
}

func (c *OrderController) CloseOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))
	orderID := chi.URLParam(r, "orderId")

	if err := c.service.CloseOrder(r.Context(), orderID); err != nil {
		c.handleServiceError(w, traceID, orderID, err, logger)
		return
	}

	c.writeAction(w, traceID, orderID, "RECONCILED")
}

func (c *OrderController) Confirm(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))
	orderID := chi.URLParam(r, "orderId")

	actor := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if err := c.service.Confirm(r.Context(), orderID, actor); err != nil {
		c.handleServiceError(w, traceID, orderID, err, logger)
		return
	}

	c.writeAction(w, traceID, orderID, "CONFIRMED")
}

func (c *OrderController) PaymentNotification(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))
	orderID := chi.URLParam(r, "orderId")

	var req dto.PaymentNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if strings.TrimSpace(req.TransactionID) == "" {
		c.writeValidationError(w, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "transactionId",
			Message: "transactionId is required",
		})
		return
	}

	if err := c.service.UpdatePayStatus(r.Context(), orderID, req.TransactionID); err != nil {
		c.handleServiceError(w, traceID, orderID, err, logger)
		return
	}

	c.writeAction(w, traceID, orderID, "ACCEPTED")
}

func (c *OrderController) BatchShip(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.BatchShipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if validationErr := validateBatchShipRequest(req); validationErr != nil {
		ve, _ := apperrors.IsValidationError(validationErr)
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	items := make([]dto.ShipmentItem, len(req.Orders))
	for i, o := range req.Orders {
		items[i] = dto.ShipmentItem{
			OrderID:      o.ID,
			ShippingCode: o.ShippingCode,
			ShippingName: o.ShippingName,
		}
	}

	report, err := c.service.BatchShip(r.Context(), items)
	if err != nil {
		c.handleServiceError(w, traceID, "", err, logger)
		return
	}

	statusCode := http.StatusOK
	if !report.Success {
		statusCode = http.StatusMultiStatus
	}

	c.writeJSON(w, statusCode, dto.ShipmentResponse{
		TraceID:   traceID,
		Success:   report.Success,
		Message:   report.Message,
		Shipped:   report.Shipped,
		Failures:  report.Failures,
		Timestamp: c.now(),
	})
}

func validateBatchShipRequest(req dto.BatchShipRequest) error {
	var details []apperrors.ValidationDetail

	if len(req.Orders) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "orders",
			Message: "orders must not be empty",
		})
	}

	if len(req.Orders) > 500 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "orders",
			Message: "orders exceeds maximum of 500",
		})
	}

	seen := make(map[string]bool)
	for idx, o := range req.Orders {
		if strings.TrimSpace(o.ID) == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   "orders[" + strconv.Itoa(idx) + "].id",
				Message: "id is required",
			})
			continue
		}
		if seen[o.ID] {
			details = append(details, apperrors.ValidationDetail{
				Field:   "orders[" + strconv.Itoa(idx) + "].id",
				Message: "id must not be duplicated",
			})
		}
		seen[o.ID] = true
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}

func (c *OrderController) AutoConfirm(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	report, err := c.service.AutoConfirm(r.Context())
	if err != nil {
		c.handleServiceError(w, traceID, "", err, logger)
		return
	}

	failures := make([]dto.OrderFailureDTO, len(report.Failures))
	for i, f := range report.Failures {
		failures[i] = dto.OrderFailureDTO{OrderID: f.OrderID, Reason: f.Reason}
	}

	c.writeJSON(w, http.StatusOK, dto.SweepResponse{
		TraceID:   traceID,
		Cutoff:    report.Cutoff,
		Confirmed: report.Confirmed,
		Failures:  failures,
		Timestamp: c.now(),
	})
}

func (c *OrderController) Statistics(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var details []apperrors.ValidationDetail
	start, err := parseTimeParam(r, "start")
	if err != nil {
		details = append(details, apperrors.ValidationDetail{Field: "start", Message: "start must be an RFC3339 timestamp"})
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		details = append(details, apperrors.ValidationDetail{Field: "end", Message: "end must be an RFC3339 timestamp"})
	}
	if len(details) > 0 {
		c.writeValidationError(w, traceID, "validation failed", details...)
		return
	}

	stats, err := c.service.Statistics(r.Context(), start, end)
	if err != nil {
		c.handleServiceError(w, traceID, "", err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.StatisticsResponse{
		TraceID:   traceID,
		Start:     stats.Start,
		End:       stats.End,
		Unpaid:    stats.Unpaid,
		Paid:      stats.Paid,
		Shipped:   stats.Shipped,
		Completed: stats.Completed,
		Closed:    stats.Closed,
		Timestamp: c.now(),
	})
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (c *OrderController) handleServiceError(w http.ResponseWriter, traceID, orderID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if _, ok := apperrors.IsInvalidDeliveryStateError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusConflict, "INVALID_DELIVERY_STATE", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	if _, ok := apperrors.IsDeadlockError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusConflict, "DEADLOCK", err.Error())
		return
	}

	if _, ok := apperrors.IsEmptyCartError(err); ok {
		c.writeErrorResponse(w, traceID, orderID, http.StatusUnprocessableEntity, "EMPTY_CART", err.Error())
		return
	}

	if _, ok := apperrors.IsInventoryUnavailableError(err); ok {
		logger.Warn("inventory unavailable", zap.Error(err))
		c.writeErrorResponse(w, traceID, orderID, http.StatusServiceUnavailable, "INVENTORY_UNAVAILABLE", "inventory is unavailable, retry later")
		return
	}

	if _, ok := apperrors.IsCartUnavailableError(err); ok {
		logger.Warn("cart unavailable", zap.Error(err))
		c.writeErrorResponse(w, traceID, orderID, http.StatusServiceUnavailable, "CART_UNAVAILABLE", "cart is unavailable, retry later")
		return
	}

	if _, ok := apperrors.IsPaymentGatewayError(err); ok {
		logger.Warn("payment gateway error", zap.String("orderId", orderID), zap.Error(err))
		c.writeErrorResponse(w, traceID, orderID, http.StatusBadGateway, "PAYMENT_GATEWAY_ERROR", err.Error())
		return
	}

	logger.Error("unexpected error", zap.String("orderId", orderID), zap.Error(err))
	c.writeErrorResponse(w, traceID, orderID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *OrderController) writeAction(w http.ResponseWriter, traceID, orderID, status string) {
	c.writeJSON(w, http.StatusOK, dto.OrderActionResponse{
		TraceID:   traceID,
		OrderID:   orderID,
		Status:    status,
		Timestamp: c.now(),
	})
}

func (c *OrderController) writeErrorResponse(w http.ResponseWriter, traceID, orderID string, statusCode int, code, message string) {
	c.writeJSON(w, statusCode, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		OrderID:   orderID,
		Timestamp: c.now(),
	})
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, traceID, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    http.StatusBadRequest,
		Code:      "VALIDATION_ERROR",
		Message:   message,
		Details:   details,
		Timestamp: c.now(),
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}

func toOrderResponse(traceID string, details *dto.OrderDetails, now time.Time) dto.OrderResponse {
	o := details.Order

	lines := make([]dto.OrderLineDTO, len(details.Lines))
	for i, l := range details.Lines {
		lines[i] = dto.OrderLineDTO{
			ID:       l.ID,
			SkuID:    l.SkuID,
			SpuID:    l.SpuID,
			Name:     l.Name,
			Price:    l.Price,
			Num:      l.Quantity,
			Money:    l.Money,
			Returned: l.Returned,
		}
	}

	logs := make([]dto.StatusLogDTO, len(details.Logs))
	for i, e := range details.Logs {
		logs[i] = dto.StatusLogDTO{
			ID:            e.ID,
			Operator:      e.Operator,
			OrderStatus:   int(e.OrderStatus),
			PayStatus:     int(e.PayStatus),
			ConsignStatus: int(e.ConsignStatus),
			OperateTime:   e.OperatedAt,
			Remarks:       e.Remarks,
		}
	}

	return dto.OrderResponse{
		TraceID: traceID,
		Order: dto.OrderDTO{
			ID:              o.ID,
			UserID:          o.UserID,
			TotalNum:        o.TotalNum,
			TotalMoney:      o.TotalMoney,
			PayMoney:        o.PayMoney,
			PayType:         o.PayType,
			SourceType:      o.SourceType,
			ReceiverContact: o.ReceiverContact,
			ReceiverMobile:  o.ReceiverMobile,
			ReceiverAddress: o.ReceiverAddress,
			BuyerMessage:    o.BuyerMessage,
			TransactionID:   o.TransactionID,
			OrderStatus:     int(o.OrderStatus),
			PayStatus:       int(o.PayStatus),
			ConsignStatus:   int(o.ConsignStatus),
			ShippingName:    o.ShippingName,
			ShippingCode:    o.ShippingCode,
			CreateTime:      o.CreatedAt,
			UpdateTime:      o.UpdatedAt,
			PayTime:         o.PaidAt,
			ConsignTime:     o.ShippedAt,
			EndTime:         o.CompletedAt,
			CloseTime:       o.ClosedAt,
		},
		Lines:     lines,
		Logs:      logs,
		Timestamp: now,
	}
}
