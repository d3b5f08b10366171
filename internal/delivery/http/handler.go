// Package http exposes the marketplace REST API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/fulfillment"
	"github.com/feriavirtual/backend/internal/repository"
	"github.com/feriavirtual/backend/internal/service"
	"github.com/feriavirtual/backend/internal/support"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	orderSvc    *service.OrderService
	machine     *fulfillment.Machine
	reportSvc   *service.ReportService
	reviewSvc   *service.ReviewService
	chatSvc     *service.ChatService
	paymentSvc  *service.PaymentOptionService
	faq         *support.Graph
}

func NewHandler(
	orderSvc *service.OrderService,
	machine *fulfillment.Machine,
	reportSvc *service.ReportService,
	reviewSvc *service.ReviewService,
	chatSvc *service.ChatService,
	paymentSvc *service.PaymentOptionService,
	faq *support.Graph,
) *Handler {
	return &Handler{
		orderSvc:   orderSvc,
		machine:    machine,
		reportSvc:  reportSvc,
		reviewSvc:  reviewSvc,
		chatSvc:    chatSvc,
		paymentSvc: paymentSvc,
		faq:        faq,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.handleGetProducts)
	mux.HandleFunc("GET /api/stock", h.handleGetStock)

	mux.HandleFunc("GET /api/orders", h.handleGetOrders)
	mux.HandleFunc("POST /api/orders", h.handleCreateOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{id}/pick", h.handlePick)
	mux.HandleFunc("POST /api/orders/{id}/scan", h.handleScan)
	mux.HandleFunc("POST /api/orders/{id}/egress", h.handleEgress)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.handleCancel)
	mux.HandleFunc("POST /api/orders/{id}/reimprint", h.handleReimprint)

	mux.HandleFunc("GET /api/reports", h.handleGetReports)
	mux.HandleFunc("POST /api/reports", h.handleCreateReport)
	mux.HandleFunc("PATCH /api/reports/{id}", h.handlePatchReport)

	mux.HandleFunc("GET /api/reviews", h.handleGetReviews)
	mux.HandleFunc("POST /api/reviews", h.handleCreateReview)

	mux.HandleFunc("GET /api/chats", h.handleGetChats)
	mux.HandleFunc("POST /api/chats", h.handleCreateChat)
	mux.HandleFunc("GET /api/chats/{id}/messages", h.handleGetMessages)
	mux.HandleFunc("POST /api/chats/{id}/messages", h.handlePostMessage)
	mux.HandleFunc("POST /api/chats/{id}/close", h.handleCloseChat)

	mux.HandleFunc("GET /api/payment-options", h.handleGetPaymentOptions)
	mux.HandleFunc("POST /api/payment-options", h.handleCreatePaymentOption)
	mux.HandleFunc("DELETE /api/payment-options/{id}", h.handleDeletePaymentOption)

	mux.HandleFunc("GET /api/faq", h.handleGetFAQ)
}

// --- products & orders ---

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.orderSvc.GetProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.orderSvc.GetStock(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

func (h *Handler) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []entity.Order
		err    error
	)
	if buyer := r.URL.Query().Get("buyer_id"); buyer != "" {
		orders, err = h.orderSvc.GetOrdersByBuyer(r.Context(), buyer)
	} else {
		orders, err = h.orderSvc.GetOrders(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd entity.PlaceOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cmd.OrderID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "order_id is required")
		return
	}

	if err := h.orderSvc.PlaceOrder(r.Context(), &cmd); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"order_id": cmd.OrderID,
		"status":   string(entity.OrderStatusPending),
	})
}

// --- fulfillment ---

type pickRequest struct {
	Quantities map[string]int `json:"quantities"`
}

func (h *Handler) handlePick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.machine.Pick(r.Context(), r.PathValue("id"), req.Quantities)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type scanRequest struct {
	ProductID string `json:"item_id"`
	EAN       string `json:"ean"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	valid, err := h.machine.Scan(r.Context(), r.PathValue("id"), req.ProductID, req.EAN)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

type egressRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Courier        string `json:"courier"`
	Notes          string `json:"notes,omitempty"`
}

func (h *Handler) handleEgress(w http.ResponseWriter, r *http.Request) {
	var req egressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.machine.Egress(r.Context(), r.PathValue("id"), req.TrackingNumber, req.Courier, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.machine.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleReimprint(w http.ResponseWriter, r *http.Request) {
	if err := h.machine.Reimprint(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- reports ---

type createReportRequest struct {
	OpenReason  string `json:"open_reason"`
	Description string `json:"description"`
	OrderID     string `json:"order_id,omitempty"`
	ChatID      string `json:"chat_id,omitempty"`
	BusinessID  string `json:"business_id,omitempty"`
}

func (h *Handler) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.reportSvc.CreateReport(r.Context(), req.OpenReason, req.Description, req.OrderID, req.ChatID, req.BusinessID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) handleGetReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportSvc.GetReports(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

type patchReportRequest struct {
	Close       bool   `json:"close,omitempty"`
	CloseReason string `json:"close_reason,omitempty"`
	Note        string `json:"note,omitempty"`
}

func (h *Handler) handlePatchReport(w http.ResponseWriter, r *http.Request) {
	var req patchReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	var (
		report *entity.Report
		err    error
	)
	switch {
	case req.Close:
		report, err = h.reportSvc.CloseReport(r.Context(), id, req.CloseReason)
	case req.Note != "":
		report, err = h.reportSvc.AppendNote(r.Context(), id, req.Note)
	default:
		writeErrorMessage(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- reviews ---

type createReviewRequest struct {
	PostID      string `json:"post_id"`
	BuyerID     string `json:"buyer_id"`
	Score       int    `json:"score"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := h.reviewSvc.CreateReview(r.Context(), req.PostID, req.BuyerID, req.Score, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleGetReviews(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("post_id")
	if postID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "post_id is required")
		return
	}
	reviews, err := h.reviewSvc.GetReviews(r.Context(), postID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// --- chats ---

type createChatRequest struct {
	Kind    entity.ChatKind `json:"kind"`
	OrderID string          `json:"order_id,omitempty"`
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chat, err := h.chatSvc.OpenChat(r.Context(), req.Kind, req.OrderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *Handler) handleGetChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatSvc.GetChats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

type postMessageRequest struct {
	Author entity.MessageAuthor `json:"author"`
	Body   string               `json:"body"`
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatSvc.PostMessage(r.Context(), r.PathValue("id"), req.Author, req.Body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chatSvc.GetMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleCloseChat(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseChat(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- payment options ---

type createPaymentOptionRequest struct {
	BusinessID string               `json:"business_id"`
	Kind       entity.PaymentKind   `json:"kind"`
	Link       *entity.PaymentLink  `json:"link,omitempty"`
	Transfer   *entity.BankTransfer `json:"transfer,omitempty"`
}

func (h *Handler) handleCreatePaymentOption(w http.ResponseWriter, r *http.Request) {
	var req createPaymentOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		opt *entity.PaymentOption
		err error
	)
	switch req.Kind {
	case entity.PaymentKindLink:
		if req.Link == nil {
			writeErrorMessage(w, http.StatusBadRequest, "link payload is required")
			return
		}
		opt, err = h.paymentSvc.CreateLink(r.Context(), req.BusinessID, req.Link.Gateway, req.Link.URL)
	case entity.PaymentKindTransfer:
		if req.Transfer == nil {
			writeErrorMessage(w, http.StatusBadRequest, "transfer payload is required")
			return
		}
		opt, err = h.paymentSvc.CreateTransfer(r.Context(), req.BusinessID, *req.Transfer)
	default:
		writeErrorMessage(w, http.StatusBadRequest, "unknown payment kind")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, opt)
}

func (h *Handler) handleGetPaymentOptions(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "business_id is required")
		return
	}
	opts, err := h.paymentSvc.GetOptions(r.Context(), businessID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) handleDeletePaymentOption(w http.ResponseWriter, r *http.Request) {
	if err := h.paymentSvc.DeleteOption(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- faq ---

func (h *Handler) handleGetFAQ(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.faq)
}

// --- plumbing ---

// writeError maps domain errors onto HTTP statuses: validation and
// business-rule rejections are 400, state conflicts 409, unknown entities
// 404, everything else 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fulfillment.ErrOrderNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, fulfillment.ErrInvalidTransition),
		errors.Is(err, repository.ErrVersionConflict):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, fulfillment.ErrPickOutOfBounds),
		errors.Is(err, fulfillment.ErrUnknownItem),
		errors.Is(err, fulfillment.ErrNotAllValidated),
		errors.Is(err, fulfillment.ErrMissingShippingInfo),
		errors.Is(err, entity.ErrInvalidScore),
		errors.Is(err, service.ErrReportClosed),
		errors.Is(err, service.ErrChatClosed):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Internal error", "err", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// EnableCORS is a middleware to allow the web frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
