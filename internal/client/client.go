// Package client is the in-process frontend of the marketplace: per-entity
// snapshot stores, a typed REST client that keeps them in sync, and the
// modal scan session used during fulfillment. Mutations are never applied
// optimistically; the stores only hold what the server confirmed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/support"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the marketplace REST API and mirrors server state into
// its stores. Every mutating call follows the same contract: send the
// request, and on success re-fetch the affected snapshot from the server
// before notifying; on failure leave the stores untouched, emit an error
// notification and return the error. No call is retried or deduplicated
// here; the backend's event store rejects duplicates on its own.
type Client struct {
	baseURL  string
	http     *http.Client
	notifier Notifier

	Products       *Store[entity.Product]
	Stock          *Store[entity.StockLevel]
	Orders         *Store[entity.Order]
	Reports        *Store[entity.Report]
	Chats          *Store[entity.Chat]
	PaymentOptions *Store[entity.PaymentOption]
}

// New creates a client for the API at baseURL. httpClient and notifier may
// be nil.
func New(baseURL string, httpClient *http.Client, notifier Notifier) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Client{
		baseURL:  baseURL,
		http:     httpClient,
		notifier: notifier,

		Products:       NewStore(func(p entity.Product) string { return p.ID }),
		Stock:          NewStore(func(s entity.StockLevel) string { return s.ProductID }),
		Orders:         NewStore(func(o entity.Order) string { return o.ID }),
		Reports:        NewStore(func(r entity.Report) string { return r.ID }),
		Chats:          NewStore(func(c entity.Chat) string { return c.ID }),
		PaymentOptions: NewStore(func(p entity.PaymentOption) string { return p.ID }),
	}
}

// --- products & orders ---

// RefreshProducts reloads the product catalog.
func (c *Client) RefreshProducts(ctx context.Context) error {
	var products []entity.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &products); err != nil {
		return err
	}
	c.Products.Set(products)
	return nil
}

// RefreshStock reloads the per-listing storage levels.
func (c *Client) RefreshStock(ctx context.Context) error {
	var levels []entity.StockLevel
	if err := c.do(ctx, http.MethodGet, "/api/stock", nil, &levels); err != nil {
		return err
	}
	c.Stock.Set(levels)
	return nil
}

// RefreshOrders reloads all orders.
func (c *Client) RefreshOrders(ctx context.Context) error {
	var orders []entity.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders); err != nil {
		return err
	}
	c.Orders.Set(orders)
	return nil
}

// RefreshOrder reloads a single order into the store.
func (c *Client) RefreshOrder(ctx context.Context, orderID string) error {
	var order entity.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+orderID, nil, &order); err != nil {
		return err
	}
	c.Orders.Update(order)
	return nil
}

// PlaceOrder submits a checkout command and reloads the order list.
func (c *Client) PlaceOrder(ctx context.Context, cmd *entity.PlaceOrder) error {
	return c.mutate(ctx, "order placed",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/orders", cmd, nil)
		},
		c.RefreshOrders,
	)
}

// --- fulfillment ---

// Pick reports the picked quantity for every line of a pending order.
func (c *Client) Pick(ctx context.Context, orderID string, quantities map[string]int) error {
	body := struct {
		Quantities map[string]int `json:"quantities"`
	}{Quantities: quantities}
	return c.mutate(ctx, "order picked",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/orders/"+orderID+"/pick", body, nil)
		},
		func(ctx context.Context) error { return c.RefreshOrder(ctx, orderID) },
	)
}

// Egress ships a prepared order with its tracking details.
func (c *Client) Egress(ctx context.Context, orderID, trackingNumber, courier, notes string) error {
	body := struct {
		TrackingNumber string `json:"tracking_number"`
		Courier        string `json:"courier"`
		Notes          string `json:"notes,omitempty"`
	}{TrackingNumber: trackingNumber, Courier: courier, Notes: notes}
	return c.mutate(ctx, "order shipped",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/orders/"+orderID+"/egress", body, nil)
		},
		func(ctx context.Context) error { return c.RefreshOrder(ctx, orderID) },
	)
}

// Cancel cancels a pending order.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	return c.mutate(ctx, "order canceled",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/orders/"+orderID+"/cancel", nil, nil)
		},
		func(ctx context.Context) error { return c.RefreshOrder(ctx, orderID) },
	)
}

// Reimprint requests another copy of the shipping label.
func (c *Client) Reimprint(ctx context.Context, orderID string) error {
	return c.mutate(ctx, "label reprinted",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/orders/"+orderID+"/reimprint", nil, nil)
		},
		nil,
	)
}

// --- reports ---

// RefreshReports reloads all reports.
func (c *Client) RefreshReports(ctx context.Context) error {
	var reports []entity.Report
	if err := c.do(ctx, http.MethodGet, "/api/reports", nil, &reports); err != nil {
		return err
	}
	c.Reports.Set(reports)
	return nil
}

// SubmitReport opens a report. It satisfies support.ReportSubmitter so a
// FAQ walk can end in a real submission.
func (c *Client) SubmitReport(ctx context.Context, openReason, description, orderID string) error {
	body := struct {
		OpenReason  string `json:"open_reason"`
		Description string `json:"description"`
		OrderID     string `json:"order_id,omitempty"`
	}{OpenReason: openReason, Description: description, OrderID: orderID}
	return c.mutate(ctx, "report submitted",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/reports", body, nil)
		},
		c.RefreshReports,
	)
}

// CloseReport closes a report with an optional reason.
func (c *Client) CloseReport(ctx context.Context, reportID, closeReason string) error {
	body := struct {
		Close       bool   `json:"close"`
		CloseReason string `json:"close_reason,omitempty"`
	}{Close: true, CloseReason: closeReason}
	return c.mutate(ctx, "report closed",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPatch, "/api/reports/"+reportID, body, nil)
		},
		c.RefreshReports,
	)
}

// AppendReportNote adds a note to an open report.
func (c *Client) AppendReportNote(ctx context.Context, reportID, note string) error {
	body := struct {
		Note string `json:"note"`
	}{Note: note}
	return c.mutate(ctx, "note added",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPatch, "/api/reports/"+reportID, body, nil)
		},
		c.RefreshReports,
	)
}

var _ support.ReportSubmitter = (*Client)(nil)

// --- reviews ---

// Reviews fetches the reviews for one post. Reviews are per-post and
// immutable, so they are fetched on demand instead of cached in a store.
func (c *Client) Reviews(ctx context.Context, postID string) ([]entity.Review, error) {
	var reviews []entity.Review
	if err := c.do(ctx, http.MethodGet, "/api/reviews?post_id="+postID, nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// CreateReview submits a buyer review for a post.
func (c *Client) CreateReview(ctx context.Context, postID, buyerID string, score int, description string) error {
	body := struct {
		PostID      string `json:"post_id"`
		BuyerID     string `json:"buyer_id"`
		Score       int    `json:"score"`
		Description string `json:"description"`
	}{PostID: postID, BuyerID: buyerID, Score: score, Description: description}
	return c.mutate(ctx, "review published",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/reviews", body, nil)
		},
		nil,
	)
}

// --- chats ---

// RefreshChats reloads all chats.
func (c *Client) RefreshChats(ctx context.Context) error {
	var chats []entity.Chat
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &chats); err != nil {
		return err
	}
	c.Chats.Set(chats)
	return nil
}

// OpenChat starts a new conversation.
func (c *Client) OpenChat(ctx context.Context, kind entity.ChatKind, orderID string) error {
	body := struct {
		Kind    entity.ChatKind `json:"kind"`
		OrderID string          `json:"order_id,omitempty"`
	}{Kind: kind, OrderID: orderID}
	return c.mutate(ctx, "chat opened",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/chats", body, nil)
		},
		c.RefreshChats,
	)
}

// Messages fetches a chat's messages in creation order.
func (c *Client) Messages(ctx context.Context, chatID string) ([]entity.Message, error) {
	var msgs []entity.Message
	if err := c.do(ctx, http.MethodGet, "/api/chats/"+chatID+"/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// PostMessage appends a message to an open chat.
func (c *Client) PostMessage(ctx context.Context, chatID string, author entity.MessageAuthor, msgBody string) error {
	body := struct {
		Author entity.MessageAuthor `json:"author"`
		Body   string               `json:"body"`
	}{Author: author, Body: msgBody}
	return c.mutate(ctx, "message sent",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/messages", body, nil)
		},
		nil,
	)
}

// CloseChat closes a chat for further messages.
func (c *Client) CloseChat(ctx context.Context, chatID string) error {
	return c.mutate(ctx, "chat closed",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/chats/"+chatID+"/close", nil, nil)
		},
		c.RefreshChats,
	)
}

// --- payment options ---

// RefreshPaymentOptions reloads the payment options of one business.
func (c *Client) RefreshPaymentOptions(ctx context.Context, businessID string) error {
	var opts []entity.PaymentOption
	if err := c.do(ctx, http.MethodGet, "/api/payment-options?business_id="+businessID, nil, &opts); err != nil {
		return err
	}
	c.PaymentOptions.Set(opts)
	return nil
}

// CreateLinkOption registers a gateway checkout link for a business.
func (c *Client) CreateLinkOption(ctx context.Context, businessID, gateway, url string) error {
	body := struct {
		BusinessID string              `json:"business_id"`
		Kind       entity.PaymentKind  `json:"kind"`
		Link       *entity.PaymentLink `json:"link"`
	}{BusinessID: businessID, Kind: entity.PaymentKindLink, Link: &entity.PaymentLink{Gateway: gateway, URL: url}}
	return c.mutate(ctx, "payment option added",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/payment-options", body, nil)
		},
		func(ctx context.Context) error { return c.RefreshPaymentOptions(ctx, businessID) },
	)
}

// CreateTransferOption registers bank transfer details for a business.
func (c *Client) CreateTransferOption(ctx context.Context, businessID string, t entity.BankTransfer) error {
	body := struct {
		BusinessID string               `json:"business_id"`
		Kind       entity.PaymentKind   `json:"kind"`
		Transfer   *entity.BankTransfer `json:"transfer"`
	}{BusinessID: businessID, Kind: entity.PaymentKindTransfer, Transfer: &t}
	return c.mutate(ctx, "payment option added",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodPost, "/api/payment-options", body, nil)
		},
		func(ctx context.Context) error { return c.RefreshPaymentOptions(ctx, businessID) },
	)
}

// DeletePaymentOption removes a payment option.
func (c *Client) DeletePaymentOption(ctx context.Context, optionID string) error {
	return c.mutate(ctx, "payment option removed",
		func(ctx context.Context) error {
			return c.do(ctx, http.MethodDelete, "/api/payment-options/"+optionID, nil, nil)
		},
		func(context.Context) error {
			c.PaymentOptions.Remove(optionID)
			return nil
		},
	)
}

// --- faq ---

// FAQ downloads and validates the FAQ decision tree.
func (c *Client) FAQ(ctx context.Context) (*support.Graph, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/faq", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch faq: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}
	return support.LoadGraph(resp.Body)
}

// --- plumbing ---

// mutate runs call, then on success runs refresh and notifies; on failure
// it notifies the error and propagates it without touching any store.
func (c *Client) mutate(ctx context.Context, okMessage string, call, refresh func(context.Context) error) error {
	if err := call(ctx); err != nil {
		c.notifier.Notify(LevelError, err.Error())
		return err
	}
	if refresh != nil {
		if err := refresh(ctx); err != nil {
			c.notifier.Notify(LevelError, err.Error())
			return err
		}
	}
	c.notifier.Notify(LevelSuccess, okMessage)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiResp struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiResp); decodeErr != nil || apiResp.Error == "" {
			apiResp.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: apiResp.Error}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
