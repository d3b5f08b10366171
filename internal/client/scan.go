package client

import (
	"context"
	"net/http"
)

// ScanSession is the modal EAN verification pass over one prepared order.
// Which items are already validated lives only in the session; closing the
// modal and opening it again starts from what the server has confirmed.
type ScanSession struct {
	client    *Client
	orderID   string
	validated map[string]bool
}

// NewScanSession starts a scan pass for one order.
func (c *Client) NewScanSession(orderID string) *ScanSession {
	return &ScanSession{
		client:    c,
		orderID:   orderID,
		validated: make(map[string]bool),
	}
}

// Scan checks a scanned code against the expected EAN of one line. A match
// is remembered for the rest of the session; re-scanning a validated line
// is a no-op that stays valid, and a mismatch never un-validates it.
func (s *ScanSession) Scan(ctx context.Context, productID, ean string) (bool, error) {
	if s.validated[productID] {
		return true, nil
	}

	body := struct {
		ProductID string `json:"item_id"`
		EAN       string `json:"ean"`
	}{ProductID: productID, EAN: ean}
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := s.client.do(ctx, http.MethodPost, "/api/orders/"+s.orderID+"/scan", body, &resp); err != nil {
		s.client.notifier.Notify(LevelError, err.Error())
		return false, err
	}
	if resp.Valid {
		s.validated[productID] = true
	}
	return resp.Valid, nil
}

// Validated reports whether a line was matched during this session.
func (s *ScanSession) Validated(productID string) bool {
	return s.validated[productID]
}

// AllValidated reports whether every given product id was matched.
func (s *ScanSession) AllValidated(productIDs []string) bool {
	if len(productIDs) == 0 {
		return false
	}
	for _, id := range productIDs {
		if !s.validated[id] {
			return false
		}
	}
	return true
}
