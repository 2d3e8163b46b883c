package payments

import (
	"context"
	"sync"

	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
)

type fakeGateway struct {
	mu       sync.Mutex
	created  []SessionRequest
	sessions map[string]*GatewaySession
	err      error
	nextID   string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*GatewaySession{}, nextID: "cs_test_1"}
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req SessionRequest) (*GatewaySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	sess := &GatewaySession{
		ID:            f.nextID,
		URL:           "https://checkout.stripe.test/" + f.nextID,
		PaymentStatus: "unpaid",
		Status:        "open",
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Metadata:      map[string]string{MetadataOrderID: req.OrderID, MetadataUserID: req.UserID},
	}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*GatewaySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return sess, nil
}
