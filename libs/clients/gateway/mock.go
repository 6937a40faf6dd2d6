package gateway

import "context"

// MockClient is a Client whose behaviour is set per test
type MockClient struct {
	FnCreateIntent func(ctx context.Context, req *IntentRequest) (*IntentResponse, error)
	FnGetStatus    func(ctx context.Context, orderCode string) (*StatusResponse, error)
}

func (m *MockClient) CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error) {
	if m.FnCreateIntent == nil {
		return &IntentResponse{Token: "tok_" + req.OrderCode}, nil
	}

	return m.FnCreateIntent(ctx, req)
}

func (m *MockClient) GetStatus(ctx context.Context, orderCode string) (*StatusResponse, error) {
	if m.FnGetStatus == nil {
		return &StatusResponse{OrderID: orderCode, StatusCode: "201", TransactionStatus: "pending", Raw: []byte(`{}`)}, nil
	}

	return m.FnGetStatus(ctx, orderCode)
}
