package shipping

import "context"

// MockClient is a Client whose behaviour is set per test
type MockClient struct {
	FnGetQuote  func(ctx context.Context, originID, destinationID string, weightGrams int, carrier string) (*Quote, error)
	FnProvinces func(ctx context.Context, filter *ProvinceFilter) ([]Province, error)
	FnCities    func(ctx context.Context, filter *CityFilter) ([]City, error)
}

func (m *MockClient) GetQuote(ctx context.Context, originID, destinationID string, weightGrams int, carrier string) (*Quote, error) {
	if m.FnGetQuote == nil {
		return &Quote{Service: "REG", Cost: 8000, ETA: "2-3"}, nil
	}

	return m.FnGetQuote(ctx, originID, destinationID, weightGrams, carrier)
}

func (m *MockClient) Provinces(ctx context.Context, filter *ProvinceFilter) ([]Province, error) {
	if m.FnProvinces == nil {
		return []Province{}, nil
	}

	return m.FnProvinces(ctx, filter)
}

func (m *MockClient) Cities(ctx context.Context, filter *CityFilter) ([]City, error) {
	if m.FnCities == nil {
		return []City{}, nil
	}

	return m.FnCities(ctx, filter)
}
