package embedport

import "context"

// MockClient returns a fixed vector regardless of input, for tests.
type MockClient struct {
	Vector []float32
	Err    error
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.Vector, m.Err
}
