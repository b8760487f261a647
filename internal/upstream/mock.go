package upstream

import (
	"context"
	"errors"
	"sync"

	"scrapegate/internal/model"
)

// MockClient is a deterministic, in-memory Client used by the CLI dispatch
// demo and by dispatcher/ladder tests. It never touches the network.
type MockClient struct {
	mu      sync.Mutex
	cookies []string

	// LoginErr, when set, makes Login fail with this error.
	LoginErr error
	// VerifyOK controls whether VerifySession reports the session usable.
	VerifyOK bool
	// VerifyErr, when set, makes VerifySession fail with this error.
	VerifyErr error
}

// NewMockClient returns a MockClient that verifies successfully by default.
func NewMockClient() *MockClient {
	return &MockClient{VerifyOK: true}
}

func (m *MockClient) SetCookies(cookies []Cookie) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies = m.cookies[:0]
	for _, c := range cookies {
		m.cookies = append(m.cookies, c.Name+"="+c.Value)
	}
}

func (m *MockClient) SetRawCookies(cookies []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies = append([]string(nil), cookies...)
}

func (m *MockClient) Cookies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cookies...)
}

func (m *MockClient) Login(ctx context.Context, account model.Account) error {
	if m.LoginErr != nil {
		return m.LoginErr
	}
	m.mu.Lock()
	m.cookies = []string{"session=mock-" + account.ScreenName}
	m.mu.Unlock()
	return nil
}

func (m *MockClient) VerifySession(ctx context.Context) (bool, error) {
	if m.VerifyErr != nil {
		return false, m.VerifyErr
	}
	return m.VerifyOK, nil
}

// ErrMockUpstream is a generic sentinel for tests that just need Login or
// VerifySession to fail.
var ErrMockUpstream = errors.New("mock upstream error")

// MockFactory hands out a fresh MockClient per call, optionally seeded by
// New before it's returned.
type MockFactory struct {
	// Configure, when set, is applied to each freshly built MockClient
	// before it's returned.
	Configure func(*MockClient)
	// Err, when set, makes every New call fail instead of building a client.
	Err error
}

func (f MockFactory) New(_ *model.Proxy) (Client, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	c := NewMockClient()
	if f.Configure != nil {
		f.Configure(c)
	}
	return c, nil
}
