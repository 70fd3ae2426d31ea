package runner

import (
	"context"
	"sync"

	"buzzrunner/internal/platform"
)

// fakeBehavior scripts one account's client responses.
type fakeBehavior struct {
	loginErr   error
	resolveErr error
	likeErr    error
	commentErr error
	// rawErrs holds per-attempt fallback results; nil entries succeed.
	// Attempts beyond the slice succeed.
	rawErrs   []error
	exportErr error
	importErr error
}

// fakeClient implements platform.Client for tests. Behaviors are keyed
// by username, learned at Login time.
type fakeClient struct {
	mu        sync.Mutex
	behaviors map[string]*fakeBehavior
	clients   *sync.Map // username -> *fakeClient, for test inspection
	username  string

	proxies      []string
	proxyErr     error
	loginCalls   int
	twofas       []string
	likeCalls    int
	commentCalls int
	rawCalls     int
	posted       []string
	imported     int
	exported     int
}

func newFakeFactory(behaviors map[string]*fakeBehavior) (platform.Factory, *sync.Map) {
	clients := &sync.Map{}
	factory := func() platform.Client {
		return &fakeClient{behaviors: behaviors, clients: clients}
	}
	return factory, clients
}

func (c *fakeClient) behavior() *fakeBehavior {
	if b, ok := c.behaviors[c.username]; ok && b != nil {
		return b
	}
	return &fakeBehavior{}
}

func (c *fakeClient) SetProxy(proxy string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proxies = append(c.proxies, proxy)
	return c.proxyErr
}

func (c *fakeClient) Login(_ context.Context, username, _, twofa string) error {
	c.mu.Lock()
	c.username = username
	c.loginCalls++
	c.twofas = append(c.twofas, twofa)
	c.mu.Unlock()
	if c.clients != nil {
		c.clients.Store(username, c)
	}
	return c.behavior().loginErr
}

func (c *fakeClient) ExportSession() ([]byte, error) {
	c.mu.Lock()
	c.exported++
	c.mu.Unlock()
	if err := c.behavior().exportErr; err != nil {
		return nil, err
	}
	return []byte(`{"user":"` + c.username + `"}`), nil
}

func (c *fakeClient) ImportSession(_ []byte) error {
	c.mu.Lock()
	c.imported++
	c.mu.Unlock()
	return c.behavior().importErr
}

func (c *fakeClient) ResolveMediaID(_ context.Context, _ string) (string, error) {
	if err := c.behavior().resolveErr; err != nil {
		return "", err
	}
	return "12345", nil
}

func (c *fakeClient) Like(_ context.Context, _ string) error {
	c.mu.Lock()
	c.likeCalls++
	c.mu.Unlock()
	return c.behavior().likeErr
}

func (c *fakeClient) Comment(_ context.Context, _ string, text string) error {
	c.mu.Lock()
	c.commentCalls++
	c.mu.Unlock()
	if err := c.behavior().commentErr; err != nil {
		return err
	}
	c.mu.Lock()
	c.posted = append(c.posted, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) RawRequest(_ context.Context, _ string, payload map[string]string) (map[string]any, error) {
	c.mu.Lock()
	attempt := c.rawCalls
	c.rawCalls++
	c.mu.Unlock()

	errs := c.behavior().rawErrs
	if attempt < len(errs) && errs[attempt] != nil {
		return nil, errs[attempt]
	}
	c.mu.Lock()
	c.posted = append(c.posted, payload["comment_text"])
	c.mu.Unlock()
	return map[string]any{"status": "ok"}, nil
}
