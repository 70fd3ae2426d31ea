package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://i.instagram.com/api/v1/"
	defaultUserAgent = "Instagram 269.0.0.18.75 Android (30/11; 480dpi; 1080x2158; Xiaomi; M2101K6G)"
)

// webClient talks to the platform's private web API. One instance per
// account; it owns its cookie jar and proxy configuration.
type webClient struct {
	http      *http.Client
	transport *http.Transport
	baseURL   string
	userAgent string
	username  string
	csrf      string
}

// NewWebClient returns a fresh unauthenticated client. Its signature
// matches Factory.
func NewWebClient() Client {
	jar, _ := cookiejar.New(nil)
	transport := &http.Transport{}
	return &webClient{
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		transport: transport,
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
	}
}

func (c *webClient) SetProxy(proxy string) error {
	u, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("proxy url %q missing scheme or host", proxy)
	}
	c.transport.Proxy = http.ProxyURL(u)
	return nil
}

func (c *webClient) Login(ctx context.Context, username, password, twofa string) error {
	payload := map[string]string{
		"username": username,
		"password": password,
	}
	if twofa != "" {
		payload["verification_code"] = twofa
	}

	body, status, err := c.postForm(ctx, "accounts/login/", payload)
	if err != nil {
		return &Error{Kind: KindOther, Op: "login", Err: err}
	}
	if err := classify("login", status, body); err != nil {
		return err
	}

	c.username = username
	c.csrf = c.cookieValue("csrftoken")
	return nil
}

func (c *webClient) Like(ctx context.Context, mediaID string) error {
	endpoint := fmt.Sprintf("media/%s/like/", mediaID)
	body, status, err := c.postForm(ctx, endpoint, map[string]string{"media_id": mediaID})
	if err != nil {
		return &Error{Kind: KindOther, Op: "like", Err: err}
	}
	return classify("like", status, body)
}

func (c *webClient) Comment(ctx context.Context, mediaID, text string) error {
	endpoint := fmt.Sprintf("media/%s/comment/", mediaID)
	body, status, err := c.postForm(ctx, endpoint, map[string]string{"comment_text": text})
	if err != nil {
		return &Error{Kind: KindOther, Op: "comment", Err: err}
	}
	return classify("comment", status, body)
}

func (c *webClient) RawRequest(ctx context.Context, endpoint string, payload map[string]string) (map[string]any, error) {
	body, status, err := c.postForm(ctx, endpoint, payload)
	if err != nil {
		return nil, &Error{Kind: KindOther, Op: "raw_request", Err: err}
	}
	// Only an explicit failure marker counts as failure; an unrecognized
	// response shape passes through as-is.
	if s, _ := body["status"].(string); s == "fail" || status >= 400 {
		return nil, classify("raw_request", status, body)
	}
	return body, nil
}

func (c *webClient) ResolveMediaID(_ context.Context, postURL string) (string, error) {
	return mediaIDFromURL(postURL)
}

// sessionState is the serialized form of an authenticated client.
type sessionState struct {
	Username  string          `json:"username"`
	UserAgent string          `json:"user_agent"`
	CSRFToken string          `json:"csrf_token"`
	Cookies   []sessionCookie `json:"cookies"`
}

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (c *webClient) ExportSession() ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	st := sessionState{
		Username:  c.username,
		UserAgent: c.userAgent,
		CSRFToken: c.csrf,
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		st.Cookies = append(st.Cookies, sessionCookie{Name: ck.Name, Value: ck.Value})
	}
	return json.Marshal(st)
}

func (c *webClient) ImportSession(blob []byte) error {
	var st sessionState
	if err := json.Unmarshal(blob, &st); err != nil {
		return fmt.Errorf("decode session blob: %w", err)
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(st.Cookies))
	for _, ck := range st.Cookies {
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
	}
	c.http.Jar.SetCookies(u, cookies)
	c.username = st.Username
	c.csrf = st.CSRFToken
	if st.UserAgent != "" {
		c.userAgent = st.UserAgent
	}
	return nil
}

func (c *webClient) postForm(ctx context.Context, endpoint string, payload map[string]string) (map[string]any, int, error) {
	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	if c.csrf != "" {
		req.Header.Set("X-CSRFToken", c.csrf)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}

	body := map[string]any{}
	if len(raw) > 0 {
		// Tolerate non-JSON bodies; classification falls back to the
		// HTTP status in that case.
		_ = json.Unmarshal(raw, &body)
	}
	return body, resp.StatusCode, nil
}

func (c *webClient) cookieValue(name string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// classify turns a decoded response into a kinded error, or nil for
// success. This is the single place response markers are interpreted.
func classify(op string, status int, body map[string]any) error {
	msg, _ := body["message"].(string)
	if tf, _ := body["two_factor_required"].(bool); tf || msg == "two_factor_required" {
		return &Error{Kind: KindTwoFactorRequired, Op: op, Message: msg}
	}
	lower := strings.ToLower(msg)
	switch {
	case msg == "challenge_required" || msg == "checkpoint_required" || body["challenge"] != nil:
		return &Error{Kind: KindChallengeRequired, Op: op, Message: msg}
	case status == http.StatusTooManyRequests,
		msg == "feedback_required",
		strings.Contains(lower, "action_blocked"),
		strings.Contains(lower, "please wait"):
		return &Error{Kind: KindRateLimited, Op: op, Message: msg}
	}
	if s, _ := body["status"].(string); s == "fail" || status >= 400 {
		if msg == "" {
			msg = fmt.Sprintf("http status %d", status)
		}
		return &Error{Kind: KindOther, Op: op, Message: msg}
	}
	return nil
}
