package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// User is the slice of the identity record the relay cares about. Everything
// beyond the id is profile data the relay carries but never interprets.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IdentityClient talks to the upstream identity service that owns user
// accounts and message persistence.
type IdentityClient struct {
	baseURL string
	http    *http.Client
}

func NewIdentityClient(baseURL string) *IdentityClient {
	return &IdentityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
}

// Me resolves the bearer token to a user record. Any non-200 response,
// undecodable body, or record without an id is an authentication failure.
func (c *IdentityClient) Me(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("identity check failed: %d", resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, err
	}
	if u.ID == "" {
		return User{}, fmt.Errorf("identity response missing user id")
	}
	return u, nil
}

// CreateMessage persists a chat message on behalf of the connection that
// submitted it, replaying that connection's bearer token. On success it
// returns the canonical stored message exactly as the upstream encoded it.
func (c *IdentityClient) CreateMessage(ctx context.Context, token, chatID, text string) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]string{"text": text})
	endpoint := fmt.Sprintf("%s/chats/%s/messages", c.baseURL, url.PathEscape(chatID))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("create message failed: %d: %s", resp.StatusCode, detail)
	}

	var res struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if len(res.Message) == 0 || string(res.Message) == "null" {
		return nil, fmt.Errorf("create message response missing message")
	}
	return res.Message, nil
}
