// Package client talks to the locker API and keeps password sealing on the
// caller's side of the wire: the server only ever sees cipher blobs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/irgordon/locker/api/internal/core/domain"
	"github.com/irgordon/locker/api/internal/infrastructure/crypto"
)

// DecryptionFailedMarker replaces a password that could not be opened.
const DecryptionFailedMarker = "[Decryption Failed]"

// openConcurrency bounds the number of entries opened at once. Each open runs
// a full PBKDF2 derivation.
const openConcurrency = 8

var ErrNotAuthenticated = errors.New("client: not authenticated")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("locker api: %d %s", e.Status, e.Message)
}

// Item is an entry with its password opened.
type Item struct {
	domain.Entry
	Password string `json:"password"`
	// Opened is false when Password holds DecryptionFailedMarker.
	Opened bool `json:"opened"`
}

// ItemInput carries a plaintext password; it is sealed before leaving the process.
type ItemInput struct {
	Title    string
	Username string
	Password string
	Notes    string
}

type Client struct {
	baseURL string
	http    *http.Client
	cipher  domain.SecretCipher
	logger  *slog.Logger

	mu      sync.RWMutex
	session *domain.Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSession resumes a previously stored session.
func WithSession(s *domain.Session) Option {
	return func(c *Client) { c.session = s }
}

// WithCipher swaps the sealing implementation.
func WithCipher(sc domain.SecretCipher) Option {
	return func(c *Client) { c.cipher = sc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		cipher:  crypto.NewCipher(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current session, or nil.
func (c *Client) Session() *domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) Register(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", "", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var session domain.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", body, &session); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	return c.Session(), nil
}

// Refresh rotates the token pair using the stored refresh token.
func (c *Client) Refresh(ctx context.Context) (*domain.Session, error) {
	current := c.Session()
	if current == nil {
		return nil, ErrNotAuthenticated
	}

	var session domain.Session
	body := map[string]string{"refreshToken": current.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", "", body, &session); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	return c.Session(), nil
}

// List fetches every entry and opens the passwords concurrently. A blob that
// fails to open yields DecryptionFailedMarker for that item only.
func (c *Client) List(ctx context.Context) ([]Item, error) {
	session := c.Session()
	if session == nil {
		return nil, ErrNotAuthenticated
	}

	var entries []domain.Entry
	if err := c.do(ctx, http.MethodGet, "/api/v1/entries", session.AccessToken, nil, &entries); err != nil {
		return nil, err
	}

	secret := session.UserID.String()
	items := make([]Item, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(openConcurrency)
	for i := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = c.openItem(entries[i], secret)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Add(ctx context.Context, in ItemInput) (*Item, error) {
	session := c.Session()
	if session == nil {
		return nil, ErrNotAuthenticated
	}

	body, err := c.sealInput(in, session.UserID)
	if err != nil {
		return nil, err
	}

	var entry domain.Entry
	if err := c.do(ctx, http.MethodPost, "/api/v1/entries", session.AccessToken, body, &entry); err != nil {
		return nil, err
	}
	return &Item{Entry: entry, Password: in.Password, Opened: true}, nil
}

// Update stores a freshly sealed blob in place of the old one.
func (c *Client) Update(ctx context.Context, id uuid.UUID, in ItemInput) (*Item, error) {
	session := c.Session()
	if session == nil {
		return nil, ErrNotAuthenticated
	}

	body, err := c.sealInput(in, session.UserID)
	if err != nil {
		return nil, err
	}

	var entry domain.Entry
	if err := c.do(ctx, http.MethodPut, "/api/v1/entries/"+id.String(), session.AccessToken, body, &entry); err != nil {
		return nil, err
	}
	return &Item{Entry: entry, Password: in.Password, Opened: true}, nil
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	session := c.Session()
	if session == nil {
		return ErrNotAuthenticated
	}
	return c.do(ctx, http.MethodDelete, "/api/v1/entries/"+id.String(), session.AccessToken, nil, nil)
}

func (c *Client) openItem(entry domain.Entry, secret string) Item {
	password, err := c.cipher.Open(entry.EncryptedPassword, secret)
	if err != nil {
		c.logger.Warn("Failed to open entry", slog.String("entry_id", entry.ID.String()), slog.String("error", err.Error()))
		return Item{Entry: entry, Password: DecryptionFailedMarker}
	}
	return Item{Entry: entry, Password: password, Opened: true}
}

func (c *Client) sealInput(in ItemInput, userID uuid.UUID) (map[string]string, error) {
	blob, err := c.cipher.Seal(in.Password, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to seal password: %w", err)
	}
	return map[string]string{
		"title":             in.Title,
		"username":          in.Username,
		"encryptedPassword": blob,
		"notes":             in.Notes,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
		if payload.Message == "" {
			payload.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
