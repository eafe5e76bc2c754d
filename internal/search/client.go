// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package search is a client for the external search index that receives
// the text of published file and link pages.
package search

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
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-playground/validator/v10"
)

// ErrAuth is returned when the index rejects our credentials or hands back
// no token.
var ErrAuth = errors.New("search: authentication failed")

// Document is one entry pushed to the index.
type Document struct {
	DocumentID    string   `json:"documentId" validate:"required"`
	Title         string   `json:"title" validate:"required"`
	URL           string   `json:"url" validate:"required,url"`
	Content       string   `json:"content" validate:"required"`
	ContentType   string   `json:"contentType" validate:"required"`
	Date          string   `json:"date"`
	CustomFilter1 []string `json:"customFilter1"`
	Categories    []string `json:"categories"`
}

var validate = validator.New()

// ValidateDocument reports the first required field a document is missing.
func ValidateDocument(doc Document) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("search document %q: %w", doc.DocumentID, err)
	}
	return nil
}

// Config holds the index endpoint and credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	IndexID      string
	// Attempts bounds retries of transient failures. Zero means 3.
	Attempts uint
	// RetryDelay is the initial backoff. Zero means one second.
	RetryDelay time.Duration
}

// Client talks to the search index over HTTP.
type Client struct {
	config Config
	client *http.Client
}

// New creates a search index client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate exchanges the client credentials for a bearer token
// (POST /v1/auth/token with basic auth).
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	var tok tokenResponse
	err := c.do(ctx, "auth", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/auth/token", nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
		return req, nil
	}, &tok)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty token", ErrAuth)
	}
	return tok.AccessToken, nil
}

type addDocumentsRequest struct {
	DocumentsToAdd []Document `json:"documentsToAdd"`
}

// AddDocuments pushes a batch in one request
// (POST /v2/indexes/{indexId}/documents). An empty batch makes no request.
// Callers validate documents one by one beforehand; an invalid document
// here rejects the whole batch.
func (c *Client) AddDocuments(ctx context.Context, token string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		if err := ValidateDocument(docs[i]); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(addDocumentsRequest{DocumentsToAdd: docs})
	if err != nil {
		return fmt.Errorf("search marshal: %w", err)
	}

	url := c.config.BaseURL + "/v2/indexes/" + c.config.IndexID + "/documents"
	return c.do(ctx, "add documents", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}, nil)
}

// StatusError is a non-2xx response from the index.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search API error (status %d): %s", e.Code, e.Body)
}

// transient reports whether err is worth retrying: network errors and
// 5xx or 429 responses.
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// do sends the request built by build, retrying transient failures, and
// decodes a JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, op string, build func() (*http.Request, error), out any) error {
	return retry.Do(func() error {
		req, err := build()
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("search request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("search http: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("search read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("search unmarshal: %w", err))
			}
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(c.config.Attempts),
		retry.Delay(c.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(transient),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("search request failed, retrying", "op", op, "attempt", n+1, "error", err)
		}),
	)
}
