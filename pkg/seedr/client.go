package seedr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seedrio/pkg/logger"
)

const (
	fetchRetries    = 3
	fetchRetryDelay = 1 * time.Second
)

// Client is a thin read-only wrapper around the Seedr REST API
type Client struct {
	baseURL string
	creds   CredentialSource
	client  *http.Client
}

// NewClient creates a new Seedr REST client. baseURL is the API root
// (https://www.seedr.cc/rest in production, an httptest URL in tests).
func NewClient(baseURL string, creds CredentialSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ListContents lists one directory level. folderID <= 0 lists the account root.
func (c *Client) ListContents(ctx context.Context, folderID int64) (*FolderListing, error) {
	endpoint := c.baseURL + "/folder"
	if folderID > 0 {
		endpoint = fmt.Sprintf("%s/folder/%d", c.baseURL, folderID)
	}

	var listing FolderListing
	if err := c.getJSON(ctx, endpoint, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// FetchFile resolves the direct playable URL for a file. Transient failures
// are retried up to 3 times with a fixed 1-second backoff.
func (c *Client) FetchFile(ctx context.Context, fileID int64) (*FileLink, error) {
	endpoint := fmt.Sprintf("%s/file/%d", c.baseURL, fileID)

	var link FileLink
	var err error
	for attempt := 1; attempt <= fetchRetries; attempt++ {
		err = c.getJSON(ctx, endpoint, &link)
		if err == nil {
			if link.URL == "" {
				return nil, &RemoteError{StatusCode: http.StatusOK, Body: "no url in file response"}
			}
			return &link, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		if attempt < fetchRetries {
			logger.Debug("Retrying file fetch", "file", fileID, "attempt", attempt, "err", err)
			select {
			case <-time.After(fetchRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, err
}

// getJSON issues one authenticated GET and decodes the JSON body into target.
func (c *Client) getJSON(ctx context.Context, endpoint string, target interface{}) error {
	cred, ok := c.creds.Credential()
	if !ok {
		return ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "seedrio")
	if cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	} else if cred.Cookie != "" {
		req.Header.Set("Cookie", cred.Cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransientError{Err: &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &RemoteError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("malformed response: %v", err)}
	}
	return nil
}
