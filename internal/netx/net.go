// Package netx holds small HTTP helpers shared by the server packages.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTooLarge is returned by Download when the body exceeds the limit.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Download fetches url with a GET request and returns the body and its
// Content-Type. Any status other than 200 is an error. A limit of zero or less
// disables the size check.
func Download(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", ErrTooLarge
	}

	return data, resp.Header.Get("Content-Type"), nil
}
