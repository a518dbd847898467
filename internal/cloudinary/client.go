// Package cloudinary uploads profile photos through the Cloudinary REST API.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// Client signs and posts image uploads.
type Client struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	baseURL   string
	http      *http.Client
	now       func() time.Time
}

// Option adjusts a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(cloudName, apiKey, apiSecret, folder string, opts ...Option) *Client {
	c := &Client{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UploadResult holds the response from Cloudinary after a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// Upload sends an image stream. subfolder is appended to the configured
// folder; publicID pins the asset name so re-uploads overwrite.
func (c *Client) Upload(ctx context.Context, r io.Reader, filename, subfolder, publicID string) (UploadResult, error) {
	return c.post(ctx, subfolder, publicID, func(w *multipart.Writer) error {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, r)
		return err
	})
}

// UploadDataURL sends a "data:image/...;base64," URL or raw base64 payload.
func (c *Client) UploadDataURL(ctx context.Context, data, subfolder, publicID string) (UploadResult, error) {
	return c.post(ctx, subfolder, publicID, func(w *multipart.Writer) error {
		return w.WriteField("file", data)
	})
}

func (c *Client) post(ctx context.Context, subfolder, publicID string, writeFile func(*multipart.Writer) error) (UploadResult, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if folder := joinFolder(c.folder, subfolder); folder != "" {
		params["folder"] = folder
	}
	if publicID != "" {
		params["public_id"] = publicID
		params["overwrite"] = "true"
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.apiKey

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return UploadResult{}, fmt.Errorf("cloudinary: write field: %w", err)
		}
	}
	if err := writeFile(w); err != nil {
		return UploadResult{}, fmt.Errorf("cloudinary: write file: %w", err)
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("cloudinary: close form: %w", err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return UploadResult{}, fmt.Errorf("cloudinary: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("cloudinary: request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return UploadResult{}, fmt.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return UploadResult{}, fmt.Errorf("cloudinary: decode response: %w", err)
	}
	return result, nil
}

func joinFolder(base, sub string) string {
	switch {
	case base == "":
		return sub
	case sub == "":
		return base
	}
	return base + "/" + sub
}

// sign computes the SHA-1 request signature over the sorted params, which
// must not yet contain api_key or file.
func (c *Client) sign(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
