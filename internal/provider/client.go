// Package provider performs authenticated calls against the board provider
// REST API. Every feature operation funnels through Client.Call so transport
// handling and error shape stay uniform across the whole surface.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/domain"
	"github.com/smallbiznis/boardlink/internal/secrets"
	"github.com/smallbiznis/boardlink/internal/token"
)

// TokenEnsurer refreshes a user's access token ahead of an API call.
type TokenEnsurer interface {
	EnsureFreshToken(ctx context.Context, userID string)
}

// Client issues authenticated HTTP calls to the provider base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	vault      *secrets.Vault
	tokens     TokenEnsurer
	logger     *zap.Logger
}

// Result is the normalized outcome of a successful call. Body always carries
// the raw response; JSON is the decoded payload when the caller asked for it.
type Result struct {
	JSON any
	Body []byte
}

// NewClient wires the API client.
func NewClient(httpClient *http.Client, baseURL string, vault *secrets.Vault, tokens TokenEnsurer, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		vault:      vault,
		tokens:     tokens,
		logger:     logger,
	}
}

// Call performs one authenticated request. Params become the query string on
// GET (array values serialized as repeated key[]=value pairs ahead of the
// scalar pairs, a wire requirement of the provider) and a JSON body otherwise.
// Upstream >= 400 resolves to ErrBadCredentials with the body kept out of the
// caller-facing error; transport failures are wrapped and logged at debug.
func (c *Client) Call(ctx context.Context, userID, endpoint string, params map[string]any, method string, jsonResponse bool) (*Result, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, domain.ErrBadMethod
	}

	c.tokens.EnsureFreshToken(ctx, userID)

	accessToken, err := c.vault.GetUserSecret(ctx, userID, domain.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}

	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	var reqBody io.Reader
	if len(params) > 0 {
		if method == http.MethodGet {
			reqURL += "?" + encodeQuery(params)
		} else {
			payload, err := json.Marshal(params)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			reqBody = bytes.NewReader(payload)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", token.UserAgent)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("provider API error", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.logger.Debug("provider API read error", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		c.logger.Debug("provider API rejected request",
			zap.String("endpoint", endpoint),
			zap.Int("status", httpResp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, domain.ErrBadCredentials
	}

	result := &Result{Body: body}
	if jsonResponse && len(body) > 0 {
		if err := json.Unmarshal(body, &result.JSON); err != nil {
			return nil, fmt.Errorf("decode provider response: %w", err)
		}
	}
	return result, nil
}

// encodeQuery serializes GET parameters: array values first as repeated
// key[]=value pairs, scalars appended via standard query encoding. Keys are
// sorted within each class so the output is deterministic.
func encodeQuery(params map[string]any) string {
	var arrayKeys []string
	scalars := url.Values{}
	for key, value := range params {
		if _, ok := value.([]string); ok {
			arrayKeys = append(arrayKeys, key)
			continue
		}
		scalars.Set(key, fmt.Sprint(value))
	}
	sort.Strings(arrayKeys)

	var b strings.Builder
	for _, key := range arrayKeys {
		for _, item := range params[key].([]string) {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteString("[]=")
			b.WriteString(url.QueryEscape(item))
		}
	}
	if encoded := scalars.Encode(); encoded != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encoded)
	}
	return b.String()
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
