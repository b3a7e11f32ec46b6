package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.bybit.com"

	// Bybit permite 10 req/s en los endpoints P2P; nos quedamos muy por
	// debajo — el sync pagina como mucho unas decenas de veces.
	requestsPerSec = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client firmado de Bybit, con rate limiting y retries.
type Client struct {
	http       *http.Client
	baseURL    string
	key        string
	secret     string
	recvWindow string
	limiter    *rate.Limiter
}

// Options configura el Client.
type Options struct {
	BaseURL      string
	Key          string
	Secret       string
	RecvWindowMs int
}

// NewClient crea un Client con las credenciales dadas.
// Si BaseURL está vacío usa el endpoint de producción.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RecvWindowMs <= 0 {
		opts.RecvWindowMs = 5000
	}
	return &Client{
		http:       &http.Client{Timeout: 10 * time.Second},
		baseURL:    opts.BaseURL,
		key:        opts.Key,
		secret:     opts.Secret,
		recvWindow: strconv.Itoa(opts.RecvWindowMs),
		limiter:    rate.NewLimiter(requestsPerSec, 2),
	}
}

// post hace un POST JSON firmado con rate limiting y retries.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("bybit.post: marshal body: %w", err)
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.do(ctx, endpoint, payload)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(raw))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// do construye y ejecuta un request firmado con los headers X-BAPI-*.
func (c *Client) do(ctx context.Context, endpoint string, payload []byte) (*http.Response, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-BAPI-API-KEY", c.key)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", c.recvWindow)
	req.Header.Set("X-BAPI-SIGN", c.sign(string(payload), ts))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

// sign calcula la firma HMAC SHA-256 sobre ts + apiKey + recvWindow + body.
func (c *Client) sign(body, ts string) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(ts + c.key + c.recvWindow + body))
	return hex.EncodeToString(mac.Sum(nil))
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
