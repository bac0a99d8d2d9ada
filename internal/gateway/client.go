// Package gateway implements the client for the remote completion
// gateway, including incremental stream consumption.
package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/metrics"
)

// The gateway sits behind a tunneling proxy that interposes a browser
// warning page unless this header is present.
const (
	bypassHeaderName  = "Ngrok-Skip-Browser-Warning"
	bypassHeaderValue = "true"
)

// ErrNoChoices is returned when the gateway answers with an empty
// choice list.
var ErrNoChoices = errors.New("gateway returned no completion choices")

// FragmentCallback is called for each text fragment during streaming,
// strictly in arrival order, before the next fragment is read.
type FragmentCallback func(fragment string, index int) error

// Config holds gateway connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	ChatPath   string
	ModelsPath string
	Timeout    time.Duration
	KeepAlive  int
}

// Client talks to the completion gateway.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *logger.Logger

	mu     sync.RWMutex
	models []string
}

// NewClient creates a gateway client.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base URL is required")
	}
	if cfg.ChatPath == "" {
		cfg.ChatPath = "/v1/chat/completions"
	}
	if cfg.ModelsPath == "" {
		cfg.ModelsPath = "/api/tags"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		hc:     &http.Client{},
		logger: log,
	}, nil
}

type completionRequest struct {
	Model     string            `json:"model"`
	Messages  []model.ChatEntry `json:"messages"`
	Stream    bool              `json:"stream"`
	KeepAlive int               `json:"keep_alive"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Done bool `json:"done"`
}

type streamRecord struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a non-streaming completion request and returns the
// first choice's message content.
func (c *Client) Complete(ctx context.Context, personaModel string, msgs []model.ChatEntry) (string, error) {
	modelName, strategy := c.SelectModel(personaModel)
	metrics.ModelFallbacksTotal.WithLabelValues(strategy).Inc()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.sendChatRequest(ctx, completionRequest{
		Model:     modelName,
		Messages:  msgs,
		Stream:    false,
		KeepAlive: c.cfg.KeepAlive,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", ErrNoChoices
	}
	return cr.Choices[0].Message.Content, nil
}

// CompleteStream sends a streaming completion request and consumes the
// response incrementally. Each parsed fragment is appended to the
// returned text and handed to callback before the next one is read.
// On error the accumulated text so far is returned alongside the error.
func (c *Client) CompleteStream(ctx context.Context, personaModel string, msgs []model.ChatEntry, callback FragmentCallback) (string, error) {
	modelName, strategy := c.SelectModel(personaModel)
	metrics.ModelFallbacksTotal.WithLabelValues(strategy).Inc()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.sendChatRequest(ctx, completionRequest{
		Model:     modelName,
		Messages:  msgs,
		Stream:    true,
		KeepAlive: c.cfg.KeepAlive,
	})
	if err != nil {
		metrics.RecordStream(modelName, "error", time.Since(start).Seconds())
		return "", err
	}
	defer resp.Body.Close()

	var sb strings.Builder
	index := 0
	reader := bufio.NewReader(resp.Body)

	for {
		line, readErr := reader.ReadString('\n')

		if line != "" {
			fragment, ok := c.parseStreamLine(line)
			if ok && fragment != "" {
				sb.WriteString(fragment)
				metrics.FragmentsTotal.WithLabelValues(modelName).Inc()
				if err := callback(fragment, index); err != nil {
					metrics.RecordStream(modelName, "aborted", time.Since(start).Seconds())
					return sb.String(), fmt.Errorf("fragment callback: %w", err)
				}
				index++
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			metrics.RecordStream(modelName, "error", time.Since(start).Seconds())
			return sb.String(), fmt.Errorf("reading stream: %w", readErr)
		}
	}

	metrics.RecordStream(modelName, "success", time.Since(start).Seconds())
	return sb.String(), nil
}

// parseStreamLine extracts the text fragment from one newline-delimited
// stream record. Blank lines, [DONE] markers and unparseable records
// yield ok=false.
func (c *Client) parseStreamLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if after, found := strings.CutPrefix(line, "data:"); found {
		line = strings.TrimSpace(after)
	}
	if line == "" || line == "[DONE]" {
		return "", false
	}

	var rec streamRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		metrics.MalformedRecordsTotal.Inc()
		c.logger.Debug("skipping malformed stream record",
			zap.String("line", line),
			zap.Error(err),
		)
		return "", false
	}
	if len(rec.Choices) == 0 {
		return "", false
	}

	fragment := rec.Choices[0].Delta.Content
	if fragment == "" {
		fragment = rec.Choices[0].Message.Content
	}
	return fragment, true
}

func (c *Client) sendChatRequest(ctx context.Context, body completionRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling completion request: %w", err)
	}

	url := c.cfg.BaseURL + c.cfg.ChatPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing HTTP request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code %d from %s: %s", resp.StatusCode, url, respBody)
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set(bypassHeaderName, bypassHeaderValue)
}
