package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// defaultModel is the last-resort model identifier used when the
// advertised list is empty and nothing else matched.
const defaultModel = "llama3"

// modelVariants maps a preferred model name to the fixed list of name
// variants tried against the advertised list when the exact name is
// absent. Entries are tried in order, matching by equality or prefix.
var modelVariants = map[string][]string{
	"llama3":  {"llama3:8b", "llama3:latest", "llama3.1", "llama-3"},
	"mistral": {"mistral:7b", "mistral:latest", "mistral-small"},
	"gemma":   {"gemma:7b", "gemma2", "gemma:latest"},
}

type modelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// RefreshModels fetches the server-advertised model list. The list is
// only refreshed on demand, never automatically.
func (c *Client) RefreshModels(ctx context.Context) error {
	url := c.cfg.BaseURL + c.cfg.ModelsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating models request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("fetching models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	var mr modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return fmt.Errorf("decoding models response: %w", err)
	}

	names := make([]string, 0, len(mr.Models))
	for _, m := range mr.Models {
		names = append(names, m.Name)
	}

	c.mu.Lock()
	c.models = names
	c.mu.Unlock()

	c.logger.Info("refreshed advertised models", zap.Int("count", len(names)))
	return nil
}

// Models returns a copy of the advertised model list.
func (c *Client) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.models))
	copy(out, c.models)
	return out
}

// modelStrategy is one step of the model-selection fallback chain.
type modelStrategy struct {
	name string
	pick func(preferred string, advertised []string) (string, bool)
}

// The chain is evaluated in this exact order for every request.
var modelStrategies = []modelStrategy{
	{"exact", pickExact},
	{"variant", pickVariant},
	{"first", pickFirst},
	{"default", pickDefault},
}

func pickExact(preferred string, advertised []string) (string, bool) {
	for _, m := range advertised {
		if m == preferred {
			return m, true
		}
	}
	return "", false
}

func pickVariant(preferred string, advertised []string) (string, bool) {
	variants := append([]string{preferred}, modelVariants[preferred]...)
	for _, v := range variants {
		for _, m := range advertised {
			if m == v || strings.HasPrefix(m, v) {
				return m, true
			}
		}
	}
	return "", false
}

func pickFirst(_ string, advertised []string) (string, bool) {
	if len(advertised) > 0 {
		return advertised[0], true
	}
	return "", false
}

func pickDefault(string, []string) (string, bool) {
	return defaultModel, true
}

// SelectModel resolves the model identifier to request, walking the
// fallback chain against the last advertised list. It returns the
// chosen model and the name of the strategy that resolved it.
func (c *Client) SelectModel(preferred string) (string, string) {
	advertised := c.Models()
	for _, s := range modelStrategies {
		if m, ok := s.pick(preferred, advertised); ok {
			return m, s.name
		}
	}
	// Unreachable, the default strategy always resolves.
	return defaultModel, "default"
}
