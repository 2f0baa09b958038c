package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "splitchain/pkg/errors"
)

// settlementSlippage is the tolerated price movement on a settlement leg.
const settlementSlippage = 0.03

// Config holds the routing API settings.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client talks to the cross-chain routing API that finds and prices
// settlement routes between networks. Route execution happens in the
// participant's wallet; this client only quotes.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RouteRequest describes the settlement leg to route.
type RouteRequest struct {
	FromChain   int64  `json:"fromChainId"`
	ToChain     int64  `json:"toChainId"`
	FromToken   string `json:"fromTokenAddress"`
	ToToken     string `json:"toTokenAddress"`
	FromAmount  string `json:"fromAmount"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
}

// RouteQuote is one candidate route for a settlement leg.
type RouteQuote struct {
	ID            string            `json:"id"`
	FromChain     int64             `json:"fromChain"`
	ToChain       int64             `json:"toChain"`
	FromAmount    string            `json:"fromAmount"`
	ToAmount      string            `json:"toAmount"`
	EstimatedGas  string            `json:"estimatedGas"`
	EstimatedTime int64             `json:"estimatedTime"` // seconds
	Steps         []json.RawMessage `json:"steps"`
}

type routesRequestBody struct {
	RouteRequest
	Options routeOptions `json:"options"`
}

type routeOptions struct {
	Slippage float64 `json:"slippage"`
	Order    string  `json:"order"`
}

type gasCost struct {
	Amount string `json:"amount"`
}

type apiStep struct {
	Estimate struct {
		ExecutionDuration int64 `json:"executionDuration"`
	} `json:"estimate"`
}

// GetRoutes returns candidate routes ordered fastest-first.
func (c *Client) GetRoutes(ctx context.Context, request RouteRequest) ([]RouteQuote, error) {
	body, err := json.Marshal(routesRequestBody{
		RouteRequest: request,
		Options:      routeOptions{Slippage: settlementSlippage, Order: "FASTEST"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/advanced/routes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-lifi-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Unavailable("Routing service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Unavailable(fmt.Sprintf("Routing service returned %d", resp.StatusCode), nil)
	}

	var parsed struct {
		Routes []struct {
			ID          string            `json:"id"`
			FromChainID int64             `json:"fromChainId"`
			ToChainID   int64             `json:"toChainId"`
			FromAmount  string            `json:"fromAmount"`
			ToAmount    string            `json:"toAmount"`
			GasCosts    []gasCost         `json:"gasCosts"`
			Steps       []json.RawMessage `json:"steps"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	quotes := make([]RouteQuote, 0, len(parsed.Routes))
	for _, route := range parsed.Routes {
		quote := RouteQuote{
			ID:           route.ID,
			FromChain:    route.FromChainID,
			ToChain:      route.ToChainID,
			FromAmount:   route.FromAmount,
			ToAmount:     route.ToAmount,
			EstimatedGas: "0",
			Steps:        route.Steps,
		}
		if len(route.GasCosts) > 0 {
			quote.EstimatedGas = route.GasCosts[0].Amount
		}
		for _, step := range route.Steps {
			var s apiStep
			if err := json.Unmarshal(step, &s); err == nil {
				quote.EstimatedTime += s.Estimate.ExecutionDuration
			}
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}
