// Package analyst produces AI narrative commentary over market snapshots through an
// OpenAI-compatible chat completion API.
package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/gridpulse/internal/logger"
	"github.com/rewired-gh/gridpulse/internal/models"
)

var (
	ErrNoAPIKey            = errors.New("analyst API key is not set")
	ErrForecastUnavailable = errors.New("failed to generate long-term forecast")
	errEmptyResponse       = errors.New("empty completion response")
)

// User-visible fallbacks for failed requests.
const (
	InsufficientData  = "Insufficient data for analysis."
	NoMarketData      = "Market data is not available."
	AnalysisFallback  = "Unable to fetch AI-powered market analysis at this time. Please check the analyst configuration."
	ChatFallback      = "There was an error communicating with the AI analyst. Please try again."
	systemInstruction = "You are Pulse, an energy market analyst. Answer only from the market data supplied " +
		"with each question. Be concise and data-driven. If the data does not answer the question, say " +
		"\"I cannot answer that based on the current data.\""
)

// Completer is the subset of the OpenAI client the analyst uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// Analyst is an explicitly owned handle on the AI service. The client is created
// on first use; the chat conversation is created on first question and discarded
// after any failed turn.
type Analyst struct {
	cfg       Config
	newClient func() (Completer, error)
	limiter   *rate.Limiter
	log       zerolog.Logger

	mu     sync.Mutex
	client Completer

	chatMu sync.Mutex
	chat   []openai.ChatCompletionMessage
}

// New creates an analyst backed by the OpenAI client.
func New(cfg Config) *Analyst {
	return newAnalyst(cfg, func() (Completer, error) {
		if cfg.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		return openai.NewClientWithConfig(clientCfg), nil
	})
}

// NewWithCompleter creates an analyst over an existing completer.
func NewWithCompleter(cfg Config, c Completer) *Analyst {
	return newAnalyst(cfg, func() (Completer, error) { return c, nil })
}

func newAnalyst(cfg Config, newClient func() (Completer, error)) *Analyst {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Analyst{
		cfg:       cfg,
		newClient: newClient,
		limiter:   rate.NewLimiter(limit, 1),
		log:       logger.With("analyst"),
	}
}

func (a *Analyst) getClient() (Completer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		c, err := a.newClient()
		if err != nil {
			return nil, err
		}
		a.client = c
	}
	return a.client, nil
}

// complete sends one request, retrying transient failures up to retries times.
func (a *Analyst) complete(ctx context.Context, req openai.ChatCompletionRequest, retries int) (string, error) {
	client, err := a.getClient()
	if err != nil {
		return "", err
	}
	req.Model = a.cfg.Model

	var content string
	operation := func() error {
		if err := a.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		reqCtx := ctx
		if a.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
			defer cancel()
		}
		resp, err := client.CreateChatCompletion(reqCtx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return errEmptyResponse
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(max(retries, 0))),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return content, nil
}

// MarketAnalysis returns a short narrative summary of snap, or a fixed fallback
// message if the service cannot be reached.
func (a *Analyst) MarketAnalysis(ctx context.Context, snap models.Snapshot) string {
	if len(snap.Ticker) == 0 {
		return InsufficientData
	}

	req := openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(snap)},
		},
	}
	text, err := a.complete(ctx, req, a.cfg.MaxRetries)
	if err != nil {
		a.log.Error().Err(err).Msg("market analysis request failed")
		return AnalysisFallback
	}
	return strings.TrimSpace(text)
}

// Chat answers a question about snap within the ongoing conversation.
// A failed turn resets the conversation.
func (a *Analyst) Chat(ctx context.Context, question string, snap *models.Snapshot) string {
	if snap == nil {
		return NoMarketData
	}

	a.chatMu.Lock()
	defer a.chatMu.Unlock()

	if a.chat == nil {
		a.chat = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
		}
	}

	turn := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: chatPrompt(question, *snap)}
	messages := append(append([]openai.ChatCompletionMessage{}, a.chat...), turn)

	text, err := a.complete(ctx, openai.ChatCompletionRequest{Messages: messages}, 0)
	if err != nil {
		a.log.Error().Err(err).Msg("chat request failed, resetting conversation")
		a.chat = nil
		return ChatFallback
	}

	a.chat = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text})
	return strings.TrimSpace(text)
}

// ChatTurns returns the number of completed question/answer turns in the conversation.
func (a *Analyst) ChatTurns() int {
	a.chatMu.Lock()
	defer a.chatMu.Unlock()

	if len(a.chat) == 0 {
		return 0
	}
	return (len(a.chat) - 1) / 2
}

// Forecast requests a five-year price outlook. Any failure, including a response
// missing required fields, is reported as ErrForecastUnavailable.
func (a *Analyst) Forecast(ctx context.Context) (models.Forecast, error) {
	req := openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: forecastPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	text, err := a.complete(ctx, req, a.cfg.MaxRetries)
	if err != nil {
		a.log.Error().Err(err).Msg("forecast request failed")
		return models.Forecast{}, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}

	forecast, err := parseForecast(text)
	if err != nil {
		a.log.Error().Err(err).Msg("forecast response malformed")
		return models.Forecast{}, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}
	return forecast, nil
}

func parseForecast(text string) (models.Forecast, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var f models.Forecast
	if err := json.Unmarshal([]byte(text), &f); err != nil {
		return models.Forecast{}, fmt.Errorf("failed to decode forecast: %w", err)
	}
	if err := f.Validate(); err != nil {
		return models.Forecast{}, err
	}
	return f, nil
}
