package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "tgrelay/internal/errors"
	"tgrelay/pkg/telegram/types"
)

// BotClient talks to the Telegram Bot API over HTTPS. All failures are
// returned as classified errors so callers can distinguish transient
// conditions (network, 5xx, rate limits) from permanent ones.
type BotClient struct {
	baseURL        string
	token          string
	client         *http.Client
	pollTimeoutSec int
	updatesLimit   int
}

func NewClient(config types.ClientConfig) types.Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &BotClient{
		baseURL:        config.BaseURL,
		token:          config.Token,
		client:         &http.Client{Timeout: timeout},
		pollTimeoutSec: config.PollTimeoutSec,
		updatesLimit:   config.UpdatesLimit,
	}
}

func (c *BotClient) GetMe(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.call(ctx, "getMe", struct{}{}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *BotClient) GetUpdates(ctx context.Context, offset int64) ([]types.Update, error) {
	req := types.GetUpdatesRequest{
		Offset:         offset,
		Limit:          c.updatesLimit,
		Timeout:        c.pollTimeoutSec,
		AllowedUpdates: []string{"message", "channel_post"},
	}

	var updates []types.Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string) (*types.Message, error) {
	req := types.SendMessageRequest{ChatID: chatID, Text: text}

	var msg types.Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *BotClient) CopyMessage(ctx context.Context, chatID, fromChatID int64, messageID int) (*types.MessageID, error) {
	req := types.CopyMessageRequest{
		ChatID:     chatID,
		FromChatID: fromChatID,
		MessageID:  messageID,
	}

	var id types.MessageID
	if err := c.call(ctx, "copyMessage", req, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *BotClient) SendMediaGroup(ctx context.Context, chatID int64, media []types.InputMedia) ([]types.Message, error) {
	req := types.SendMediaGroupRequest{ChatID: chatID, Media: media}

	var messages []types.Message
	if err := c.call(ctx, "sendMediaGroup", req, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// call performs one Bot API method invocation and decodes the result into
// out. A nil out discards the result.
func (c *BotClient) call(ctx context.Context, method string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failures are always worth retrying
		return apperrors.WrapRetryable(err, apperrors.ErrCodeTelegramAPI,
			fmt.Sprintf("telegram %s request failed", method))
	}
	defer resp.Body.Close()

	var apiResp types.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeTelegramAPI,
			fmt.Sprintf("telegram %s returned malformed response", method))
	}

	if !apiResp.OK {
		return c.classifyAPIError(method, resp.StatusCode, &apiResp)
	}

	if out != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}

	return nil
}

func (c *BotClient) classifyAPIError(method string, httpStatus int, resp *types.APIResponse) error {
	statusCode := resp.ErrorCode
	if statusCode == 0 {
		statusCode = httpStatus
	}

	if statusCode == http.StatusTooManyRequests && resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
		return apperrors.NewRateLimitError(method,
			time.Duration(resp.Parameters.RetryAfter)*time.Second)
	}

	return apperrors.NewTelegramAPIError(method, statusCode, resp.Description, nil)
}
