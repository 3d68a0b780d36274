// Package telegram is a minimal Bot API client covering the calls the
// gateway and delivery path need: chat messages, inline keyboards, media
// uploads, and webhook management.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// HTTPDoer abstracts the HTTP client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithBaseURL points the client at a non-default API host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// Client calls the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    HTTPDoer
}

// New constructs a Bot API client.
func New(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram token required")
	}
	client := &Client{
		token:   token,
		baseURL: "https://api.telegram.org",
		// Media uploads of tens of megabytes need a generous timeout.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, method, out)
}

func (c *Client) send(req *http.Request, method string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("%s: api error %d: %s", method, api.ErrorCode, api.Description)
	}
	if out != nil && len(api.Result) > 0 {
		if err := json.Unmarshal(api.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe verifies the token and returns the bot account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, "getMe", struct{}{}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendMessageParams carries optional sendMessage fields.
type SendMessageParams struct {
	ChatID           int64                 `json:"chat_id"`
	Text             string                `json:"text"`
	ReplyToMessageID int64                 `json:"reply_to_message_id,omitempty"`
	ReplyMarkup      *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	DisablePreview   bool                  `json:"disable_web_page_preview,omitempty"`
}

// SendMessage posts a text message and returns it.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", payload, nil)
}

// AnswerCallbackQuery acknowledges an inline keyboard tap. Text is optional
// toast content.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// AudioUpload describes a sendAudio upload.
type AudioUpload struct {
	ChatID       int64
	FilePath     string
	Title        string
	DurationSecs int64
}

// SendAudio uploads an audio file to a chat.
func (c *Client) SendAudio(ctx context.Context, upload AudioUpload) (*Message, error) {
	fields := map[string]string{
		"chat_id": strconv.FormatInt(upload.ChatID, 10),
	}
	if upload.Title != "" {
		fields["title"] = upload.Title
	}
	if upload.DurationSecs > 0 {
		fields["duration"] = strconv.FormatInt(upload.DurationSecs, 10)
	}
	return c.sendFile(ctx, "sendAudio", "audio", upload.FilePath, fields)
}

// VideoUpload describes a sendVideo upload.
type VideoUpload struct {
	ChatID       int64
	FilePath     string
	Caption      string
	DurationSecs int64
	Width        int64
	Height       int64
}

// SendVideo uploads a video file to a chat.
func (c *Client) SendVideo(ctx context.Context, upload VideoUpload) (*Message, error) {
	fields := map[string]string{
		"chat_id":            strconv.FormatInt(upload.ChatID, 10),
		"supports_streaming": "true",
	}
	if upload.Caption != "" {
		fields["caption"] = upload.Caption
	}
	if upload.DurationSecs > 0 {
		fields["duration"] = strconv.FormatInt(upload.DurationSecs, 10)
	}
	if upload.Width > 0 {
		fields["width"] = strconv.FormatInt(upload.Width, 10)
	}
	if upload.Height > 0 {
		fields["height"] = strconv.FormatInt(upload.Height, 10)
	}
	return c.sendFile(ctx, "sendVideo", "video", upload.FilePath, fields)
}

func (c *Client) sendFile(ctx context.Context, method, fileField, filePath string, fields map[string]string) (*Message, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%s: open file: %w", method, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("%s: write field %s: %w", method, key, err)
		}
	}
	part, err := writer.CreateFormFile(fileField, filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("%s: create form file: %w", method, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("%s: copy file: %w", method, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: finalize form: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), &body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var msg Message
	if err := c.send(req, method, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetWebhook registers the webhook URL with the Bot API.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("webhook url required")
	}
	payload := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "callback_query"},
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

// DeleteWebhook unregisters the webhook.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", struct{}{}, nil)
}

// GetWebhookInfo returns the currently registered webhook state.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", struct{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
