// Package webhook is the request gateway: it terminates Telegram webhook
// calls, validates the secret path, and turns format-selection taps into
// queued media jobs. Processing never happens here; the handler's only
// write is the queue insert.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"yoink/internal/logging"
	"yoink/internal/queue"
	"yoink/internal/telegram"
)

const (
	usageText = "Send me a YouTube link and I'll convert it for you.\n\n" +
		"Pick audio to get an mp3, or video to get an mp4 (up to 720p).\n" +
		"Files over the upload limit are delivered as a download link when storage is configured."
	nudgeText      = "Send a valid YouTube link and I'll take it from there."
	processingText = "Processing your request..."
	forgottenText  = "I've forgotten that link, please send it again."
	duplicateText  = "Already working on that one."
)

// Callback data prefixes for the format keyboard.
const (
	callbackAudioPrefix = "a:"
	callbackVideoPrefix = "v:"
)

var youtubeURLPattern = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?(?:youtube\.com/(?:watch\?[^\s]*v=|shorts/|embed/|live/)|youtu\.be/)([A-Za-z0-9_-]{6,11})`)

// ExtractVideoID pulls the video identifier out of the first YouTube URL in
// text, if any.
func ExtractVideoID(text string) (string, bool) {
	match := youtubeURLPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// WatchURL returns the canonical source URL for a video identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Messenger is the slice of the Bot API the gateway replies through.
type Messenger interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// JobQueue is the slice of the store the gateway enqueues through.
type JobQueue interface {
	NewJob(ctx context.Context, chatID, replyTo int64, videoID, sourceURL string, op queue.Operation) (*queue.Job, error)
	FindActive(ctx context.Context, chatID int64, videoID string, op queue.Operation) (*queue.Job, error)
	Update(ctx context.Context, job *queue.Job) error
}

// Handler serves POST /webhook/{token}.
type Handler struct {
	token     string
	messenger Messenger
	jobs      JobQueue
	logger    *slog.Logger
}

// NewHandler constructs the gateway handler.
func NewHandler(token string, messenger Messenger, jobs JobQueue, logger *slog.Logger) *Handler {
	return &Handler{
		token:     strings.TrimSpace(token),
		messenger: messenger,
		jobs:      jobs,
		logger:    logging.WithComponent(logger, "webhook"),
	}
}

// ServeHTTP handles one webhook delivery. Telegram retries any non-2xx
// response, so well-formed updates the bot chooses to ignore still return
// 200; only a bad token (404) or malformed body (400) is rejected.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pathToken := strings.TrimPrefix(r.URL.Path, "/webhook/")
	if subtle.ConstantTimeCompare([]byte(pathToken), []byte(h.token)) != 1 {
		http.NotFound(w, r)
		return
	}

	var update telegram.Update
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&update); err != nil {
		h.logger.Warn("malformed webhook payload", logging.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/start") || strings.HasPrefix(text, "/help") {
		h.reply(ctx, msg.Chat.ID, msg.MessageID, usageText, nil)
		return
	}

	videoID, ok := ExtractVideoID(text)
	if !ok {
		h.reply(ctx, msg.Chat.ID, msg.MessageID, nudgeText, nil)
		return
	}

	keyboard := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "Audio (mp3)", CallbackData: callbackAudioPrefix + videoID},
			{Text: "Video (mp4)", CallbackData: callbackVideoPrefix + videoID},
		}},
	}
	h.reply(ctx, msg.Chat.ID, msg.MessageID, "What would you like?", keyboard)
	h.logger.Info("format keyboard sent",
		logging.Int64(logging.FieldChatID, msg.Chat.ID),
		logging.String(logging.FieldVideoID, videoID),
	)
}

func (h *Handler) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	op, videoID, ok := parseCallbackData(cb.Data)
	if !ok {
		_ = h.messenger.AnswerCallbackQuery(ctx, cb.ID, forgottenText)
		return
	}
	if cb.Message == nil {
		_ = h.messenger.AnswerCallbackQuery(ctx, cb.ID, forgottenText)
		return
	}
	chatID := cb.Message.Chat.ID

	if existing, err := h.jobs.FindActive(ctx, chatID, videoID, op); err == nil && existing != nil {
		_ = h.messenger.AnswerCallbackQuery(ctx, cb.ID, duplicateText)
		return
	}

	job, err := h.jobs.NewJob(ctx, chatID, cb.Message.MessageID, videoID, WatchURL(videoID), op)
	if err != nil {
		h.logger.Error("enqueue failed",
			logging.Int64(logging.FieldChatID, chatID),
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err),
		)
		_ = h.messenger.AnswerCallbackQuery(ctx, cb.ID, "Something went wrong, try again.")
		return
	}

	_ = h.messenger.AnswerCallbackQuery(ctx, cb.ID, "Queued")

	// Reuse the keyboard prompt as the job's status message.
	if err := h.messenger.EditMessageText(ctx, chatID, cb.Message.MessageID, processingText); err == nil {
		job.StatusMessageID = cb.Message.MessageID
		if err := h.jobs.Update(ctx, job); err != nil {
			h.logger.Warn("persist status message id failed",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
		}
	}

	h.logger.Info("job enqueued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int64(logging.FieldChatID, chatID),
		logging.String(logging.FieldVideoID, videoID),
		logging.String(logging.FieldOperation, string(op)),
	)
}

func (h *Handler) reply(ctx context.Context, chatID, replyTo int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	_, err := h.messenger.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: replyTo,
		ReplyMarkup:      keyboard,
		DisablePreview:   true,
	})
	if err != nil {
		h.logger.Warn("reply failed",
			logging.Int64(logging.FieldChatID, chatID),
			logging.Error(err),
		)
	}
}

func parseCallbackData(data string) (queue.Operation, string, bool) {
	switch {
	case strings.HasPrefix(data, callbackAudioPrefix):
		id := strings.TrimPrefix(data, callbackAudioPrefix)
		if id == "" {
			return "", "", false
		}
		return queue.OperationExtractAudio, id, true
	case strings.HasPrefix(data, callbackVideoPrefix):
		id := strings.TrimPrefix(data, callbackVideoPrefix)
		if id == "" {
			return "", "", false
		}
		return queue.OperationTranscode, id, true
	default:
		return "", "", false
	}
}
