package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	telebot "gopkg.in/telebot.v3"

	errors "github.com/Proton-105/pollbot/internal/errors"
	"github.com/Proton-105/pollbot/pkg/metrics"
)

const (
	DefaultBaseURL        = "https://api.telegram.org"
	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 10 << 20
)

// Config configures a Client.
type Config struct {
	Token          string
	BaseURL        string
	RequestTimeout time.Duration
	// SendRate caps outbound send/edit calls per second; zero disables pacing.
	SendRate float64
}

// Client performs Bot API calls over HTTPS.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// New builds a Client for the provided credential.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, stdErrors.New("telegram: token is required")
	}
	if log == nil {
		log = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	var limiter *rate.Limiter
	if cfg.SendRate > 0 {
		burst := int(cfg.SendRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), burst)
	}

	return &Client{
		token:   cfg.Token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     log,
	}, nil
}

// SendMessage sends a text message, optionally with an inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) (*Result, error) {
	params := url.Values{}
	params.Set("chat_id", formatChatID(chatID))
	params.Set("text", text)
	if err := setMarkup(params, markup); err != nil {
		return nil, errors.NewDecodeError(MethodSendMessage, err)
	}

	return c.send(ctx, MethodSendMessage, params)
}

// EditMessageText replaces the text (and optionally the keyboard) of a sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *telebot.ReplyMarkup) (*Result, error) {
	params := url.Values{}
	params.Set("chat_id", formatChatID(chatID))
	params.Set("message_id", strconv.Itoa(messageID))
	params.Set("text", text)
	if err := setMarkup(params, markup); err != nil {
		return nil, errors.NewDecodeError(MethodEditMessageText, err)
	}

	return c.send(ctx, MethodEditMessageText, params)
}

// SendDocument uploads a document.
func (c *Client) SendDocument(ctx context.Context, chatID int64, document InputFile) (*Result, error) {
	fields := url.Values{}
	fields.Set("chat_id", formatChatID(chatID))

	return c.upload(ctx, MethodSendDocument, fields, "document", document)
}

// SendPhoto uploads a photo with an optional caption and inline keyboard.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo InputFile, caption string, markup *telebot.ReplyMarkup) (*Result, error) {
	fields := url.Values{}
	fields.Set("chat_id", formatChatID(chatID))
	if caption != "" {
		fields.Set("caption", caption)
	}
	if err := setMarkup(fields, markup); err != nil {
		return nil, errors.NewDecodeError(MethodSendPhoto, err)
	}

	return c.upload(ctx, MethodSendPhoto, fields, "photo", photo)
}

// SendChatAction broadcasts a chat action such as telebot.Typing.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action telebot.ChatAction) (*Result, error) {
	params := url.Values{}
	params.Set("chat_id", formatChatID(chatID))
	params.Set("action", string(action))

	return c.send(ctx, MethodSendChatAction, params)
}

// GetUpdates long-polls for updates with id >= offset. An empty slice means the poll timed out without data.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telebot.Update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	if offset != 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	res, err := c.call(ctx, MethodGetUpdates, http.MethodGet, params, nil, "")
	if err != nil {
		return nil, err
	}

	var updates []telebot.Update
	if len(res.Result) > 0 {
		if err := json.Unmarshal(res.Result, &updates); err != nil {
			return nil, errors.NewDecodeError(MethodGetUpdates, err)
		}
	}

	return updates, nil
}

// GetMe returns the bot's own account; it doubles as a connectivity check.
func (c *Client) GetMe(ctx context.Context) (*telebot.User, error) {
	res, err := c.call(ctx, MethodGetMe, http.MethodGet, nil, nil, "")
	if err != nil {
		return nil, err
	}

	var me telebot.User
	if err := json.Unmarshal(res.Result, &me); err != nil {
		return nil, errors.NewDecodeError(MethodGetMe, err)
	}

	return &me, nil
}

// HealthCheck verifies that the Bot API accepts the credential.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.GetMe(ctx)
	return err
}

func (c *Client) send(ctx context.Context, method string, params url.Values) (*Result, error) {
	if err := c.wait(ctx, method); err != nil {
		return nil, err
	}

	return c.call(ctx, method, http.MethodGet, params, nil, "")
}

func (c *Client) upload(ctx context.Context, method string, fields url.Values, field string, file InputFile) (*Result, error) {
	if file.Reader == nil {
		return nil, errors.NewNetworkError(method, fmt.Errorf("%s: no file content", field))
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, value := range values {
			if err := w.WriteField(key, value); err != nil {
				return nil, errors.NewNetworkError(method, err)
			}
		}
	}

	name := file.Name
	if name == "" {
		name = field
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return nil, errors.NewNetworkError(method, err)
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return nil, errors.NewNetworkError(method, fmt.Errorf("read %s: %w", field, err))
	}
	if err := w.Close(); err != nil {
		return nil, errors.NewNetworkError(method, err)
	}

	if err := c.wait(ctx, method); err != nil {
		return nil, err
	}

	return c.call(ctx, method, http.MethodPost, nil, &body, w.FormDataContentType())
}

func (c *Client) wait(ctx context.Context, method string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewNetworkError(method, err)
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, httpMethod string, params url.Values, body io.Reader, contentType string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		var transportErr *errors.TransportError
		if stdErrors.As(err, &transportErr) {
			status = string(transportErr.Kind)
		}
		metrics.RecordRequest(method, status, time.Since(start))
	}()

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return nil, errors.NewNetworkError(method, stripURL(err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(method, stripURL(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.NewNetworkError(method, err)
	}

	var decoded Result
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, errors.NewRemoteError(method, resp.StatusCode, http.StatusText(resp.StatusCode), 0)
		}
		return nil, errors.NewDecodeError(method, err)
	}

	if !decoded.OK || resp.StatusCode != http.StatusOK {
		code := decoded.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		var retryAfter time.Duration
		if decoded.Parameters != nil && decoded.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(decoded.Parameters.RetryAfter) * time.Second
		}
		return nil, errors.NewRemoteError(method, code, decoded.Description, retryAfter)
	}

	c.log.Debug("telegram call succeeded", slog.String("method", method), slog.Duration("duration", time.Since(start)))
	return &decoded, nil
}

func setMarkup(params url.Values, markup *telebot.ReplyMarkup) error {
	if markup == nil {
		return nil
	}

	data, err := json.Marshal(markup)
	if err != nil {
		return fmt.Errorf("encode reply_markup: %w", err)
	}
	params.Set("reply_markup", string(data))
	return nil
}

func formatChatID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// stripURL drops the request URL, which embeds the token, from transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if stdErrors.As(err, &urlErr) {
		return urlErr.Err
	}

	return err
}
