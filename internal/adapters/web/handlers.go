package web

import (
	"context"
	"errors"
	"time"

	"feedthread/internal/domain"
	"feedthread/internal/usecases"
	"feedthread/pkg/log"

	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout bounds one API collection.
const DefaultTimeout = 30 * time.Second

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	collectTweet  *usecases.CollectTweetUseCase
	collectThread *usecases.CollectThreadUseCase
	getTweet      *usecases.GetTweetUseCase
	timeout       time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(collectTweet *usecases.CollectTweetUseCase, collectThread *usecases.CollectThreadUseCase, getTweet *usecases.GetTweetUseCase) *Handlers {
	return &Handlers{
		collectTweet:  collectTweet,
		collectThread: collectThread,
		getTweet:      getTweet,
		timeout:       DefaultTimeout,
	}
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Health reports liveness.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Extract collects one post from a posted page snapshot.
func (h *Handlers) Extract(c *fiber.Ctx) error {
	req, err := parseCollectRequest(c)
	if err != nil {
		return h.renderError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	tweet, err := h.collectTweet.Execute(ctx, req)
	if err != nil {
		log.GlobalWarnCtx(ctx, "extract failed", "url", req.URL, "error", err)
		return h.renderError(c, err)
	}
	return c.JSON(tweet)
}

// Thread assembles the thread around the requested post of a posted
// page snapshot.
func (h *Handlers) Thread(c *fiber.Ctx) error {
	req, err := parseCollectRequest(c)
	if err != nil {
		return h.renderError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	thread, err := h.collectThread.Execute(ctx, req)
	if err != nil {
		log.GlobalWarnCtx(ctx, "thread failed", "url", req.URL, "error", err)
		return h.renderError(c, err)
	}
	return c.JSON(thread)
}

// GetTweet returns a collected tweet by username and ID (mirrors the X
// URL structure).
func (h *Handlers) GetTweet(c *fiber.Ctx) error {
	username, tweetID, err := ParseTweetURL("https://x.com/" + c.Params("username") + "/status/" + c.Params("id"))
	if err != nil {
		return h.renderError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	tweet, err := h.getTweet.Execute(ctx, tweetID, username)
	if err != nil {
		log.GlobalErrorCtx(ctx, "get tweet failed", "username", username, "tweet_id", tweetID, "error", err)
		return h.renderError(c, err)
	}
	return c.JSON(tweet)
}

func parseCollectRequest(c *fiber.Ctx) (usecases.CollectRequest, error) {
	var req usecases.CollectRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "request body must be JSON with an html field")
	}
	if req.HTML == "" {
		return req, domain.ErrEmptyDocument
	}
	if req.URL != "" && req.StatusID == "" {
		if _, id, err := ParseTweetURL(req.URL); err == nil {
			req.StatusID = id
		}
	}
	return req, nil
}

// renderError writes err as a JSON error with its mapped status code.
func (h *Handlers) renderError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	return c.Status(status).JSON(errorResponse{
		Error:   err.Error(),
		Message: h.friendlyError(err),
	})
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrEmptyDocument), errors.Is(err, domain.ErrInvalidURL):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrDocumentTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrTweetNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNoPosts),
		errors.Is(err, domain.ErrNoConversation),
		errors.Is(err, domain.ErrNoAuthor),
		errors.Is(err, domain.ErrDetachedElement):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// friendlyError returns a neutral, non-blaming error message.
func (h *Handlers) friendlyError(err error) string {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, domain.ErrTweetNotFound):
		return "This tweet hasn't been collected yet."
	case errors.Is(err, domain.ErrInvalidURL):
		return "That doesn't look like a tweet URL. Try a link from twitter.com or x.com"
	case errors.Is(err, domain.ErrEmptyDocument):
		return "No page HTML was sent."
	case errors.Is(err, domain.ErrDocumentTooLarge):
		return "The page is too large to process."
	case errors.Is(err, domain.ErrNoPosts):
		return "No post was found on this page."
	case errors.Is(err, domain.ErrNoConversation):
		return "This post isn't part of a conversation view."
	case errors.Is(err, domain.ErrNoAuthor):
		return "The post's author couldn't be determined."
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	default:
		return "Unable to process this page right now. Please try again in a moment."
	}
}
