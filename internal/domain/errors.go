package domain

import "errors"

var (
	// ErrDetachedElement is returned when a post root is empty or no longer
	// attached to a document.
	ErrDetachedElement = errors.New("post element is detached from the document")

	// ErrNoConversation is returned when a main post has no enclosing
	// conversation container.
	ErrNoConversation = errors.New("no conversation container around post")

	// ErrNoAuthor is returned when thread assembly cannot resolve the main
	// post's author handle.
	ErrNoAuthor = errors.New("author handle not resolvable")

	// ErrNoPosts is returned when a document contains no post-like element.
	ErrNoPosts = errors.New("no post found in document")

	// ErrDocumentTooLarge is returned when an HTML document exceeds the load limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")

	// ErrEmptyDocument is returned when no HTML was supplied.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrInvalidURL is returned when the URL format is invalid.
	ErrInvalidURL = errors.New("invalid tweet URL format")

	// ErrRateLimited is returned when a client exceeds the collection rate.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrTweetNotFound is returned when no collected record matches a lookup.
	ErrTweetNotFound = errors.New("tweet not collected")
)
