package extract

import (
	"strings"

	"feedthread/internal/domain"
	"feedthread/pkg/log"

	"github.com/PuerkitoBio/goquery"
)

// AssembleThread collects the main post and the consecutive posts by the
// same author that follow it inside the conversation container.
//
// The scan assumes the container renders the conversation in chronological
// order. Out-of-order rendering ends the thread at the first foreign post.
func (x *Extractor) AssembleThread(main *goquery.Selection, pageURL string) (*domain.ThreadData, error) {
	if !attached(main) {
		return nil, domain.ErrDetachedElement
	}
	main = main.First()
	set := x.selectors.Current()

	conv := conversationOf(main, set)
	if conv == nil {
		return nil, domain.ErrNoConversation
	}

	first, err := x.Extract(main, pageURL)
	if err != nil {
		return nil, err
	}
	if first.UserHandle == "" {
		return nil, domain.ErrNoAuthor
	}

	var (
		tweets  []*domain.TweetData
		reached bool
		ended   bool
	)
	PostRoots(conv, set).EachWithBreak(func(_ int, post *goquery.Selection) bool {
		if !reached {
			if !sameNode(post, main) {
				return true
			}
			reached = true
			tweets = append(tweets, first)
			return true
		}

		data, err := x.Extract(post, pageURL)
		if err != nil {
			log.GlobalDebug("skipping thread post", "error", err.Error())
			return true
		}
		if !strings.EqualFold(data.UserHandle, first.UserHandle) {
			ended = true
			return false
		}
		tweets = append(tweets, data)
		return true
	})

	if !reached {
		log.GlobalDebug("main post not found in conversation, using single-post thread", "handle", first.UserHandle)
		tweets = []*domain.TweetData{first}
	}
	log.GlobalDebug("thread assembled", "handle", first.UserHandle, "posts", len(tweets), "boundary", ended)

	return domain.NewThread(tweets), nil
}

// conversationOf returns the nearest conversation container enclosing main,
// trying each conversation pattern in rank order.
func conversationOf(main *goquery.Selection, set SelectorSet) *goquery.Selection {
	for _, q := range set.Conversation {
		if strings.HasPrefix(q, xpathPrefix) {
			continue
		}
		if conv := main.Closest(q); conv.Length() > 0 {
			return conv
		}
	}
	return nil
}

// FindPost returns the post root whose permalink carries statusID. When no
// root matches, or statusID is empty, the first post root is returned.
func (x *Extractor) FindPost(root *goquery.Selection, statusID string) (*goquery.Selection, error) {
	set := x.selectors.Current()
	posts := PostRoots(root, set)
	if posts.Length() == 0 {
		return nil, domain.ErrNoPosts
	}
	if statusID == "" {
		return posts.First(), nil
	}

	found := posts.First()
	posts.EachWithBreak(func(_ int, post *goquery.Selection) bool {
		if _, id := StatusFromURL(extractPermalink(post, set, "")); id == statusID {
			found = post
			return false
		}
		return true
	})
	return found, nil
}
