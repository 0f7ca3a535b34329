// Package fixtures provides HTML test fixtures shaped like the X timeline.
package fixtures

import (
	"fmt"
	"strings"
)

// page wraps body markup in a minimal document.
func page(body string) string {
	return `<!DOCTYPE html>
<html>
<head><title>X</title></head>
<body>
` + body + `
</body>
</html>
`
}

// Post renders one timeline post by handle with the given status ID and
// body text.
func Post(handle, name, statusID, text string) string {
	return fmt.Sprintf(`
<article data-testid="tweet" role="article" tabindex="0">
    <div data-testid="Tweet-User-Avatar">
        <a href="/%[1]s" role="link"><img src="https://pbs.twimg.com/profile_images/1/%[1]s_normal.jpg" alt=""/></a>
    </div>
    <div data-testid="User-Name">
        <a href="/%[1]s" role="link"><span>%[2]s</span></a>
        <a href="/%[1]s" role="link" tabindex="-1"><span>@%[1]s</span></a>
        <span>·</span>
        <a href="/%[1]s/status/%[3]s" role="link"><time datetime="2026-01-01T12:00:00.000Z">Jan 1</time></a>
    </div>
    <div data-testid="tweetText" lang="en" dir="auto"><span>%[4]s</span></div>
    <div role="group">
        <button data-testid="reply" aria-label="5 Replies. Reply"><span>5</span></button>
        <button data-testid="retweet" aria-label="12 reposts. Repost"><span>12</span></button>
        <button data-testid="like" aria-label="1.2K Likes. Like"><span></span></button>
    </div>
</article>`, handle, name, statusID, text)
}

// GenerateBasicTweet creates a simple text post by @johndoe, status 123.
func GenerateBasicTweet() string {
	return page(Post("johndoe", "John Doe", "123", "This is a test tweet content."))
}

// GenerateMediaTweet creates a post with duplicated photos, an emoji, a
// blob-backed video and an mp4 video.
func GenerateMediaTweet() string {
	return page(`
<article data-testid="tweet" role="article">
    <div data-testid="Tweet-User-Avatar"><img src="https://pbs.twimg.com/profile_images/9/media_normal.jpg"/></div>
    <div data-testid="User-Name">
        <a href="/mediauser" role="link"><span>Media User</span></a>
        <a href="/mediauser/status/200" role="link"><time datetime="2026-02-03T08:30:00.000Z">Feb 3</time></a>
    </div>
    <div data-testid="tweetText" lang="en" dir="auto">
        <span>Look at these</span><img alt="😀" src="https://abs-0.twimg.com/emoji/v2/svg/1f600.svg"/>
    </div>
    <div data-testid="tweetPhoto"><img alt="Image" src="https://pbs.twimg.com/media/AAA111?format=jpg&amp;name=small"/></div>
    <div data-testid="tweetPhoto"><img alt="Image" src="https://pbs.twimg.com/media/BBB222.png:large"/></div>
    <div data-testid="tweetPhoto"><img alt="Image" src="https://pbs.twimg.com/media/AAA111?format=jpg&amp;name=small"/></div>
    <div data-testid="videoPlayer">
        <video src="blob:https://x.com/8c1d" poster="https://pbs.twimg.com/ext_tw_video_thumb/1/pu/img/thumb.jpg"></video>
    </div>
    <div data-testid="videoComponent">
        <video><source src="https://video.twimg.com/ext_tw_video/2/pu/vid/clip.mp4" type="video/mp4"/></video>
    </div>
    <div data-testid="quoteTweet">
        <div data-testid="tweetPhoto"><img alt="Image" src="https://pbs.twimg.com/media/QUOTED?format=jpg&amp;name=small"/></div>
    </div>
</article>`)
}

// GenerateThread creates a conversation container holding one post per
// handle, in order. Status IDs start at 1000.
func GenerateThread(handles ...string) string {
	var b strings.Builder
	b.WriteString(`<div data-testid="primaryColumn"><section role="region"><div aria-label="Timeline: Conversation">`)
	for i, h := range handles {
		b.WriteString(`<div data-testid="cellInnerDiv">`)
		b.WriteString(Post(h, strings.ToUpper(h[:1])+h[1:], fmt.Sprint(1000+i), fmt.Sprintf("Post number %d written by %s", i, h)))
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></section></div>`)
	return page(b.String())
}

// GenerateArticleTweet creates a collapsed long-form post whose body is
// spread across nested blocks, with a "Show more" affordance.
func GenerateArticleTweet() string {
	return page(`
<article data-testid="tweet" role="article">
    <div data-testid="User-Name">
        <a href="/longform" role="link"><span>Long Form</span></a>
        <a href="/longform/status/300" role="link"><time datetime="2026-03-01T09:00:00.000Z">Mar 1</time></a>
    </div>
    <div data-testid="twitterArticleRichTextView">
        <div lang="en" dir="auto">
            <div><span>Distributed systems fail in ways that single machines never do.</span></div>
            <div><span>1. Networks partition without warning and messages arrive late.</span></div>
            <div><span>2. Clocks drift, so ordering events needs logical timestamps.</span></div>
            <div><span>Summary: design for partial failure from the first line of code.</span></div>
        </div>
    </div>
    <div role="button" data-testid="tweet-text-show-more-link">Show more</div>
    <div role="group">
        <button data-testid="reply" aria-label="Reply"></button>
    </div>
</article>`)
}

// GenerateNoAuthorTweet creates a post without any user-name region.
// Only the permalink carries the handle.
func GenerateNoAuthorTweet() string {
	return page(`
<article data-testid="tweet" role="article">
    <a href="/ghostwriter/status/555/photo/1"><time datetime="2026-01-02T00:00:00.000Z">Jan 2</time></a>
    <div data-testid="tweetText" lang="en" dir="auto">Nobody signed this post.</div>
</article>`)
}

// GenerateAnonymousTweet creates a post with no author signal at all.
func GenerateAnonymousTweet() string {
	return page(`
<article data-testid="tweet" role="article">
    <div data-testid="tweetText" lang="en" dir="auto">A post with no author and no link.</div>
</article>`)
}

// GenerateLooseTweet creates a post outside any conversation container.
func GenerateLooseTweet() string {
	return page(`<main>` + Post("loner", "Loner", "42", "Standing alone in the timeline.") + `</main>`)
}

// GenerateEmptyTweet creates a post with no recognizable content.
func GenerateEmptyTweet() string {
	return page(`
<article data-testid="tweet">
    <div>142</div>
</article>`)
}
