// Package domain contains the records produced by feed extraction.
package domain

// TweetData is the canonical record extracted from one post element.
// A TweetData is built fresh on every extraction pass and is never
// mutated after it is handed to a caller.
type TweetData struct {
	UserName   string     `json:"userName"`
	UserHandle string     `json:"userHandle"` // without the leading "@"
	Avatar     string     `json:"avatar"`
	Text       string     `json:"text"`
	Timestamp  string     `json:"timestamp"` // collection time, RFC 3339
	TweetTime  string     `json:"tweetTime"` // authored time, RFC 3339 when parseable
	URL        string     `json:"url"`       // page address at collection time
	TweetURL   string     `json:"tweetUrl"`  // direct permalink
	Media      TweetMedia `json:"media"`
	Stats      TweetStats `json:"stats"`

	// Optional annotations filled by downstream renderers only.
	InlineMedia []InlineMedia `json:"inlineMedia,omitempty"`
	MediaLayout MediaLayout   `json:"mediaLayout,omitempty"`
}

// TweetMedia lists media URLs in document order without duplicates.
type TweetMedia struct {
	Images []string `json:"images"`
	Videos []string `json:"videos"`
}

// TweetStats keeps engagement counters as displayed.
// Source formatting ("1.2K", "3万") is not reliably invertible, so the
// values stay strings.
type TweetStats struct {
	Replies  string `json:"replies"`
	Retweets string `json:"retweets"`
	Likes    string `json:"likes"`
}

// InlineMedia anchors a media URL at a position in the body text.
type InlineMedia struct {
	URL    string `json:"url"`
	Offset int    `json:"offset"`
}

// MediaLayout is a rendering hint for downstream collaborators.
type MediaLayout string

const (
	LayoutGrid   MediaLayout = "grid"
	LayoutInline MediaLayout = "inline"
)

// ThreadData is an ordered run of posts by one author.
type ThreadData struct {
	Tweets    []*TweetData `json:"tweets"`
	MainTweet *TweetData   `json:"mainTweet"`
}

// NewThread builds a ThreadData whose main tweet is the first element.
func NewThread(tweets []*TweetData) *ThreadData {
	t := &ThreadData{Tweets: tweets}
	if len(tweets) > 0 {
		t.MainTweet = tweets[0]
	}
	return t
}

// HasAuthor reports whether at least one author field was resolved.
func (t *TweetData) HasAuthor() bool {
	return t.UserName != "" || t.UserHandle != ""
}
