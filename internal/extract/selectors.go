package extract

import (
	"os"
	"sync"
	"time"

	"feedthread/pkg/log"

	"gopkg.in/yaml.v3"
)

// SelectorSet holds the ranked structural query patterns for every field.
// Each list is ordered from the most specific (current layout) to the most
// generic fallback. A query is a CSS selector, or an XPath expression when
// prefixed with "xpath:".
type SelectorSet struct {
	Post         []string
	Conversation []string

	AuthorName   []string
	AuthorHandle []string
	AuthorAvatar []string

	Text    []string
	Article []string
	Expand  []string

	Images []string
	Videos []string

	Replies  []string
	Retweets []string
	Likes    []string

	Permalink []string
	Time      []string
}

// DefaultSelectorSet returns the compiled-in patterns for the X layout.
// Update these when extraction breaks.
func DefaultSelectorSet() SelectorSet {
	return SelectorSet{
		Post: []string{
			`article[data-testid="tweet"]`,
			`div[data-testid="tweet"]`,
			`article[role="article"]`,
		},
		Conversation: []string{
			`[aria-label^="Timeline: Conversation"]`,
			`[aria-label^="时间线：对话"]`,
			`section[role="region"]`,
			`[data-testid="primaryColumn"]`,
		},
		AuthorName: []string{
			`[data-testid="User-Name"] a[role="link"] span`,
			`[data-testid="User-Name"] a span`,
			`[data-testid="User-Name"] span`,
			`xpath://div[@data-testid="User-Name"]//span`,
		},
		AuthorHandle: []string{
			`[data-testid="User-Name"] a[href^="/"]`,
			`a[role="link"][href^="/"][tabindex="-1"]`,
			`a[href*="/status/"]`,
		},
		AuthorAvatar: []string{
			`[data-testid="Tweet-User-Avatar"] img`,
			`[data-testid^="UserAvatar-Container"] img`,
			`img[src*="profile_images"]`,
		},
		Text: []string{
			`[data-testid="tweetText"]`,
			`div[lang][dir]`,
			`div[lang]`,
			`[dir="auto"]`,
		},
		Article: []string{
			`[data-testid="twitterArticleRichTextView"]`,
			`[data-testid="longformRichTextComponent"]`,
			`[data-testid="tweetText"]`,
			`div[lang]`,
			`[dir="auto"]`,
			`[role="article"] div`,
		},
		Expand: []string{
			`[data-testid="tweet-text-show-more-link"]`,
			`[role="button"]`,
			`button`,
			`a`,
			`span`,
		},
		Images: []string{
			`[data-testid="tweetPhoto"] img`,
			`img[src*="/media/"]`,
			`img`,
		},
		Videos: []string{
			`[data-testid="videoPlayer"] video`,
			`[data-testid="videoComponent"] video`,
			`video`,
		},
		Replies:  []string{`[data-testid="reply"]`},
		Retweets: []string{`[data-testid="retweet"]`, `[data-testid="unretweet"]`},
		Likes:    []string{`[data-testid="like"]`, `[data-testid="unlike"]`},
		Permalink: []string{
			`a[href*="/status/"]:has(time)`,
			`a[href*="/status/"]`,
		},
		Time: []string{
			`time[datetime]`,
		},
	}
}

// Selectors is a thread-safe, optionally file-backed SelectorSet.
type Selectors struct {
	mu          sync.RWMutex
	set         SelectorSet
	filePath    string
	lastModTime time.Time
	stop        chan struct{}
	once        sync.Once
}

// rawSelectors represents the YAML structure.
type rawSelectors struct {
	Post         []string `yaml:"post"`
	Conversation []string `yaml:"conversation"`
	Author       struct {
		Name   []string `yaml:"name"`
		Handle []string `yaml:"handle"`
		Avatar []string `yaml:"avatar"`
	} `yaml:"author"`
	Content struct {
		Text    []string `yaml:"text"`
		Article []string `yaml:"article"`
		Expand  []string `yaml:"expand"`
	} `yaml:"content"`
	Media struct {
		Images []string `yaml:"images"`
		Videos []string `yaml:"videos"`
	} `yaml:"media"`
	Stats struct {
		Replies  []string `yaml:"replies"`
		Retweets []string `yaml:"retweets"`
		Likes    []string `yaml:"likes"`
	} `yaml:"stats"`
	Meta struct {
		Permalink []string `yaml:"permalink"`
		Time      []string `yaml:"time"`
	} `yaml:"meta"`
}

// DefaultSelectors returns Selectors backed by the compiled-in patterns only.
func DefaultSelectors() *Selectors {
	return &Selectors{set: DefaultSelectorSet()}
}

// LoadSelectors loads pattern overrides from a YAML file and starts a
// background poller that hot-reloads the file when it changes.
func LoadSelectors(filePath string) (*Selectors, error) {
	s := &Selectors{
		set:      DefaultSelectorSet(),
		filePath: filePath,
		stop:     make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	go s.watch(10 * time.Second)

	return s, nil
}

// ParseSelectors merges YAML overrides onto the defaults.
// Lists omitted from the document keep their default value.
func ParseSelectors(data []byte) (SelectorSet, error) {
	var raw rawSelectors
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return SelectorSet{}, err
	}

	set := DefaultSelectorSet()
	override(&set.Post, raw.Post)
	override(&set.Conversation, raw.Conversation)
	override(&set.AuthorName, raw.Author.Name)
	override(&set.AuthorHandle, raw.Author.Handle)
	override(&set.AuthorAvatar, raw.Author.Avatar)
	override(&set.Text, raw.Content.Text)
	override(&set.Article, raw.Content.Article)
	override(&set.Expand, raw.Content.Expand)
	override(&set.Images, raw.Media.Images)
	override(&set.Videos, raw.Media.Videos)
	override(&set.Replies, raw.Stats.Replies)
	override(&set.Retweets, raw.Stats.Retweets)
	override(&set.Likes, raw.Stats.Likes)
	override(&set.Permalink, raw.Meta.Permalink)
	override(&set.Time, raw.Meta.Time)

	return set, nil
}

func override(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// reload reads the configuration from the file.
func (s *Selectors) reload() error {
	info, err := os.Stat(s.filePath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	set, err := ParseSelectors(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.set = set
	s.lastModTime = info.ModTime()
	s.mu.Unlock()

	return nil
}

// watch polls the configuration file and reloads it on modification.
func (s *Selectors) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			info, err := os.Stat(s.filePath)
			if err != nil {
				continue
			}
			s.mu.RLock()
			changed := info.ModTime().After(s.lastModTime)
			s.mu.RUnlock()
			if !changed {
				continue
			}
			if err := s.reload(); err != nil {
				log.GlobalWarn("selector reload failed", "path", s.filePath, "error", err)
				continue
			}
			log.GlobalInfo("selectors reloaded", "path", s.filePath)
		}
	}
}

// Current returns a snapshot of the active patterns (thread-safe).
func (s *Selectors) Current() SelectorSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// Close stops the hot-reload poller. Safe to call multiple times.
func (s *Selectors) Close() {
	if s.stop == nil {
		return
	}
	s.once.Do(func() { close(s.stop) })
}
