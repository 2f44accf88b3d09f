package enrichment

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// Traffic sources stored with each click.
const (
	SourceDirect   = "direct"
	SourceSearch   = "search"
	SourceSocial   = "social"
	SourceAI       = "ai"
	SourceReferral = "referral"
)

type sourceRule struct {
	source  string
	domains []string
}

// RefererClassifier maps referrer URLs to traffic sources by host.
type RefererClassifier struct {
	rules []sourceRule
}

// NewRefererClassifier returns a classifier with the built-in domain lists.
// AI assistants are checked first because some live under search domains.
func NewRefererClassifier() *RefererClassifier {
	return &RefererClassifier{
		rules: []sourceRule{
			{source: SourceAI, domains: []string{
				"chatgpt.com", "chat.openai.com", "claude.ai", "gemini.google.com",
				"perplexity.ai", "copilot.microsoft.com",
			}},
			{source: SourceSearch, domains: []string{
				"google.com", "bing.com", "yahoo.com", "duckduckgo.com",
				"baidu.com", "yandex.ru", "ecosia.org",
			}},
			{source: SourceSocial, domains: []string{
				"facebook.com", "twitter.com", "x.com", "t.co", "instagram.com",
				"linkedin.com", "pinterest.com", "reddit.com", "tiktok.com",
				"youtube.com", "threads.net", "mastodon.social", "news.ycombinator.com",
			}},
		},
	}
}

// ClassifySource returns one of the Source* constants.
func (r *RefererClassifier) ClassifySource(referrer string) string {
	if referrer == "" {
		return SourceDirect
	}

	parsed, err := url.Parse(referrer)
	if err != nil {
		return SourceDirect
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" {
		return SourceDirect
	}

	for _, rule := range r.rules {
		if lo.ContainsBy(rule.domains, func(domain string) bool { return matchesDomain(host, domain) }) {
			return rule.source
		}
	}
	return SourceReferral
}

// matchesDomain reports whether host is domain or one of its subdomains.
func matchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
