package folio

import (
	"encoding/xml"
	"strings"
	"time"
)

// timeNow is the clock used for feed and sitemap build dates.
var timeNow = time.Now

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
}

// buildFeed renders the newest cfg.FeedLimit posts as an RSS 2.0 channel.
// posts must already be sorted newest first.
func buildFeed(cfg SiteConfig, posts []BlogPost, now time.Time) rssXML {
	if len(posts) > cfg.FeedLimit {
		posts = posts[:cfg.FeedLimit]
	}
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		pubDate := ""
		if t := p.Created(); !t.IsZero() {
			pubDate = t.UTC().Format(time.RFC1123Z)
		}
		author := p.Author
		if author == "" {
			author = cfg.Author
		}
		postURL := BuildURL(cfg.URL, "blog", p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Excerpt,
			PubDate:     pubDate,
			GUID:        postURL,
			Author:      author,
			Categories:  p.Tags,
		})
	}
	return rssXML{
		Version: "2.0",
		AtomNS:  "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:         cfg.Name,
			Link:          BuildURL(cfg.URL, "blog"),
			Description:   cfg.Description,
			Language:      cfg.Language,
			LastBuildDate: now.UTC().Format(time.RFC1123Z),
			AtomLink: atomLink{
				Href: strings.TrimRight(cfg.URL, "/") + "/feed.xml",
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
}
