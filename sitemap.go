package folio

import (
	"encoding/xml"
	"strings"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// buildSitemap lists the home page, the configured static pages and every
// published post.
func buildSitemap(cfg SiteConfig, posts []BlogPost) sitemapURLSet {
	today := timeNow().UTC().Format("2006-01-02")
	urls := []sitemapURL{
		{Loc: BuildURL(cfg.URL), LastMod: today, ChangeFreq: "weekly", Priority: "1.0"},
	}
	for _, page := range cfg.SitemapPages {
		page = strings.Trim(page, "/")
		if page == "" {
			continue
		}
		priority := "0.8"
		if page == "blog" {
			priority = "0.9"
		}
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(cfg.URL, page),
			LastMod:    today,
			ChangeFreq: "weekly",
			Priority:   priority,
		})
	}
	for _, p := range posts {
		lastMod := ""
		if t := p.Updated(); !t.IsZero() {
			lastMod = t.UTC().Format("2006-01-02")
		}
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(cfg.URL, "blog", p.Slug),
			LastMod:    lastMod,
			ChangeFreq: "monthly",
			Priority:   "0.7",
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}
