// Package views provides a plain html/template rendition of folio.ViewFuncs
// for sites that do not ship their own templ components.
package views

import (
	"embed"
	"html/template"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/folio"
)

//go:embed templates/*.html
var files embed.FS

// page is the data every template receives.
type page struct {
	Site    folio.SiteConfig
	Meta    folio.PageMeta
	CSRF    string
	Message string
	Data    any
}

type homeData struct {
	Posts     []folio.BlogPost
	ActiveTag string
	Tags      []folio.TagCount
	Query     string
}

type postData struct {
	Post    folio.BlogPost
	Related []folio.BlogPost
	JSONLD  template.JS
}

type loginData struct {
	ShowError bool
}

var funcs = template.FuncMap{
	"joinTags":  folio.JoinTags,
	"pathEsc":   folio.PathEscape,
	"isNew":     func(p folio.BlogPost) bool { return p.ID == "" },
	"kilobytes": func(n int) int { return (n + 1023) / 1024 },
	"contentTags": func() []folio.ContentTag {
		return []folio.ContentTag{folio.ContentHumanWritten, folio.ContentAIEdited, folio.ContentAIGenerated}
	},
}

// set parses the layout together with one page template so the "content"
// block is defined once per page.
func set(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name))
}

var (
	homeTmpl      = set("home.html")
	postTmpl      = set("post.html")
	loginTmpl     = set("login.html")
	dashboardTmpl = set("dashboard.html")
	editorTmpl    = set("editor.html")
	imagesTmpl    = set("images.html")
	notFoundTmpl  = set("notfound.html")
	errorTmpl     = set("error.html")
)

// Default returns ViewFuncs rendering the bundled templates for cfg.
func Default(cfg folio.SiteConfig) folio.ViewFuncs {
	site := func(title, desc, path string) folio.PageMeta {
		if title == "" {
			title = cfg.Name
		} else {
			title += " | " + cfg.Name
		}
		if desc == "" {
			desc = cfg.Description
		}
		return folio.PageMeta{Title: title, Description: desc, URL: folio.BuildURL(cfg.URL, path), OGType: "website"}
	}

	return folio.ViewFuncs{
		Home: func(posts []folio.BlogPost, activeTag string, tags []folio.TagCount, cfg folio.SiteConfig) templ.Component {
			title := ""
			if activeTag != "" {
				title = "#" + activeTag
			}
			return templ.FromGoHTML(homeTmpl, page{
				Site: cfg,
				Meta: site(title, "", "blog"),
				Data: homeData{Posts: posts, ActiveTag: activeTag, Tags: tags},
			})
		},
		Search: func(posts []folio.BlogPost, query string, cfg folio.SiteConfig) templ.Component {
			return templ.FromGoHTML(homeTmpl, page{
				Site: cfg,
				Meta: site("Search: "+query, "", "blog/search"),
				Data: homeData{Posts: posts, Query: query},
			})
		},
		Post: func(post folio.BlogPost, related []folio.BlogPost, cfg folio.SiteConfig) templ.Component {
			meta := site(post.Title, post.Excerpt, "blog/"+post.Slug)
			meta.OGType = "article"
			if post.FeaturedImage != "" {
				meta.Image = strings.TrimRight(cfg.URL, "/") + post.FeaturedImage
			}
			return templ.FromGoHTML(postTmpl, page{
				Site: cfg,
				Meta: meta,
				Data: postData{
					Post:    post,
					Related: related,
					JSONLD:  template.JS(folio.BlogPostingJsonLD(post, cfg)),
				},
			})
		},
		AdminLogin: func(showError bool, csrf string) templ.Component {
			return templ.FromGoHTML(loginTmpl, page{Site: cfg, Meta: site("Admin", "", "admin"), CSRF: csrf, Data: loginData{ShowError: showError}})
		},
		AdminDashboard: func(posts []folio.BlogPost, message, csrf string) templ.Component {
			return templ.FromGoHTML(dashboardTmpl, page{Site: cfg, Meta: site("Dashboard", "", "admin"), CSRF: csrf, Message: message, Data: posts})
		},
		AdminEditor: func(post folio.BlogPost, csrf string) templ.Component {
			return templ.FromGoHTML(editorTmpl, page{Site: cfg, Meta: site("Editor", "", "admin/editor"), CSRF: csrf, Data: post})
		},
		AdminImages: func(images []folio.Image, csrf string) templ.Component {
			return templ.FromGoHTML(imagesTmpl, page{Site: cfg, Meta: site("Images", "", "admin/images"), CSRF: csrf, Data: images})
		},
		NotFound: func() templ.Component {
			return templ.FromGoHTML(notFoundTmpl, page{Site: cfg, Meta: site("Not found", "", "")})
		},
		ServerError: func() templ.Component {
			return templ.FromGoHTML(errorTmpl, page{Site: cfg, Meta: site("Error", "", "")})
		},
	}
}
