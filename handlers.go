package folio

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	tag := c.QueryParam("tag")
	posts, err := a.Cache.ListPosts(ctx, tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(posts, tag, tags, a.Config))
}

func (a *App) handleTag(c echo.Context) error {
	ctx := c.Request().Context()
	tag := c.Param("tag")
	posts, err := a.Cache.ListPosts(ctx, tag)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(posts, tag, tags, a.Config))
}

func (a *App) handleSearch(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.Redirect(http.StatusSeeOther, "/blog/")
	}
	posts, err := a.Repo.Search(c.Request().Context(), query)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Search(posts, query, a.Config))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Post(post, FilterRelatedPosts(post, posts), a.Config))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return renderXML(c, "application/xml; charset=utf-8", buildSitemap(a.Config, posts))
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return renderXML(c, "application/xml; charset=utf-8", buildFeed(a.Config, posts, timeNow()))
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "favicon.svg"))
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "robots.txt"))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
