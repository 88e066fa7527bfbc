package hockeydecoded

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"
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
}

var staticPages = []struct {
	path, freq string
}{
	{"about", "yearly"},
	{"deep-dives", "weekly"},
	{"dashboard", "daily"},
	{"dashboard/live-games", "always"},
	{"dashboard/player-heatmap", "monthly"},
}

func (a *App) renderSitemap(c echo.Context, posts []BlogPost) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base), ChangeFreq: "weekly"},
	}
	for _, p := range staticPages {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, p.path), ChangeFreq: p.freq})
	}
	for _, p := range posts {
		lastMod := p.Date()
		if p.UpdatedAt.Valid {
			lastMod = p.UpdatedAt.Time.Format("2006-01-02")
		}
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, "deep-dives", p.Slug),
			LastMod: lastMod,
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
