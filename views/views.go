// Package views renders the site's pages. Each page is an html/template file
// embedded in the binary and exposed as a templ.Component.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/dwiwad/hockeydecoded"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = map[string]string{
	"home":           "templates/home.html",
	"about":          "templates/about.html",
	"deep-dives":     "templates/deep_dives.html",
	"post":           "templates/post.html",
	"dashboard":      "templates/dashboard.html",
	"live-games":     "templates/live_games.html",
	"player-heatmap": "templates/player_heatmap.html",
	"not-found":      "templates/not_found.html",
	"server-error":   "templates/server_error.html",
}

var funcs = template.FuncMap{
	"longDate": func(t time.Time) string { return t.Format("January 2, 2006") },
	"shortTime": func(t time.Time) string {
		return t.UTC().Format("Jan 2 15:04 MST")
	},
	"isoTime": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	// Post bodies are authored by the site owner and stored as HTML.
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
}

type pageData struct {
	Site    hockeydecoded.SiteConfig
	Meta    hockeydecoded.PageMeta
	Section string
	Year    int
	JSONLD  template.JS

	Posts   []hockeydecoded.BlogPost
	Post    hockeydecoded.BlogPost
	Related []hockeydecoded.BlogPost
	Games   []hockeydecoded.Game
	Team    string
}

// Views holds the parsed page templates for one site configuration.
type Views struct {
	site  hockeydecoded.SiteConfig
	pages map[string]*template.Template
}

// New parses every page template. It fails only if an embedded template is
// malformed.
func New(site hockeydecoded.SiteConfig) (*Views, error) {
	v := &Views{site: site, pages: make(map[string]*template.Template, len(pageFiles))}
	for name, file := range pageFiles {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", file, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func (v *Views) render(page string, data pageData) templ.Component {
	data.Site = v.site
	data.Year = time.Now().Year()
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return v.pages[page].ExecuteTemplate(w, "layout", data)
	})
}

// Funcs returns the components in the shape the app expects.
func (v *Views) Funcs() hockeydecoded.ViewFuncs {
	return hockeydecoded.ViewFuncs{
		Home:          v.Home,
		About:         v.About,
		DeepDives:     v.DeepDives,
		Post:          v.Post,
		Dashboard:     v.Dashboard,
		LiveGames:     v.LiveGames,
		PlayerHeatmap: v.PlayerHeatmap,
		NotFound:      v.NotFound,
		ServerError:   v.ServerError,
	}
}

// Home renders the landing page with the latest posts.
func (v *Views) Home(posts []hockeydecoded.BlogPost, meta hockeydecoded.PageMeta) templ.Component {
	return v.render("home", pageData{
		Meta:   meta,
		Posts:  posts,
		JSONLD: template.JS(hockeydecoded.WebsiteJsonLD(v.site)),
	})
}

// About renders the about page.
func (v *Views) About(meta hockeydecoded.PageMeta) templ.Component {
	return v.render("about", pageData{Meta: meta, Section: "about"})
}

// DeepDives renders the post index.
func (v *Views) DeepDives(posts []hockeydecoded.BlogPost, meta hockeydecoded.PageMeta) templ.Component {
	return v.render("deep-dives", pageData{Meta: meta, Section: "deep-dives", Posts: posts})
}

// Post renders one deep-dive with its related posts.
func (v *Views) Post(post hockeydecoded.BlogPost, related []hockeydecoded.BlogPost, meta hockeydecoded.PageMeta) templ.Component {
	return v.render("post", pageData{
		Meta:    meta,
		Section: "deep-dives",
		Post:    post,
		Related: related,
		JSONLD:  template.JS(hockeydecoded.BlogPostingJsonLD(post, v.site)),
	})
}

// Dashboard renders the dashboard landing page.
func (v *Views) Dashboard(meta hockeydecoded.PageMeta) templ.Component {
	return v.render("dashboard", pageData{Meta: meta, Section: "dashboard"})
}

// LiveGames renders the game table with team selected in the filter.
func (v *Views) LiveGames(games []hockeydecoded.Game, team string, meta hockeydecoded.PageMeta) templ.Component {
	return v.render("live-games", pageData{Meta: meta, Section: "dashboard", Games: games, Team: team})
}

// PlayerHeatmap renders the player heatmap page.
func (v *Views) PlayerHeatmap(meta hockeydecoded.PageMeta) templ.Component {
	return v.render("player-heatmap", pageData{Meta: meta, Section: "dashboard"})
}

// NotFound renders the 404 page.
func (v *Views) NotFound() templ.Component {
	return v.render("not-found", pageData{Meta: v.errorMeta("Page not found")})
}

// ServerError renders the 500 page.
func (v *Views) ServerError() templ.Component {
	return v.render("server-error", pageData{Meta: v.errorMeta("Server error")})
}

func (v *Views) errorMeta(title string) hockeydecoded.PageMeta {
	return hockeydecoded.PageMeta{
		Title:       title + " | " + v.site.Name,
		Description: v.site.Description,
		URL:         hockeydecoded.BuildURL(v.site.URL),
		OGType:      "website",
	}
}
