package server

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/TobiSchelling/newsdesk/internal/compose"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/feed"
)

// pageLimit bounds article lists on HTML pages.
const pageLimit = 50

type articleView struct {
	domain.Article
	Author    string
	Publisher string
}

// directory maps ids to display names for a page render.
type directory struct {
	users      map[int64]string
	publishers map[int64]string
}

func (s *Server) directory(ctx context.Context) (*directory, error) {
	users, err := s.desk.Users(ctx)
	if err != nil {
		return nil, err
	}
	publishers, err := s.desk.ListPublishers(ctx)
	if err != nil {
		return nil, err
	}
	d := &directory{
		users:      make(map[int64]string, len(users)),
		publishers: make(map[int64]string, len(publishers)),
	}
	for _, u := range users {
		d.users[u.ID] = u.Username
	}
	for _, p := range publishers {
		d.publishers[p.ID] = p.Title
	}
	return d, nil
}

func (d *directory) view(a domain.Article) articleView {
	v := articleView{Article: a, Author: d.users[a.AuthorID]}
	if a.PublisherID != nil {
		v.Publisher = d.publishers[*a.PublisherID]
	}
	return v
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request, p *domain.Principal, f feed.Filter, heading string) error {
	articles, err := s.desk.ListArticles(r.Context(), p, f, pageLimit)
	if err != nil {
		return err
	}
	dir, err := s.directory(r.Context())
	if err != nil {
		return err
	}
	views := make([]articleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, dir.view(a))
	}
	s.render(w, "index.html", map[string]any{
		"Heading":   heading,
		"Filter":    string(f),
		"Articles":  views,
		"Principal": p,
	})
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	f, err := feed.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		return err
	}
	heading := "Latest"
	switch f {
	case feed.Subscribed:
		heading = "Your subscriptions"
	case feed.OwnDrafts:
		heading = "Your articles"
	case feed.Workspace:
		heading = "Workspace"
	case feed.Pending:
		heading = "Awaiting review"
	case feed.PublisherOnly:
		heading = "From publishers"
	}
	return s.listPage(w, r, p, f, heading)
}

func (s *Server) handleIndependent(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	return s.listPage(w, r, p, feed.Independent, "Independent")
}

func (s *Server) handlePublishers(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	publishers, err := s.desk.ListPublishers(r.Context())
	if err != nil {
		return err
	}
	newsletters, err := s.desk.ListNewsletters(r.Context())
	if err != nil {
		return err
	}
	s.render(w, "publishers.html", map[string]any{
		"Publishers":  publishers,
		"Newsletters": newsletters,
		"Principal":   p,
	})
	return nil
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return domain.ErrNotFound
	}
	a, err := s.desk.GetArticle(r.Context(), p, id)
	if err != nil {
		return err
	}
	dir, err := s.directory(r.Context())
	if err != nil {
		return err
	}
	s.render(w, "article.html", map[string]any{
		"Article":   dir.view(*a),
		"Principal": p,
	})
	return nil
}

func (s *Server) handleNewsletter(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return domain.ErrNotFound
	}
	view, err := s.desk.GetNewsletter(r.Context(), p, id)
	if err != nil {
		return err
	}
	text := compose.Newsletter(view.Newsletter, view.Articles, s.articlePath, compose.DefaultExcerptLength)
	s.render(w, "newsletter.html", map[string]any{
		"Newsletter": view.Newsletter,
		"Markdown":   text,
		"Principal":  p,
	})
	return nil
}

func (s *Server) articlePath(id int64) string {
	return "/article/" + itoa(id)
}
