package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/feed"
	"github.com/TobiSchelling/newsdesk/internal/role"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type principalJSON struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Bio      string    `json:"bio,omitempty"`
	Role     role.Role `json:"role"`
}

type articleJSON struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Body           string       `json:"body"`
	ImageURL       string       `json:"image_url,omitempty"`
	PublisherID    *int64       `json:"publisher_id"`
	AuthorID       int64        `json:"author_id"`
	SourceURL      *string      `json:"source_url,omitempty"`
	State          domain.State `json:"state"`
	ApprovedBy     *int64       `json:"approved_by"`
	DeclinedBy     *int64       `json:"declined_by"`
	DeclinedReason string       `json:"declined_reason,omitempty"`
	DeclinedAt     *time.Time   `json:"declined_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	URL            string       `json:"url"`
}

type publisherJSON struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	EditorIDs     []int64   `json:"editor_ids"`
	JournalistIDs []int64   `json:"journalist_ids"`
	CreatedAt     time.Time `json:"created_at"`
}

type newsletterJSON struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorID    int64     `json:"author_id"`
	ArticleIDs  []int64   `json:"article_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

type articleRequest struct {
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	ImageURL    string  `json:"image_url"`
	PublisherID *int64  `json:"publisher_id"`
	SourceURL   *string `json:"source_url"`
}

type articlePatchRequest struct {
	Title          *string `json:"title"`
	Body           *string `json:"body"`
	ImageURL       *string `json:"image_url"`
	PublisherID    *int64  `json:"publisher_id"`
	ClearPublisher bool    `json:"clear_publisher"`
}

type newsletterRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ArticleIDs  []int64 `json:"article_ids"`
}

func (s *Server) articleJSON(a *domain.Article) articleJSON {
	return articleJSON{
		ID:             a.ID,
		Title:          a.Title,
		Body:           a.Body,
		ImageURL:       a.ImageURL,
		PublisherID:    a.PublisherID,
		AuthorID:       a.AuthorID,
		SourceURL:      a.SourceURL,
		State:          a.State,
		ApprovedBy:     a.ApprovedBy,
		DeclinedBy:     a.DeclinedBy,
		DeclinedReason: a.DeclinedReason,
		DeclinedAt:     a.DeclinedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		URL:            s.desk.ArticleURL(a.ID),
	}
}

func toPrincipalJSON(p *domain.Principal) principalJSON {
	return principalJSON{ID: p.ID, Username: p.Username, Email: p.Email, Bio: p.Bio, Role: p.Role}
}

func toPublisherJSON(p *domain.Publisher) publisherJSON {
	return publisherJSON{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		EditorIDs:     nonNil(p.EditorIDs),
		JournalistIDs: nonNil(p.JournalistIDs),
		CreatedAt:     p.CreatedAt,
	}
}

func toNewsletterJSON(n *domain.Newsletter) newsletterJSON {
	return newsletterJSON{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		AuthorID:    n.AuthorID,
		ArticleIDs:  nonNil(n.ArticleIDs),
		CreatedAt:   n.CreatedAt,
	}
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("body", "request body is empty")
		}
		return domain.Invalid("body", "%v", err)
	}
	return nil
}

func (s *Server) apiMe(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	if p == nil {
		writeJSON(w, http.StatusOK, map[string]any{"role": nil, "capabilities": role.Anonymous().Sorted()})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         toPrincipalJSON(p),
		"capabilities": role.Capabilities(p.Role).Sorted(),
	})
	return nil
}

func (s *Server) apiChangeRole(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	newRole, err := role.Parse(req.Role)
	if err != nil {
		return domain.Invalid("role", "%v", err)
	}
	updated, err := s.desk.ChangeRole(r.Context(), p, newRole)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toPrincipalJSON(updated))
	return nil
}

func (s *Server) apiListArticles(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	q := r.URL.Query()
	filter, err := feed.ParseFilter(q.Get("filter"))
	if err != nil {
		return err
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return domain.Invalid("limit", "must be a non-negative integer")
		}
	}

	articles, err := s.desk.ListArticles(r.Context(), p, filter, limit)
	if err != nil {
		return err
	}
	out := make([]articleJSON, 0, len(articles))
	for i := range articles {
		out = append(out, s.articleJSON(&articles[i]))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) apiCreateArticle(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	var req articleRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	a, err := s.desk.CreateArticle(r.Context(), p, domain.ArticleFields{
		Title:       req.Title,
		Body:        req.Body,
		ImageURL:    req.ImageURL,
		PublisherID: req.PublisherID,
		SourceURL:   req.SourceURL,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, s.articleJSON(a))
	return nil
}

func (s *Server) apiGetArticle(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	a, err := s.desk.GetArticle(r.Context(), p, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.articleJSON(a))
	return nil
}

func (s *Server) apiEditArticle(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	var req articlePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	a, err := s.desk.EditArticle(r.Context(), p, id, domain.ArticlePatch{
		Title:          req.Title,
		Body:           req.Body,
		ImageURL:       req.ImageURL,
		PublisherID:    req.PublisherID,
		ClearPublisher: req.ClearPublisher,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.articleJSON(a))
	return nil
}

func (s *Server) apiDeleteArticle(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	if err := s.desk.DeleteArticle(r.Context(), p, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) apiApproveArticle(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	approval, err := s.desk.ApproveArticle(r.Context(), p, id)
	if err != nil {
		return err
	}
	resp := struct {
		Article articleJSON `json:"article"`
		Warning string      `json:"warning,omitempty"`
	}{Article: s.articleJSON(&approval.Article)}
	if approval.Warning != nil {
		resp.Warning = approval.Warning.Error()
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (s *Server) apiDeclineArticle(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
	}
	a, err := s.desk.DeclineArticle(r.Context(), p, id, req.Reason)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.articleJSON(a))
	return nil
}

func (s *Server) apiSubscriptions(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	subs, err := s.desk.Subscriptions(r.Context(), p)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string][]int64{
		"publisher_ids":  nonNil(subs.PublisherIDs),
		"journalist_ids": nonNil(subs.JournalistIDs),
	})
	return nil
}

func (s *Server) apiToggleSubscription(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	kind := domain.SubscriptionKind(params.ByName("kind"))
	subscribed, err := s.desk.ToggleSubscription(r.Context(), p, kind, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"subscribed": subscribed})
	return nil
}

func (s *Server) apiListPublishers(w http.ResponseWriter, r *http.Request, _ *domain.Principal, _ httprouter.Params) error {
	publishers, err := s.desk.ListPublishers(r.Context())
	if err != nil {
		return err
	}
	out := make([]publisherJSON, 0, len(publishers))
	for i := range publishers {
		out = append(out, toPublisherJSON(&publishers[i]))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) apiCreatePublisher(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	pub, err := s.desk.CreatePublisher(r.Context(), p, req.Title, req.Description)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toPublisherJSON(pub))
	return nil
}

func (s *Server) apiDeletePublisher(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	if err := s.desk.DeletePublisher(r.Context(), p, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) apiAddJournalist(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	uid, err := idParam(params, "uid")
	if err != nil {
		return err
	}
	pub, err := s.desk.AddPublisherJournalist(r.Context(), p, id, uid)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toPublisherJSON(pub))
	return nil
}

func (s *Server) apiListNewsletters(w http.ResponseWriter, r *http.Request, _ *domain.Principal, _ httprouter.Params) error {
	newsletters, err := s.desk.ListNewsletters(r.Context())
	if err != nil {
		return err
	}
	out := make([]newsletterJSON, 0, len(newsletters))
	for i := range newsletters {
		out = append(out, toNewsletterJSON(&newsletters[i]))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) apiCreateNewsletter(w http.ResponseWriter, r *http.Request, p *domain.Principal, _ httprouter.Params) error {
	var req newsletterRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	n, err := s.desk.CreateNewsletter(r.Context(), p, domain.NewsletterFields(req))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toNewsletterJSON(n))
	return nil
}

func (s *Server) apiGetNewsletter(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	view, err := s.desk.GetNewsletter(r.Context(), p, id)
	if err != nil {
		return err
	}
	articles := make([]articleJSON, 0, len(view.Articles))
	for i := range view.Articles {
		articles = append(articles, s.articleJSON(&view.Articles[i]))
	}
	writeJSON(w, http.StatusOK, struct {
		newsletterJSON
		Articles []articleJSON `json:"articles"`
	}{toNewsletterJSON(&view.Newsletter), articles})
	return nil
}

func (s *Server) apiEditNewsletter(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	var req newsletterRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	n, err := s.desk.EditNewsletter(r.Context(), p, id, domain.NewsletterFields(req))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toNewsletterJSON(n))
	return nil
}

func (s *Server) apiDeleteNewsletter(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error {
	id, err := idParam(params, "id")
	if err != nil {
		return err
	}
	if err := s.desk.DeleteNewsletter(r.Context(), p, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
