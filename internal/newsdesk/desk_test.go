package newsdesk

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/newsdesk/internal/database"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/feed"
	"github.com/TobiSchelling/newsdesk/internal/notify"
	"github.com/TobiSchelling/newsdesk/internal/role"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.ApprovalEvent
	err    error
	delay  time.Duration
}

func (r *recorder) NotifyApproved(ctx context.Context, ev notify.ApprovalEvent) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixture struct {
	desk   *Desk
	db     *database.DB
	opts   Options
	logger *slog.Logger
	notes  *recorder
	reader *domain.Principal
	author *domain.Principal
	other  *domain.Principal
	editor *domain.Principal
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "desk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, notes: &recorder{}}
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	var ticks atomic.Int64
	opts.Now = func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
	opts.BaseURL = "https://news.example.com/"
	f.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	f.opts = opts
	f.desk = New(db, notify.NewDispatcher(f.notes, 200*time.Millisecond, f.logger), opts, f.logger)

	ctx := context.Background()
	f.reader = f.user(t, ctx, "rita", role.Reader)
	f.author = f.user(t, ctx, "jon", role.Journalist)
	f.other = f.user(t, ctx, "jane", role.Journalist)
	f.editor = f.user(t, ctx, "ed", role.Editor)
	return f
}

func (f *fixture) user(t *testing.T, ctx context.Context, name string, r role.Role) *domain.Principal {
	t.Helper()
	p, err := f.desk.RegisterUser(ctx, name, name+"@example.com", "", r)
	require.NoError(t, err)
	return p
}

func (f *fixture) draft(t *testing.T, author *domain.Principal, publisher *int64) *domain.Article {
	t.Helper()
	a, err := f.desk.CreateArticle(context.Background(), author, domain.ArticleFields{
		Title: "Harbour reopens", Body: "Ships are **back**.", PublisherID: publisher,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) approved(t *testing.T, author *domain.Principal, publisher *int64) *domain.Article {
	t.Helper()
	a := f.draft(t, author, publisher)
	res, err := f.desk.ApproveArticle(context.Background(), f.editor, a.ID)
	require.NoError(t, err)
	return &res.Article
}

// interleavedStore runs between once, right after the first article load,
// so a competing write lands between a desk's read and its write.
type interleavedStore struct {
	*database.DB
	once    sync.Once
	between func()
}

func (s *interleavedStore) ArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	a, err := s.DB.ArticleByID(ctx, id)
	s.once.Do(s.between)
	return a, err
}

// interleaved returns a second desk over the fixture database whose first
// article load is followed by between.
func (f *fixture) interleaved(between func()) *Desk {
	store := &interleavedStore{DB: f.db, between: between}
	return New(store, notify.NewDispatcher(f.notes, 200*time.Millisecond, f.logger), f.opts, f.logger)
}

func ptr[T any](v T) *T { return &v }

func articleIDs(articles []domain.Article) []int64 {
	out := make([]int64, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func TestCreateArticleStartsAsDraftOwnedByCaller(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.draft(t, f.author, nil)

	require.Equal(t, domain.Draft, a.State)
	require.Equal(t, f.author.ID, a.AuthorID)
	require.NotZero(t, a.ID)

	stored, err := f.db.ArticleByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, "Harbour reopens", stored.Title)
}

func TestCreateArticleGate(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	fields := domain.ArticleFields{Title: "t", Body: "b"}

	for _, p := range []*domain.Principal{nil, f.reader, f.editor} {
		_, err := f.desk.CreateArticle(ctx, p, fields)
		require.ErrorIs(t, err, domain.ErrDenied)
	}

	_, err := f.desk.CreateArticle(ctx, f.author, domain.ArticleFields{Title: "", Body: "b"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.desk.CreateArticle(ctx, f.author, domain.ArticleFields{Title: "t", Body: "b", PublisherID: ptr(int64(404))})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestEditorApprovesDraft(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.draft(t, f.author, nil)

	res, err := f.desk.ApproveArticle(ctx, f.editor, a.ID)
	require.NoError(t, err)
	require.NoError(t, res.Warning)
	require.Equal(t, domain.Approved, res.Article.State)
	require.Equal(t, f.editor.ID, *res.Article.ApprovedBy)

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, stored.State)
	require.Equal(t, f.editor.ID, *stored.ApprovedBy)

	require.Equal(t, 1, f.notes.count())
	ev := f.notes.events[0]
	require.Equal(t, a.ID, ev.ArticleID)
	require.Equal(t, "jon", ev.Author)
	require.Equal(t, "https://news.example.com/article/1", ev.URL)
	require.Equal(t, notify.EventKey(a.ID, ev.ApprovedAt), ev.Key)
}

func TestApprovalRecipientsAreSubscribers(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	pub, err := f.desk.CreatePublisher(ctx, f.editor, "Harbour Daily", "")
	require.NoError(t, err)
	otto := f.user(t, ctx, "otto", role.Reader)
	f.user(t, ctx, "quiet", role.Reader)

	_, err = f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribePublisher, pub.ID)
	require.NoError(t, err)
	_, err = f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribeJournalist, f.author.ID)
	require.NoError(t, err)
	_, err = f.desk.ToggleSubscription(ctx, otto, domain.SubscribeJournalist, f.author.ID)
	require.NoError(t, err)

	f.approved(t, f.author, &pub.ID)

	require.Equal(t, 1, f.notes.count())
	ev := f.notes.events[0]
	require.Equal(t, []string{"otto@example.com", "rita@example.com"}, ev.Recipients)
	require.Equal(t, "Harbour Daily", ev.Publisher)
}

func TestApproveDeclineApprove(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	second := f.user(t, ctx, "eve", role.Editor)
	a := f.draft(t, f.author, nil)

	_, err := f.desk.ApproveArticle(ctx, f.editor, a.ID)
	require.NoError(t, err)
	declined, err := f.desk.DeclineArticle(ctx, f.editor, a.ID, "retracted")
	require.NoError(t, err)
	require.Equal(t, domain.Declined, declined.State)
	require.Nil(t, declined.ApprovedBy)

	_, err = f.desk.ApproveArticle(ctx, second, a.ID)
	require.NoError(t, err)

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, stored.State)
	require.Equal(t, second.ID, *stored.ApprovedBy)
	require.Nil(t, stored.DeclinedBy)
	require.Empty(t, stored.DeclinedReason)
}

func TestReviewRequiresEditor(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.draft(t, f.author, nil)

	for _, p := range []*domain.Principal{nil, f.reader, f.author, f.other} {
		_, err := f.desk.ApproveArticle(ctx, p, a.ID)
		require.ErrorIs(t, err, domain.ErrDenied)
		_, err = f.desk.DeclineArticle(ctx, p, a.ID, "")
		require.ErrorIs(t, err, domain.ErrDenied)
	}
	require.Zero(t, f.notes.count())

	_, err := f.desk.ApproveArticle(ctx, f.editor, 999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJournalistCannotDeleteOthersApprovedArticle(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.approved(t, f.author, nil)

	err := f.desk.DeleteArticle(ctx, f.other, a.ID)
	require.ErrorIs(t, err, domain.ErrDenied)
	_, err = f.desk.EditArticle(ctx, f.other, a.ID, domain.ArticlePatch{Title: ptr("mine now")})
	require.ErrorIs(t, err, domain.ErrDenied)

	_, err = f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
}

func TestDraftsDoNotLeak(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.draft(t, f.author, nil)

	_, err := f.desk.GetArticle(ctx, nil, a.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.desk.GetArticle(ctx, f.reader, a.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.desk.GetArticle(ctx, f.other, a.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	err = f.desk.DeleteArticle(ctx, f.other, a.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.desk.GetArticle(ctx, f.author, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	_, err = f.desk.GetArticle(ctx, f.editor, a.ID)
	require.NoError(t, err)
}

func TestAuthorAndEditorMayEditAndDelete(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.approved(t, f.author, nil)

	edited, err := f.desk.EditArticle(ctx, f.author, a.ID, domain.ArticlePatch{Body: ptr("Updated body.")})
	require.NoError(t, err)
	require.Equal(t, "Updated body.", edited.Body)
	require.Equal(t, domain.Approved, edited.State, "edit leaves approval untouched by default")

	edited, err = f.desk.EditArticle(ctx, f.editor, a.ID, domain.ArticlePatch{Title: ptr("Editor title")})
	require.NoError(t, err)
	require.Equal(t, "Editor title", edited.Title)

	require.NoError(t, f.desk.DeleteArticle(ctx, f.editor, a.ID))
	_, err = f.desk.GetArticle(ctx, f.editor, a.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	own := f.draft(t, f.author, nil)
	require.NoError(t, f.desk.DeleteArticle(ctx, f.author, own.ID))
}

func TestRereviewOnEdit(t *testing.T) {
	f := newFixture(t, Options{RereviewOnEdit: true})
	ctx := context.Background()
	a := f.approved(t, f.author, nil)

	edited, err := f.desk.EditArticle(ctx, f.author, a.ID, domain.ArticlePatch{Body: ptr("Changed.")})
	require.NoError(t, err)
	require.Equal(t, domain.Draft, edited.State)
	require.Nil(t, edited.ApprovedBy)

	global, err := f.desk.ListArticles(ctx, nil, feed.All, 0)
	require.NoError(t, err)
	require.Empty(t, global)
}

func TestCompareAndSetDetectsLostRace(t *testing.T) {
	f := newFixture(t, Options{CompareAndSet: true})
	ctx := context.Background()
	a := f.draft(t, f.author, nil)

	// Simulate a decline that committed after this approval loaded the draft.
	stale := *a
	declined := *a
	declined.State = domain.Declined
	declined.DeclinedBy = &f.editor.ID
	require.NoError(t, f.db.UpdateArticleLifecycle(ctx, declined, nil))

	stale.State = domain.Approved
	stale.ApprovedBy = &f.editor.ID
	err := f.db.UpdateArticleLifecycle(ctx, stale, f.desk.expected(domain.Draft))
	require.ErrorIs(t, err, domain.ErrConflict)

	// Through the desk the reload sees the current state and succeeds.
	res, err := f.desk.ApproveArticle(ctx, f.editor, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, res.Article.State)
}

func TestApprovalAfterCompetingApprovalSucceeds(t *testing.T) {
	f := newFixture(t, Options{CompareAndSet: true})
	ctx := context.Background()
	second := f.user(t, ctx, "eve", role.Editor)
	a := f.draft(t, f.author, nil)

	desk := f.interleaved(func() {
		_, err := f.desk.ApproveArticle(ctx, second, a.ID)
		require.NoError(t, err)
	})
	res, err := desk.ApproveArticle(ctx, f.editor, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, res.Article.State)

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, stored.State)
	require.Equal(t, f.editor.ID, *stored.ApprovedBy)
}

func TestDeclineAfterCompetingApprovalConflicts(t *testing.T) {
	f := newFixture(t, Options{CompareAndSet: true})
	ctx := context.Background()
	second := f.user(t, ctx, "eve", role.Editor)
	a := f.draft(t, f.author, nil)

	desk := f.interleaved(func() {
		_, err := f.desk.ApproveArticle(ctx, second, a.ID)
		require.NoError(t, err)
	})
	_, err := desk.DeclineArticle(ctx, f.editor, a.ID, "off topic")
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, stored.State)
	require.Equal(t, second.ID, *stored.ApprovedBy)
	require.Empty(t, stored.DeclinedReason)
}

func TestRereviewEditAfterCompetingDeclineWritesNothing(t *testing.T) {
	f := newFixture(t, Options{RereviewOnEdit: true, CompareAndSet: true})
	ctx := context.Background()
	a := f.approved(t, f.author, nil)

	desk := f.interleaved(func() {
		_, err := f.desk.DeclineArticle(ctx, f.editor, a.ID, "needs sources")
		require.NoError(t, err)
	})
	_, err := desk.EditArticle(ctx, f.author, a.ID, domain.ArticlePatch{Body: ptr("Changed.")})
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.Body, stored.Body)
	require.Equal(t, domain.Declined, stored.State)
	require.Equal(t, "needs sources", stored.DeclinedReason)
}

func TestConcurrentApprovalsBothSucceed(t *testing.T) {
	f := newFixture(t, Options{CompareAndSet: true})
	ctx := context.Background()
	second := f.user(t, ctx, "eve", role.Editor)
	a := f.draft(t, f.author, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, ed := range []*domain.Principal{f.editor, second} {
		wg.Add(1)
		go func(i int, ed *domain.Principal) {
			defer wg.Done()
			_, errs[i] = f.desk.ApproveArticle(ctx, ed, a.ID)
		}(i, ed)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, stored.State)
	require.Contains(t, []int64{f.editor.ID, second.ID}, *stored.ApprovedBy)
	require.Nil(t, stored.DeclinedBy)
}

func TestNotificationFailureKeepsApproval(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.notes.err = errors.New("mail relay down")
	a := f.draft(t, f.author, nil)

	res, err := f.desk.ApproveArticle(ctx, f.editor, a.ID)
	require.NoError(t, err)
	require.Error(t, res.Warning)
	require.Contains(t, res.Warning.Error(), "mail relay down")

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, stored.State)
}

func TestNotificationTimeoutKeepsApproval(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.notes.delay = 5 * time.Second
	a := f.draft(t, f.author, nil)

	start := time.Now()
	res, err := f.desk.ApproveArticle(ctx, f.editor, a.ID)
	require.NoError(t, err)
	require.ErrorIs(t, res.Warning, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 3*time.Second)

	stored, err := f.db.ArticleByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Approved, stored.State)
}

func TestSubscribedFeedScenario(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	pub, err := f.desk.CreatePublisher(ctx, f.editor, "P", "")
	require.NoError(t, err)

	a1 := f.approved(t, f.other, &pub.ID)
	a2 := f.approved(t, f.author, nil)
	f.draft(t, f.author, &pub.ID)

	empty, err := f.desk.ListArticles(ctx, f.reader, feed.Subscribed, 0)
	require.NoError(t, err)
	require.Empty(t, empty, "no subscriptions means an empty feed")

	on, err := f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribePublisher, pub.ID)
	require.NoError(t, err)
	require.True(t, on)

	got, err := f.desk.ListArticles(ctx, f.reader, feed.Subscribed, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{a1.ID}, articleIDs(got))

	_, err = f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribeJournalist, f.author.ID)
	require.NoError(t, err)

	got, err = f.desk.ListArticles(ctx, f.reader, feed.Subscribed, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{a1.ID, a2.ID}, articleIDs(got))

	global, err := f.desk.ListArticles(ctx, f.reader, feed.All, 0)
	require.NoError(t, err)
	require.Subset(t, articleIDs(global), articleIDs(got))
}

func TestSubscriptionRules(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.desk.ToggleSubscription(ctx, f.author, domain.SubscribeJournalist, f.other.ID)
	require.ErrorIs(t, err, domain.ErrDenied)
	_, err = f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribeJournalist, f.editor.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribePublisher, 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReaderBecomingJournalistLosesSubscriptions(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	pub, err := f.desk.CreatePublisher(ctx, f.editor, "P", "")
	require.NoError(t, err)
	_, err = f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribePublisher, pub.ID)
	require.NoError(t, err)
	_, err = f.desk.ToggleSubscription(ctx, f.reader, domain.SubscribeJournalist, f.author.ID)
	require.NoError(t, err)

	updated, err := f.desk.ChangeRole(ctx, f.reader, role.Journalist)
	require.NoError(t, err)
	require.Equal(t, role.Journalist, updated.Role)

	subs, err := f.db.SubscriptionsOf(ctx, f.reader.ID)
	require.NoError(t, err)
	require.Empty(t, subs.PublisherIDs)
	require.Empty(t, subs.JournalistIDs)

	_, err = f.desk.ChangeRole(ctx, nil, role.Editor)
	require.ErrorIs(t, err, domain.ErrDenied)
	_, err = f.desk.ChangeRole(ctx, updated, "admin")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestWorkspaceAndPendingListings(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	mine := f.draft(t, f.author, nil)
	theirs := f.draft(t, f.other, nil)
	public := f.approved(t, f.other, nil)

	ws, err := f.desk.ListArticles(ctx, f.author, feed.Workspace, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{mine.ID, public.ID}, articleIDs(ws))

	pending, err := f.desk.ListArticles(ctx, f.editor, feed.Pending, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{mine.ID, theirs.ID}, articleIDs(pending))

	pending, err = f.desk.ListArticles(ctx, f.author, feed.Pending, 0)
	require.NoError(t, err)
	require.Empty(t, pending)

	own, err := f.desk.ListArticles(ctx, f.author, feed.OwnDrafts, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{mine.ID}, articleIDs(own))
}

func TestPublisherManagement(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.desk.CreatePublisher(ctx, f.author, "Mine", "")
	require.ErrorIs(t, err, domain.ErrDenied)
	_, err = f.desk.CreatePublisher(ctx, f.editor, "  ", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	pub, err := f.desk.CreatePublisher(ctx, f.editor, "Harbour Daily", "Ports and ships")
	require.NoError(t, err)
	require.Equal(t, []int64{f.editor.ID}, pub.EditorIDs)

	updated, err := f.desk.AddPublisherJournalist(ctx, f.editor, pub.ID, f.author.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{f.author.ID}, updated.JournalistIDs)

	_, err = f.desk.AddPublisherJournalist(ctx, f.editor, pub.ID, f.reader.ID)
	require.ErrorIs(t, err, domain.ErrValidation)

	a := f.approved(t, f.author, &pub.ID)
	require.NoError(t, f.desk.DeletePublisher(ctx, f.editor, pub.ID))

	got, err := f.desk.GetArticle(ctx, nil, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.PublisherID)

	list, err := f.desk.ListPublishers(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestNewsletters(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a1 := f.approved(t, f.author, nil)
	a2 := f.draft(t, f.author, nil)
	hidden := f.draft(t, f.other, nil)

	_, err := f.desk.CreateNewsletter(ctx, f.reader, domain.NewsletterFields{Title: "x"})
	require.ErrorIs(t, err, domain.ErrDenied)
	_, err = f.desk.CreateNewsletter(ctx, f.author, domain.NewsletterFields{Title: "x", ArticleIDs: []int64{hidden.ID}})
	require.ErrorIs(t, err, domain.ErrValidation)

	n, err := f.desk.CreateNewsletter(ctx, f.author, domain.NewsletterFields{
		Title: "Weekly", ArticleIDs: []int64{a2.ID, a1.ID, a1.ID},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{a2.ID, a1.ID}, n.ArticleIDs)

	view, err := f.desk.GetNewsletter(ctx, nil, n.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{a1.ID}, articleIDs(view.Articles), "only approved articles are shown")

	_, err = f.desk.EditNewsletter(ctx, f.other, n.ID, domain.NewsletterFields{Title: "Hijacked"})
	require.ErrorIs(t, err, domain.ErrDenied)
	edited, err := f.desk.EditNewsletter(ctx, f.editor, n.ID, domain.NewsletterFields{Title: "Edited", ArticleIDs: []int64{a1.ID}})
	require.NoError(t, err)
	require.Equal(t, "Edited", edited.Title)

	list, err := f.desk.ListNewsletters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, f.desk.DeleteNewsletter(ctx, f.other, n.ID), domain.ErrDenied)
	require.NoError(t, f.desk.DeleteNewsletter(ctx, f.author, n.ID))
	_, err = f.desk.GetNewsletter(ctx, nil, n.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterUser(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.desk.RegisterUser(ctx, "Bad Name", "", "", role.Reader)
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.desk.RegisterUser(ctx, "newbie", "not-an-email", "", role.Reader)
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.desk.RegisterUser(ctx, "newbie", "", "", "admin")
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.desk.RegisterUser(ctx, "rita", "", "", role.Reader)
	require.ErrorIs(t, err, domain.ErrValidation)

	p, err := f.desk.PrincipalByUsername(ctx, " JON ")
	require.NoError(t, err)
	require.Equal(t, f.author.ID, p.ID)

	users, err := f.desk.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 4)
}

func TestHasSource(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, err := f.desk.CreateArticle(ctx, f.author, domain.ArticleFields{
		Title: "t", Body: "b", SourceURL: ptr("https://wire.example.com/1"),
	})
	require.NoError(t, err)

	ok, err := f.desk.HasSource(ctx, "https://wire.example.com/1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.desk.HasSource(ctx, "https://wire.example.com/2")
	require.NoError(t, err)
	require.False(t, ok)
}
