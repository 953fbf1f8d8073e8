package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/apperr"
	"civicx-be/feed"
	"civicx-be/geo"
	"civicx-be/lifecycle"
	"civicx-be/models"
	"civicx-be/repository"
)

// Geocoder resolves an address for coordinates. Best-effort: ok is false
// when the lookup failed and creation proceeds without an address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, bool)
}

type IssueService struct {
	issues   IssueStore
	votes    VoteStore
	users    UserStore
	events   EventPublisher
	geocoder Geocoder
	logger   *slog.Logger
}

func NewIssueService(issues IssueStore, votes VoteStore, users UserStore, events EventPublisher, geocoder Geocoder, logger *slog.Logger) *IssueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueService{issues: issues, votes: votes, users: users, events: events, geocoder: geocoder, logger: logger}
}

const maxAttachments = 3

type CreateIssueInput struct {
	Title       string
	Description string
	Category    models.IssueCategory
	Severity    int
	Urgency     int
	FileIDs     []string
	Address     string
	Latitude    *float64
	Longitude   *float64
	CreatedBy   primitive.ObjectID
}

// Create validates and persists a new issue, then announces it on the
// live feed.
func (s *IssueService) Create(ctx context.Context, in CreateIssueInput) (*models.Issue, error) {
	if in.Title == "" {
		return nil, apperr.New(apperr.KindValidation, "title is required")
	}
	if in.Latitude == nil || in.Longitude == nil {
		return nil, apperr.New(apperr.KindValidation, "issue location (lat and lng) is required")
	}
	if !models.ValidCategories[in.Category] {
		return nil, apperr.Newf(apperr.KindValidation, "invalid category %q", in.Category)
	}
	if len(in.FileIDs) > maxAttachments {
		return nil, apperr.Newf(apperr.KindValidation, "at most %d attachments are allowed", maxAttachments)
	}

	severity := in.Severity
	if severity == 0 {
		severity = 3
	}
	if severity < 1 || severity > 5 {
		return nil, apperr.New(apperr.KindValidation, "severity must be between 1 and 5")
	}
	urgency := in.Urgency
	if urgency == 0 {
		urgency = 60
	}
	if urgency < 0 || urgency > 100 {
		return nil, apperr.New(apperr.KindValidation, "urgency must be between 0 and 100")
	}

	address := in.Address
	if address == "" && s.geocoder != nil {
		if resolved, ok := s.geocoder.ReverseGeocode(ctx, *in.Latitude, *in.Longitude); ok {
			address = resolved
		}
	}

	fileIDs := in.FileIDs
	if fileIDs == nil {
		fileIDs = []string{}
	}

	now := time.Now()
	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Severity:    severity,
		Urgency:     urgency,
		Status:      models.StatusPending,
		CreatedBy:   in.CreatedBy,
		Votes:       0,
		FileIDs:     fileIDs,
		Address:     address,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.issues.Insert(ctx, issue); err != nil {
		return nil, err
	}

	s.publish(ctx, feed.Event{Kind: feed.EventIssueCreated, Issue: *issue})
	return issue, nil
}

func (s *IssueService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	return s.issues.FindByID(ctx, id)
}

// IssueView is an issue enriched for display.
type IssueView struct {
	models.Issue
	UserHasVoted bool         `json:"userHasVoted"`
	Creator      *CreatorInfo `json:"creator,omitempty"`
}

type CreatorInfo struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

type ListQuery struct {
	Category string
	Status   string
	Search   string
	Sort     string // "newest" or "oldest"
	Page     int
	Limit    int
	Viewer   *primitive.ObjectID
}

type ListResult struct {
	Issues      []IssueView `json:"issues"`
	TotalIssues int64       `json:"totalIssues"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
}

// List returns a filtered, paginated page of issues enriched with the
// viewer's vote state and creator names.
func (s *IssueService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filter := repository.IssueFilter{
		Category:    q.Category,
		Status:      q.Status,
		Search:      q.Search,
		OldestFirst: q.Sort == "oldest",
		Skip:        int64((page - 1) * limit),
		Limit:       int64(limit),
	}

	total, err := s.issues.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	issues, err := s.issues.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	views, err := s.enrich(ctx, issues, q.Viewer)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Issues:      views,
		TotalIssues: total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
	}, nil
}

// ByUser returns every issue the given user reported, newest first.
func (s *IssueService) ByUser(ctx context.Context, userID primitive.ObjectID) ([]IssueView, error) {
	issues, err := s.issues.Find(ctx, repository.IssueFilter{CreatedBy: &userID})
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, issues, &userID)
}

// View returns a single issue enriched for the given viewer.
func (s *IssueService) View(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*IssueView, error) {
	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, []models.Issue{*issue}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *IssueService) enrich(ctx context.Context, issues []models.Issue, viewer *primitive.ObjectID) ([]IssueView, error) {
	creatorIDs := make([]primitive.ObjectID, 0, len(issues))
	for _, issue := range issues {
		creatorIDs = append(creatorIDs, issue.CreatedBy)
	}
	creators, err := s.users.FindByIDs(ctx, creatorIDs)
	if err != nil {
		// Names are cosmetic; keep serving the issues.
		s.logger.Warn("could not load issue creators", "error", err)
		creators = map[primitive.ObjectID]models.User{}
	}

	views := make([]IssueView, 0, len(issues))
	for _, issue := range issues {
		view := IssueView{Issue: issue}
		if viewer != nil {
			voted, err := s.votes.Exists(ctx, issue.ID, *viewer)
			if err != nil {
				return nil, err
			}
			view.UserHasVoted = voted
		}
		if creator, ok := creators[issue.CreatedBy]; ok {
			view.Creator = &CreatorInfo{ID: creator.ID, Name: creator.Name}
		}
		views = append(views, view)
	}
	return views, nil
}

// Transition moves an issue through the lifecycle state machine. Only
// officials may transition; a same-status request is an idempotent no-op
// that fires no events.
func (s *IssueService) Transition(ctx context.Context, id primitive.ObjectID, patch lifecycle.TransitionPatch, actor *models.User) (*models.Issue, error) {
	if actor == nil || !lifecycle.Can(actor.Role, lifecycle.ActionTransition) {
		return nil, apperr.New(apperr.KindPermission, "only officials may change issue status")
	}

	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Validate(issue.Status, patch); err != nil {
		return nil, err
	}
	if patch.Status == issue.Status {
		return issue, nil
	}

	updated, err := s.issues.ApplyTransition(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if updated.Status == models.StatusResolved {
		s.publish(ctx, feed.Event{Kind: feed.EventIssueResolved, Issue: *updated})
	}
	return updated, nil
}

// Delete removes an issue and its votes. Allowed for the creator and for
// officials.
func (s *IssueService) Delete(ctx context.Context, id primitive.ObjectID, actor *models.User) error {
	if actor == nil {
		return apperr.New(apperr.KindPermission, "not authenticated")
	}

	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if issue.CreatedBy != actor.ID && !lifecycle.Can(actor.Role, lifecycle.ActionModerate) {
		return apperr.New(apperr.KindPermission, "you are not authorized to delete this issue")
	}

	if err := s.issues.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.votes.DeleteByIssue(ctx, id); err != nil {
		s.logger.Warn("could not delete votes for removed issue", "issue", id.Hex(), "error", err)
	}
	return nil
}

func (s *IssueService) publish(ctx context.Context, ev feed.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("could not publish feed event", "kind", ev.Kind, "issue", ev.Issue.ID.Hex(), "error", err)
	}
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type TopIssue struct {
	ID       primitive.ObjectID `json:"id"`
	Title    string             `json:"title"`
	Category string             `json:"category"`
	Votes    int64              `json:"votes"`
}

type Analytics struct {
	IssuesByCategory []repository.CategoryCount `json:"issuesByCategory"`
	Last7Days        []DayCount                 `json:"last7Days"`
	TopVotedIssues   []TopIssue                 `json:"topVotedIssues"`
	TotalIssues      int64                      `json:"totalIssues"`
	TotalVotes       int64                      `json:"totalVotes"`
	OpenIssues       int64                      `json:"openIssues"`
}

// Analytics aggregates issue and vote numbers for the dashboard. Top-voted
// counts come from the ledger, not the cached counter.
func (s *IssueService) Analytics(ctx context.Context) (*Analytics, error) {
	byCategory, err := s.issues.CountsByCategory(ctx)
	if err != nil {
		return nil, err
	}

	last7 := make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		count, err := s.issues.CountCreatedBetween(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		last7 = append(last7, DayCount{Date: day.Format("2006-01-02"), Count: count})
	}

	recent, err := s.issues.Find(ctx, repository.IssueFilter{Limit: 50})
	if err != nil {
		return nil, err
	}
	top := make([]TopIssue, 0, len(recent))
	for _, issue := range recent {
		count, err := s.votes.CountByIssue(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		top = append(top, TopIssue{ID: issue.ID, Title: issue.Title, Category: string(issue.Category), Votes: count})
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Votes > top[j].Votes })
	if len(top) > 5 {
		top = top[:5]
	}

	totalIssues, err := s.issues.Count(ctx, repository.IssueFilter{})
	if err != nil {
		return nil, err
	}
	totalVotes, err := s.votes.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	openIssues, err := s.issues.CountByStatus(ctx, models.StatusPending, models.StatusInProgress)
	if err != nil {
		return nil, err
	}

	return &Analytics{
		IssuesByCategory: byCategory,
		Last7Days:        last7,
		TopVotedIssues:   top,
		TotalIssues:      totalIssues,
		TotalVotes:       totalVotes,
		OpenIssues:       openIssues,
	}, nil
}

// Recent returns the newest issues that carry coordinates, for the map.
func (s *IssueService) Recent(ctx context.Context, limit int64) ([]models.Issue, error) {
	if limit <= 0 {
		limit = 19
	}
	return s.issues.Find(ctx, repository.IssueFilter{HasLocation: true, Limit: limit})
}

// NearbyIssue is an open issue annotated with distance and bearing from
// the worker's position.
type NearbyIssue struct {
	models.Issue
	DistanceMeters float64 `json:"distanceMeters"`
	Bearing        float64 `json:"bearing"`
}

// Nearby returns open located issues ordered by distance from the given
// position.
func (s *IssueService) Nearby(ctx context.Context, lat, lng float64, limit int) ([]NearbyIssue, error) {
	if limit <= 0 {
		limit = 20
	}

	issues, err := s.issues.Find(ctx, repository.IssueFilter{HasLocation: true, Limit: 200})
	if err != nil {
		return nil, err
	}

	nearby := make([]NearbyIssue, 0, len(issues))
	for _, issue := range issues {
		if issue.Status.Terminal() || issue.Latitude == nil || issue.Longitude == nil {
			continue
		}
		nearby = append(nearby, NearbyIssue{
			Issue:          issue,
			DistanceMeters: geo.DistanceMeters(lat, lng, *issue.Latitude, *issue.Longitude),
			Bearing:        geo.BearingDegrees(lat, lng, *issue.Latitude, *issue.Longitude),
		})
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceMeters < nearby[j].DistanceMeters })
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}
