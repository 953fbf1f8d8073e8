package services

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/apperr"
	"civicx-be/feed"
	"civicx-be/lifecycle"
	"civicx-be/models"
)

func strptr(s string) *string { return &s }

func floatptr(f float64) *float64 { return &f }

func newTestIssueService() (*IssueService, *fakeIssueStore, *fakeVoteStore, *fakeUserStore, *capturePublisher) {
	issues := newFakeIssueStore()
	votes := newFakeVoteStore()
	users := newFakeUserStore()
	events := &capturePublisher{}
	svc := NewIssueService(issues, votes, users, events, nil, nil)
	return svc, issues, votes, users, events
}

func official() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Name: "Inspector", Role: models.RoleOfficial}
}

func TestCreateIssue(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, events := newTestIssueService()

	issue, err := svc.Create(ctx, CreateIssueInput{
		Title:     "Pothole on 5th",
		Category:  models.Pothole,
		Latitude:  floatptr(12.9),
		Longitude: floatptr(77.6),
		CreatedBy: primitive.NewObjectID(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if issue.Status != models.StatusPending {
		t.Errorf("status = %q, want pending", issue.Status)
	}
	if issue.Votes != 0 {
		t.Errorf("votes = %d, want 0", issue.Votes)
	}
	if issue.Severity != 3 || issue.Urgency != 60 {
		t.Errorf("defaults = severity %d urgency %d, want 3 and 60", issue.Severity, issue.Urgency)
	}

	kinds := events.kinds()
	if len(kinds) != 1 || kinds[0] != feed.EventIssueCreated {
		t.Errorf("published events = %v, want one issue.created", kinds)
	}
}

func TestCreateIssueValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newTestIssueService()

	cases := []struct {
		name string
		in   CreateIssueInput
	}{
		{name: "missing title", in: CreateIssueInput{Category: models.Pothole, Latitude: floatptr(1), Longitude: floatptr(2)}},
		{name: "missing coordinates", in: CreateIssueInput{Title: "x", Category: models.Pothole}},
		{name: "half coordinates", in: CreateIssueInput{Title: "x", Category: models.Pothole, Latitude: floatptr(1)}},
		{name: "bad category", in: CreateIssueInput{Title: "x", Category: "Sinkhole", Latitude: floatptr(1), Longitude: floatptr(2)}},
		{name: "severity out of range", in: CreateIssueInput{Title: "x", Category: models.Pothole, Severity: 9, Latitude: floatptr(1), Longitude: floatptr(2)}},
		{name: "urgency out of range", in: CreateIssueInput{Title: "x", Category: models.Pothole, Urgency: 150, Latitude: floatptr(1), Longitude: floatptr(2)}},
		{name: "too many attachments", in: CreateIssueInput{Title: "x", Category: models.Pothole, FileIDs: []string{"a", "b", "c", "d"}, Latitude: floatptr(1), Longitude: floatptr(2)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.in); !apperr.IsValidation(err) {
				t.Fatalf("Create = %v, want validation error", err)
			}
		})
	}
}

func TestTransitionHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, issues, _, _, events := newTestIssueService()
	actor := official()

	issueID := seedIssue(t, issues, 0)

	inProgress, err := svc.Transition(ctx, issueID, lifecycle.TransitionPatch{
		Status:       models.StatusInProgress,
		OfficialNote: strptr("ETA 3 days"),
	}, actor)
	if err != nil {
		t.Fatalf("transition to in_progress failed: %v", err)
	}
	if inProgress.Status != models.StatusInProgress {
		t.Errorf("status = %q, want in_progress", inProgress.Status)
	}
	if inProgress.OfficialNote == nil || *inProgress.OfficialNote != "ETA 3 days" {
		t.Errorf("officialNote = %v, want ETA 3 days", inProgress.OfficialNote)
	}

	resolved, err := svc.Transition(ctx, issueID, lifecycle.TransitionPatch{
		Status:             models.StatusResolved,
		ConfirmationFileID: strptr("f1"),
	}, actor)
	if err != nil {
		t.Fatalf("transition to resolved failed: %v", err)
	}
	if resolved.Status != models.StatusResolved {
		t.Errorf("status = %q, want resolved", resolved.Status)
	}
	if resolved.ConfirmationFileID == nil || *resolved.ConfirmationFileID != "f1" {
		t.Errorf("confirmationFileId = %v, want f1", resolved.ConfirmationFileID)
	}

	kinds := events.kinds()
	if len(kinds) != 1 || kinds[0] != feed.EventIssueResolved {
		t.Errorf("published events = %v, want one issue.resolved", kinds)
	}
}

func TestTransitionResolvedWithoutProofLeavesIssueUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, issues, _, _, _ := newTestIssueService()

	issueID := seedIssue(t, issues, 0)

	_, err := svc.Transition(ctx, issueID, lifecycle.TransitionPatch{Status: models.StatusResolved}, official())
	if !apperr.IsMissingAttachment(err) {
		t.Fatalf("Transition = %v, want missing attachment error", err)
	}

	issue, _ := issues.FindByID(ctx, issueID)
	if issue.Status != models.StatusPending {
		t.Fatalf("stored status = %q, want unchanged pending", issue.Status)
	}
}

func TestTransitionNeverMovesBackward(t *testing.T) {
	ctx := context.Background()
	svc, issues, _, _, _ := newTestIssueService()
	actor := official()

	issueID := seedIssue(t, issues, 0)
	if _, err := svc.Transition(ctx, issueID, lifecycle.TransitionPatch{
		Status:             models.StatusResolved,
		ConfirmationFileID: strptr("f1"),
	}, actor); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	for _, target := range []models.IssueStatus{models.StatusPending, models.StatusInProgress, models.StatusRejected} {
		patch := lifecycle.TransitionPatch{Status: target}
		if _, err := svc.Transition(ctx, issueID, patch, actor); !apperr.IsInvalidTransition(err) {
			t.Errorf("transition resolved -> %q = %v, want invalid transition", target, err)
		}
	}
}

func TestTransitionSameStateIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, issues, _, _, events := newTestIssueService()
	actor := official()

	issueID := seedIssue(t, issues, 0)
	if _, err := svc.Transition(ctx, issueID, lifecycle.TransitionPatch{
		Status:             models.StatusResolved,
		ConfirmationFileID: strptr("f1"),
	}, actor); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	before := len(events.kinds())

	issue, err := svc.Transition(ctx, issueID, lifecycle.TransitionPatch{Status: models.StatusResolved}, actor)
	if err != nil {
		t.Fatalf("same-state transition = %v, want no-op", err)
	}
	if issue.Status != models.StatusResolved {
		t.Errorf("status = %q, want resolved", issue.Status)
	}
	if got := len(events.kinds()); got != before {
		t.Errorf("no-op transition re-fired events: %d -> %d", before, got)
	}
}

func TestTransitionRequiresOfficial(t *testing.T) {
	ctx := context.Background()
	svc, issues, _, _, _ := newTestIssueService()

	issueID := seedIssue(t, issues, 0)
	citizen := &models.User{ID: primitive.NewObjectID(), Role: models.RoleCitizen}

	_, err := svc.Transition(ctx, issueID, lifecycle.TransitionPatch{Status: models.StatusInProgress}, citizen)
	if !apperr.IsPermission(err) {
		t.Fatalf("citizen Transition = %v, want permission error", err)
	}
}

func TestDeleteCascadesVotes(t *testing.T) {
	ctx := context.Background()
	svc, issues, votes, _, _ := newTestIssueService()

	creator := &models.User{ID: primitive.NewObjectID(), Role: models.RoleCitizen}
	issue, err := svc.Create(ctx, CreateIssueInput{
		Title: "Garbage pileup", Category: models.Garbage,
		Latitude: floatptr(12.9), Longitude: floatptr(77.6), CreatedBy: creator.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := votes.Insert(ctx, &models.Vote{ID: primitive.NewObjectID(), Issue: issue.ID, User: primitive.NewObjectID(), VotedAt: time.Now()}); err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	if err := svc.Delete(ctx, issue.ID, creator); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := issues.FindByID(ctx, issue.ID); !apperr.IsNotFound(err) {
		t.Errorf("issue still present after delete: %v", err)
	}
	left, _ := votes.CountByIssue(ctx, issue.ID)
	if left != 0 {
		t.Errorf("%d votes left after delete, want 0", left)
	}
}

func TestDeleteRequiresCreatorOrOfficial(t *testing.T) {
	ctx := context.Background()
	svc, issues, _, _, _ := newTestIssueService()

	issueID := seedIssue(t, issues, 0)
	stranger := &models.User{ID: primitive.NewObjectID(), Role: models.RoleCitizen}

	if err := svc.Delete(ctx, issueID, stranger); !apperr.IsPermission(err) {
		t.Fatalf("stranger Delete = %v, want permission error", err)
	}
	if err := svc.Delete(ctx, issueID, official()); err != nil {
		t.Fatalf("official Delete = %v, want success", err)
	}
}

func TestListPaginatesAndMarksVotes(t *testing.T) {
	ctx := context.Background()
	svc, issues, votes, users, _ := newTestIssueService()

	creator := models.User{ID: primitive.NewObjectID(), Name: "Asha", Role: models.RoleCitizen}
	if err := users.Insert(ctx, &creator); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	viewer := primitive.NewObjectID()
	var firstID primitive.ObjectID
	for i := 0; i < 15; i++ {
		issue := &models.Issue{
			ID:        primitive.NewObjectID(),
			Title:     "Streetlight out",
			Category:  models.Streetlight,
			Status:    models.StatusPending,
			CreatedBy: creator.ID,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := issues.Insert(ctx, issue); err != nil {
			t.Fatalf("seed issue: %v", err)
		}
		if i == 14 {
			firstID = issue.ID // newest
		}
	}
	if err := votes.Insert(ctx, &models.Vote{ID: primitive.NewObjectID(), Issue: firstID, User: viewer, VotedAt: time.Now()}); err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	res, err := svc.List(ctx, ListQuery{Page: 1, Limit: 10, Viewer: &viewer})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if res.TotalIssues != 15 || res.TotalPages != 2 || len(res.Issues) != 10 {
		t.Fatalf("pagination = total %d pages %d len %d, want 15/2/10", res.TotalIssues, res.TotalPages, len(res.Issues))
	}
	newest := res.Issues[0]
	if newest.ID != firstID {
		t.Errorf("first issue is not the newest")
	}
	if !newest.UserHasVoted {
		t.Errorf("viewer's vote not marked on newest issue")
	}
	if newest.Creator == nil || newest.Creator.Name != "Asha" {
		t.Errorf("creator = %+v, want Asha", newest.Creator)
	}
}

func TestNearbyOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	svc, issues, _, _, _ := newTestIssueService()

	near := &models.Issue{
		ID: primitive.NewObjectID(), Title: "near", Category: models.Road,
		Status: models.StatusPending, CreatedBy: primitive.NewObjectID(),
		Latitude: floatptr(12.91), Longitude: floatptr(77.61), CreatedAt: time.Now(),
	}
	far := &models.Issue{
		ID: primitive.NewObjectID(), Title: "far", Category: models.Road,
		Status: models.StatusPending, CreatedBy: primitive.NewObjectID(),
		Latitude: floatptr(13.2), Longitude: floatptr(77.7), CreatedAt: time.Now(),
	}
	done := &models.Issue{
		ID: primitive.NewObjectID(), Title: "done", Category: models.Road,
		Status: models.StatusResolved, CreatedBy: primitive.NewObjectID(),
		Latitude: floatptr(12.9), Longitude: floatptr(77.6), CreatedAt: time.Now(),
	}
	for _, issue := range []*models.Issue{far, near, done} {
		if err := issues.Insert(ctx, issue); err != nil {
			t.Fatalf("seed issue: %v", err)
		}
	}

	got, err := svc.Nearby(ctx, 12.9, 77.6, 10)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Nearby returned %d issues, want 2 (terminal excluded)", len(got))
	}
	if got[0].Title != "near" || got[1].Title != "far" {
		t.Errorf("order = [%s %s], want [near far]", got[0].Title, got[1].Title)
	}
	if got[0].DistanceMeters >= got[1].DistanceMeters {
		t.Errorf("distances not ascending: %f >= %f", got[0].DistanceMeters, got[1].DistanceMeters)
	}
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	svc, issues, votes, _, _ := newTestIssueService()

	popular := seedIssue(t, issues, 0)
	seedIssue(t, issues, 0)
	resolvedID := seedIssue(t, issues, 0)
	if _, err := issues.ApplyTransition(ctx, resolvedID, lifecycle.TransitionPatch{
		Status: models.StatusResolved, ConfirmationFileID: strptr("f1"),
	}); err != nil {
		t.Fatalf("seed transition: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := votes.Insert(ctx, &models.Vote{ID: primitive.NewObjectID(), Issue: popular, User: primitive.NewObjectID(), VotedAt: time.Now()}); err != nil {
			t.Fatalf("seed vote: %v", err)
		}
	}

	got, err := svc.Analytics(ctx)
	if err != nil {
		t.Fatalf("Analytics failed: %v", err)
	}
	if got.TotalIssues != 3 || got.TotalVotes != 2 || got.OpenIssues != 2 {
		t.Fatalf("totals = issues %d votes %d open %d, want 3/2/2", got.TotalIssues, got.TotalVotes, got.OpenIssues)
	}
	if len(got.Last7Days) != 7 {
		t.Errorf("Last7Days has %d buckets, want 7", len(got.Last7Days))
	}
	if len(got.TopVotedIssues) == 0 || got.TopVotedIssues[0].ID != popular {
		t.Errorf("top voted issue is not the popular one")
	}
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	issues := newFakeIssueStore()
	votes := newFakeVoteStore()
	users := newFakeUserStore()
	svc := NewLeaderboardService(issues, votes, users)

	prolific := models.User{ID: primitive.NewObjectID(), Name: "Asha", Role: models.RoleCitizen}
	casual := models.User{ID: primitive.NewObjectID(), Name: "Ravi", Role: models.RoleCitizen}
	for _, u := range []models.User{prolific, casual} {
		user := u
		if err := users.Insert(ctx, &user); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		issue := &models.Issue{
			ID: primitive.NewObjectID(), Title: "report", Category: models.Other,
			Status: models.StatusPending, CreatedBy: prolific.ID, CreatedAt: time.Now(),
		}
		if err := issues.Insert(ctx, issue); err != nil {
			t.Fatalf("seed issue: %v", err)
		}
	}
	single := &models.Issue{
		ID: primitive.NewObjectID(), Title: "report", Category: models.Other,
		Status: models.StatusPending, CreatedBy: casual.ID, CreatedAt: time.Now(),
	}
	if err := issues.Insert(ctx, single); err != nil {
		t.Fatalf("seed issue: %v", err)
	}

	top, err := svc.Top(ctx, 10)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("leaderboard has %d entries, want 2", len(top))
	}
	if top[0].Name != "Asha" || top[0].IssuesCount != 3 {
		t.Errorf("leader = %+v, want Asha with 3 issues", top[0])
	}
	if top[0].Points <= top[1].Points {
		t.Errorf("points not descending: %d <= %d", top[0].Points, top[1].Points)
	}
}
