package controllers

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/apperr"
	"civicx-be/enrich"
	"civicx-be/lifecycle"
	"civicx-be/models"
	"civicx-be/pkg/resp"
	"civicx-be/services"
)

type IssueController struct {
	issues   *services.IssueService
	votes    *services.VoteService
	enricher *enrich.Client
	logger   *slog.Logger
}

func NewIssueController(issues *services.IssueService, votes *services.VoteService, enricher *enrich.Client, logger *slog.Logger) *IssueController {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueController{issues: issues, votes: votes, enricher: enricher, logger: logger}
}

// actor reconstructs the acting user from the auth claims on the context.
func actor(c *gin.Context) (*models.User, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil, false
	}
	id, err := primitive.ObjectIDFromHex(userIDVal.(string))
	if err != nil {
		return nil, false
	}
	roleVal, _ := c.Get("role")
	role, _ := roleVal.(string)
	return &models.User{ID: id, Role: models.UserRole(role)}, true
}

// Create handles the creation of a new issue
func (ic *IssueController) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		resp.Unauthorized(c, "User not authenticated")
		return
	}

	var input struct {
		Title       string   `json:"title" binding:"required,max=200"`
		Description string   `json:"description" binding:"max=1000"`
		Category    string   `json:"category" binding:"required"`
		Severity    int      `json:"severity"`
		Urgency     int      `json:"urgency"`
		FileIDs     []string `json:"fileIds"`
		Address     string   `json:"address" binding:"max=200"`
		Latitude    *float64 `json:"lat"`
		Longitude   *float64 `json:"lng"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	issue, err := ic.issues.Create(c.Request.Context(), services.CreateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(input.Category),
		Severity:    input.Severity,
		Urgency:     input.Urgency,
		FileIDs:     input.FileIDs,
		Address:     input.Address,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		CreatedBy:   user.ID,
	})
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.Created(c, issue)
}

// Get retrieves an issue by its ID with vote information
func (ic *IssueController) Get(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		resp.BadRequest(c, "Invalid issue ID")
		return
	}

	var viewer *primitive.ObjectID
	if user, ok := actor(c); ok {
		viewer = &user.ID
	}

	view, err := ic.issues.View(c.Request.Context(), issueID, viewer)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, view)
}

// List retrieves issues with filtering, pagination, and vote state. A
// backend outage degrades to an empty page; the list feeds a best-effort
// UI view, not correctness-critical state.
func (ic *IssueController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	query := services.ListQuery{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Sort:     c.DefaultQuery("sort", "newest"),
		Page:     page,
		Limit:    limit,
	}
	if user, ok := actor(c); ok {
		query.Viewer = &user.ID
	}

	result, err := ic.issues.List(c.Request.Context(), query)
	if err != nil {
		if apperr.IsTransport(err) {
			ic.logger.Warn("issue list degraded to empty page", "error", err)
			resp.OK(c, services.ListResult{Issues: []services.IssueView{}, CurrentPage: page})
			return
		}
		resp.Error(c, err)
		return
	}

	resp.OK(c, result)
}

// Mine retrieves the issues reported by the authenticated user.
func (ic *IssueController) Mine(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		resp.Unauthorized(c, "User not authenticated")
		return
	}

	issues, err := ic.issues.ByUser(c.Request.Context(), user.ID)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, issues)
}

// UpdateStatus moves an issue through its lifecycle. Officials only.
func (ic *IssueController) UpdateStatus(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		resp.BadRequest(c, "Invalid issue ID")
		return
	}

	user, ok := actor(c)
	if !ok {
		resp.Unauthorized(c, "User not authenticated")
		return
	}

	var patch lifecycle.TransitionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	issue, err := ic.issues.Transition(c.Request.Context(), issueID, patch, user)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, issue)
}

// Delete removes an issue. Allowed for the creator and for officials.
func (ic *IssueController) Delete(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		resp.BadRequest(c, "Invalid issue ID")
		return
	}

	user, ok := actor(c)
	if !ok {
		resp.Unauthorized(c, "User not authenticated")
		return
	}

	if err := ic.issues.Delete(c.Request.Context(), issueID, user); err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, gin.H{"message": "Issue deleted successfully"})
}

// Vote toggles the user's vote on an issue.
func (ic *IssueController) Vote(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		resp.BadRequest(c, "Invalid issue ID")
		return
	}

	user, ok := actor(c)
	if !ok {
		resp.Unauthorized(c, "User not authenticated")
		return
	}

	result, err := ic.votes.Toggle(c.Request.Context(), issueID, user.ID, user.Role)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, result)
}

// Recount reconciles an issue's cached vote counter with the ledger.
func (ic *IssueController) Recount(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		resp.BadRequest(c, "Invalid issue ID")
		return
	}

	count, err := ic.votes.Recount(c.Request.Context(), issueID)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, gin.H{"votes": count})
}

// MyVotes returns the issue ids the user has voted for. This feeds the
// voted-state rendering, so a backend outage propagates instead of
// masquerading as "no votes".
func (ic *IssueController) MyVotes(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		resp.Unauthorized(c, "User not authenticated")
		return
	}

	ids, err := ic.votes.UserVotes(c.Request.Context(), user.ID)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, gin.H{"issueIds": ids})
}

// Analytics returns analytical data about issues
func (ic *IssueController) Analytics(c *gin.Context) {
	analytics, err := ic.issues.Analytics(c.Request.Context())
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, analytics)
}

// Recent returns the most recent issues that carry coordinates.
func (ic *IssueController) Recent(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "19"), 10, 64)

	issues, err := ic.issues.Recent(c.Request.Context(), limit)
	if err != nil {
		if apperr.IsTransport(err) {
			ic.logger.Warn("recent issues degraded to empty list", "error", err)
			resp.OK(c, []models.Issue{})
			return
		}
		resp.Error(c, err)
		return
	}

	resp.OK(c, issues)
}

// Nearby returns open issues ordered by distance from the caller's
// position, for the worker navigation view.
func (ic *IssueController) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		resp.BadRequest(c, "lat and lng query parameters are required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	issues, err := ic.issues.Nearby(c.Request.Context(), lat, lng, limit)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, issues)
}

// SuggestCategory forwards an image to the external classifier. The
// suggestion is optional; when the classifier is down the client simply
// picks a category by hand.
func (ic *IssueController) SuggestCategory(c *gin.Context) {
	var input struct {
		ImageBase64 string `json:"imageBase64" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	suggestion, ok := ic.enricher.SuggestCategory(c.Request.Context(), input.ImageBase64)
	if !ok {
		resp.OK(c, gin.H{"suggestion": nil})
		return
	}

	resp.OK(c, gin.H{"suggestion": suggestion})
}
