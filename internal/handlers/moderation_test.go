package handlers

import (
	"net/http"
	"time"

	"github.com/devlog-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) TestModerationRequiresModeratorRole() {
	t := suite.T()

	w := suite.request("GET", "/api/admin/posts", nil, suite.reader)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request("GET", "/api/admin/posts", nil, suite.moderator)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestModeratePostOnlyWhenPending() {
	t := suite.T()

	draft := suite.createPost(suite.author, "still-draft", models.PostStatusDraft)
	published := suite.createPost(suite.author, "already-live", models.PostStatusPublished)

	body := ModeratePostRequest{Action: "approve"}
	assert.Equal(t, http.StatusNotFound,
		suite.request("POST", "/api/admin/posts/"+draft.ID+"/moderate", body, suite.moderator).Code)
	assert.Equal(t, http.StatusNotFound,
		suite.request("POST", "/api/admin/posts/"+published.ID+"/moderate", body, suite.moderator).Code)
}

func (suite *HandlersTestSuite) TestApprovePostPublishesAndNotifies() {
	t := suite.T()

	pending := suite.createPost(suite.author, "under-review", models.PostStatusPending)

	w := suite.request("POST", "/api/admin/posts/"+pending.ID+"/moderate",
		ModeratePostRequest{Action: "approve"}, suite.moderator)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, suite.db.First(&stored, "id = ?", pending.ID).Error)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	assert.NotNil(t, stored.PublishedAt)

	var notifications int64
	suite.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", suite.author.ID, models.NotificationTypeModeration).
		Count(&notifications)
	assert.EqualValues(t, 1, notifications)

	var events int64
	suite.db.Model(&models.ModerationEvent{}).
		Where("moderator_id = ? AND action = ?", suite.moderator.ID, models.ModerationActionApprovePost).
		Count(&events)
	assert.EqualValues(t, 1, events)
}

func (suite *HandlersTestSuite) TestRejectPostKeepsItUnpublished() {
	t := suite.T()

	pending := suite.createPost(suite.author, "not-good-enough", models.PostStatusPending)

	w := suite.request("POST", "/api/admin/posts/"+pending.ID+"/moderate",
		ModeratePostRequest{Action: "reject", Reason: "needs sources"}, suite.moderator)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, suite.db.First(&stored, "id = ?", pending.ID).Error)
	assert.Equal(t, models.PostStatusRejected, stored.Status)
	assert.Nil(t, stored.PublishedAt)
}

func (suite *HandlersTestSuite) TestModerateUnknownActionRejected() {
	t := suite.T()

	pending := suite.createPost(suite.author, "weird-action", models.PostStatusPending)

	w := suite.request("POST", "/api/admin/posts/"+pending.ID+"/moderate",
		ModeratePostRequest{Action: "obliterate"}, suite.moderator)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) createReport(target *models.Post) *models.Report {
	report := &models.Report{
		ReporterID:     suite.reader.ID,
		ReportedPostID: &target.ID,
		Reason:         models.ReportReasonSpam,
		Status:         models.ReportStatusPending,
	}
	require.NoError(suite.T(), suite.db.Create(report).Error)
	return report
}

func (suite *HandlersTestSuite) TestCreateReportRequiresExactlyOneTarget() {
	t := suite.T()

	post := suite.createPost(suite.author, "reportable", models.PostStatusPublished)

	w := suite.request("POST", "/api/reports", CreateReportRequest{
		Reason: "spam",
	}, suite.reader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.request("POST", "/api/reports", CreateReportRequest{
		Reason:         "spam",
		ReportedPostID: &post.ID,
		ReportedUserID: &suite.author.ID,
	}, suite.reader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.request("POST", "/api/reports", CreateReportRequest{
		Reason:         "spam",
		ReportedPostID: &post.ID,
	}, suite.reader)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func (suite *HandlersTestSuite) TestResolveReportDismiss() {
	t := suite.T()

	post := suite.createPost(suite.author, "dismissed", models.PostStatusPublished)
	report := suite.createReport(post)

	w := suite.request("POST", "/api/admin/reports/"+report.ID+"/resolve",
		ResolveReportRequest{Action: "dismiss"}, suite.moderator)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Report
	require.NoError(t, suite.db.First(&stored, "id = ?", report.ID).Error)
	assert.Equal(t, models.ReportStatusDismissed, stored.Status)
	require.NotNil(t, stored.ModeratorID)
	assert.Equal(t, suite.moderator.ID, *stored.ModeratorID)
	assert.NotNil(t, stored.ResolvedAt)

	// The reporter hears back either way
	var notifications int64
	suite.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", suite.reader.ID, models.NotificationTypeReport).
		Count(&notifications)
	assert.EqualValues(t, 1, notifications)

	// Resolved reports cannot be resolved again
	w = suite.request("POST", "/api/admin/reports/"+report.ID+"/resolve",
		ResolveReportRequest{Action: "dismiss"}, suite.moderator)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestResolveReportBanRevokesSessions() {
	t := suite.T()

	post := suite.createPost(suite.author, "bannable", models.PostStatusPublished)
	report := suite.createReport(post)

	session := &models.AuthSession{
		TokenID:   "token-to-revoke",
		UserID:    suite.author.ID,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
	require.NoError(t, suite.db.Create(session).Error)

	w := suite.request("POST", "/api/admin/reports/"+report.ID+"/resolve",
		ResolveReportRequest{Action: "ban", Reason: "repeat spam"}, suite.moderator)
	require.Equal(t, http.StatusOK, w.Code)

	var banned models.User
	require.NoError(t, suite.db.First(&banned, "id = ?", suite.author.ID).Error)
	assert.True(t, banned.IsBanned)

	var stored models.AuthSession
	require.NoError(t, suite.db.First(&stored, "token_id = ?", "token-to-revoke").Error)
	assert.NotNil(t, stored.RevokedAt)
}

func (suite *HandlersTestSuite) TestResolveReportDeleteRemovesPost() {
	t := suite.T()

	post := suite.createPost(suite.author, "removed-by-report", models.PostStatusPublished)
	report := suite.createReport(post)

	w := suite.request("POST", "/api/admin/reports/"+report.ID+"/resolve",
		ResolveReportRequest{Action: "delete"}, suite.moderator)
	require.Equal(t, http.StatusOK, w.Code)

	var posts int64
	suite.db.Unscoped().Model(&models.Post{}).Where("id = ?", post.ID).Count(&posts)
	assert.EqualValues(t, 0, posts)
}

func (suite *HandlersTestSuite) TestResolveReportDeleteNeedsContentTarget() {
	t := suite.T()

	report := &models.Report{
		ReporterID:     suite.reader.ID,
		ReportedUserID: &suite.author.ID,
		Reason:         models.ReportReasonHarassment,
		Status:         models.ReportStatusPending,
	}
	require.NoError(t, suite.db.Create(report).Error)

	w := suite.request("POST", "/api/admin/reports/"+report.ID+"/resolve",
		ResolveReportRequest{Action: "delete"}, suite.moderator)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestAdminRoutesNeedAdminRole() {
	t := suite.T()

	w := suite.request("GET", "/api/admin/users", nil, suite.moderator)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request("GET", "/api/admin/users", nil, suite.admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestAdminToggleBanRevokesAndRestores() {
	t := suite.T()

	w := suite.request("POST", "/api/admin/users/"+suite.author.ID+"/ban", nil, suite.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["is_banned"])

	w = suite.request("POST", "/api/admin/users/"+suite.author.ID+"/ban", nil, suite.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["is_banned"])
}

func (suite *HandlersTestSuite) TestAdminCannotBanSelf() {
	t := suite.T()

	w := suite.request("POST", "/api/admin/users/"+suite.admin.ID+"/ban", nil, suite.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestAdminChangeRole() {
	t := suite.T()

	w := suite.request("PUT", "/api/admin/users/"+suite.reader.ID+"/role",
		ChangeRoleRequest{Role: "moderator"}, suite.admin)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, suite.db.First(&stored, "id = ?", suite.reader.ID).Error)
	assert.Equal(t, models.RoleModerator, stored.Role)

	w = suite.request("PUT", "/api/admin/users/"+suite.reader.ID+"/role",
		ChangeRoleRequest{Role: "emperor"}, suite.admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
