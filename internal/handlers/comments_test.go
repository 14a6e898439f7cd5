package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) TestCreateCommentIncrementsCount() {
	t := suite.T()

	post := suite.createPost(suite.author, "commentable", models.PostStatusPublished)

	w := suite.request("POST", "/api/posts/"+post.ID+"/comments",
		map[string]string{"content": "great write-up"}, suite.reader)
	require.Equal(t, http.StatusCreated, w.Code)

	var stored models.Post
	require.NoError(t, suite.db.First(&stored, "id = ?", post.ID).Error)
	assert.Equal(t, 1, stored.CommentCount)

	// The post author gets a notification
	var notifications int64
	suite.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", suite.author.ID, models.NotificationTypeComment).
		Count(&notifications)
	assert.EqualValues(t, 1, notifications)
}

func (suite *HandlersTestSuite) TestCommentsOnlyOnPublishedPosts() {
	t := suite.T()

	draft := suite.createPost(suite.author, "no-comments", models.PostStatusDraft)

	w := suite.request("POST", "/api/posts/"+draft.ID+"/comments",
		map[string]string{"content": "early bird"}, suite.reader)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestReplyMustShareParentPost() {
	t := suite.T()

	postA := suite.createPost(suite.author, "thread-a", models.PostStatusPublished)
	postB := suite.createPost(suite.author, "thread-b", models.PostStatusPublished)

	parent := &models.Comment{PostID: postA.ID, AuthorID: suite.reader.ID, Content: "root"}
	require.NoError(t, suite.db.Create(parent).Error)

	w := suite.request("POST", "/api/posts/"+postB.ID+"/comments",
		map[string]string{"content": "cross-thread reply", "parent_id": parent.ID}, suite.reader)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestDeleteCommentRemovesSubtree() {
	t := suite.T()

	post := suite.createPost(suite.author, "pruned", models.PostStatusPublished)

	root := &models.Comment{PostID: post.ID, AuthorID: suite.reader.ID, Content: "root"}
	require.NoError(t, suite.db.Create(root).Error)
	reply := &models.Comment{PostID: post.ID, AuthorID: suite.author.ID, Content: "reply", ParentID: &root.ID}
	require.NoError(t, suite.db.Create(reply).Error)
	nested := &models.Comment{PostID: post.ID, AuthorID: suite.reader.ID, Content: "nested", ParentID: &reply.ID}
	require.NoError(t, suite.db.Create(nested).Error)
	require.NoError(t, suite.db.Create(&models.Like{UserID: suite.author.ID, CommentID: &nested.ID}).Error)

	suite.db.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("comment_count", 3)

	w := suite.request("DELETE", "/api/comments/"+root.ID, nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)

	var remaining int64
	suite.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&remaining)
	assert.EqualValues(t, 0, remaining)

	var likes int64
	suite.db.Model(&models.Like{}).Where("comment_id IS NOT NULL").Count(&likes)
	assert.EqualValues(t, 0, likes)

	// Deleting a thread counts as one removed comment
	var stored models.Post
	require.NoError(t, suite.db.First(&stored, "id = ?", post.ID).Error)
	assert.Equal(t, 2, stored.CommentCount)
}

func (suite *HandlersTestSuite) TestUpdateCommentMarksEdited() {
	t := suite.T()

	post := suite.createPost(suite.author, "editable-thread", models.PostStatusPublished)
	comment := &models.Comment{PostID: post.ID, AuthorID: suite.reader.ID, Content: "orignal"}
	require.NoError(t, suite.db.Create(comment).Error)

	w := suite.request("PUT", "/api/comments/"+comment.ID,
		map[string]string{"content": "original"}, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Comment
	require.NoError(t, suite.db.First(&stored, "id = ?", comment.ID).Error)
	assert.True(t, stored.IsEdited)
	assert.NotNil(t, stored.EditedAt)
	assert.Equal(t, "original", stored.Content)
}

func (suite *HandlersTestSuite) TestUpdateCommentForbiddenForOthers() {
	t := suite.T()

	post := suite.createPost(suite.author, "protected-thread", models.PostStatusPublished)
	comment := &models.Comment{PostID: post.ID, AuthorID: suite.reader.ID, Content: "mine"}
	require.NoError(t, suite.db.Create(comment).Error)

	w := suite.request("PUT", "/api/comments/"+comment.ID,
		map[string]string{"content": "hijacked"}, suite.moderator)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *HandlersTestSuite) TestListCommentsPreviewsReplies() {
	t := suite.T()

	post := suite.createPost(suite.author, "busy-thread", models.PostStatusPublished)
	root := &models.Comment{PostID: post.ID, AuthorID: suite.reader.ID, Content: "root"}
	require.NoError(t, suite.db.Create(root).Error)
	for i := 0; i < 5; i++ {
		reply := &models.Comment{PostID: post.ID, AuthorID: suite.author.ID, Content: "reply", ParentID: &root.ID}
		require.NoError(t, suite.db.Create(reply).Error)
	}

	w := suite.request("GET", "/api/posts/"+post.Slug+"/comments", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	comments := body["comments"].([]interface{})
	require.Len(t, comments, 1)

	top := comments[0].(map[string]interface{})
	assert.EqualValues(t, 5, top["reply_count"])
	assert.Len(t, top["replies"].([]interface{}), 3)
}

func (suite *HandlersTestSuite) TestLikeCommentToggle() {
	t := suite.T()

	post := suite.createPost(suite.author, "liked-thread", models.PostStatusPublished)
	comment := &models.Comment{PostID: post.ID, AuthorID: suite.author.ID, Content: "likeable"}
	require.NoError(t, suite.db.Create(comment).Error)

	w := suite.request("POST", "/api/comments/"+comment.ID+"/like", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["liked"])

	w = suite.request("POST", "/api/comments/"+comment.ID+"/like", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["liked"])

	var stored models.Comment
	require.NoError(t, suite.db.First(&stored, "id = ?", comment.ID).Error)
	assert.Equal(t, 0, stored.LikeCount)
}

func (suite *HandlersTestSuite) TestCommentMentionsNotifyMentionedUsers() {
	t := suite.T()

	post := suite.createPost(suite.author, "mention-thread", models.PostStatusPublished)

	w := suite.request("POST", "/api/posts/"+post.ID+"/comments", CreateCommentRequest{
		Content: "cc @moderator and @nobody-here",
	}, suite.reader)
	require.Equal(t, http.StatusCreated, w.Code)

	var mentions []models.Notification
	require.NoError(t, suite.db.
		Where("type = ?", models.NotificationTypeMention).
		Find(&mentions).Error)
	require.Len(t, mentions, 1)
	assert.Equal(t, suite.moderator.ID, mentions[0].UserID)
}
