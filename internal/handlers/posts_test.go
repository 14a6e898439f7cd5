package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) TestCreatePostSlugCollisionSuffixes() {
	t := suite.T()

	first := suite.request("POST", "/api/posts", CreatePostRequest{
		Title:   "Going Deep On Goroutines",
		Content: "Channels, select, the scheduler.",
		Status:  "published",
	}, suite.author)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "going-deep-on-goroutines", decodeBody(t, first)["slug"])

	second := suite.request("POST", "/api/posts", CreatePostRequest{
		Title:   "Going Deep On Goroutines",
		Content: "A different take on the same title.",
		Status:  "published",
	}, suite.reader)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "going-deep-on-goroutines-2", decodeBody(t, second)["slug"])
}

func (suite *HandlersTestSuite) TestCreatePostRejectedStatusIsInvalid() {
	t := suite.T()

	w := suite.request("POST", "/api/posts", CreatePostRequest{
		Title:   "Sneaky",
		Content: "Trying to self-reject.",
		Status:  "rejected",
	}, suite.author)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestCreatePostDefaultsToDraftWithExcerpt() {
	t := suite.T()

	w := suite.request("POST", "/api/posts", CreatePostRequest{
		Title:   "Untitled Thoughts",
		Content: "Short body.",
	}, suite.author)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "draft", body["status"])
	assert.Equal(t, "Short body.", body["excerpt"])
	assert.Nil(t, body["published_at"])
}

func (suite *HandlersTestSuite) TestGetPostVisibility() {
	t := suite.T()

	draft := suite.createPost(suite.author, "hidden-draft", models.PostStatusDraft)

	// Anonymous and unrelated readers see a 404
	assert.Equal(t, http.StatusNotFound,
		suite.request("GET", "/api/posts/"+draft.Slug, nil, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		suite.request("GET", "/api/posts/"+draft.Slug, nil, suite.reader).Code)

	// The author and moderators can view it
	assert.Equal(t, http.StatusOK,
		suite.request("GET", "/api/posts/"+draft.Slug, nil, suite.author).Code)
	assert.Equal(t, http.StatusOK,
		suite.request("GET", "/api/posts/"+draft.Slug, nil, suite.moderator).Code)
}

func (suite *HandlersTestSuite) TestGetPostCountsView() {
	t := suite.T()

	post := suite.createPost(suite.author, "viewed-post", models.PostStatusPublished)

	w := suite.request("GET", "/api/posts/"+post.Slug, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, suite.db.First(&stored, "id = ?", post.ID).Error)
	assert.Equal(t, 1, stored.ViewCount)
	assert.Greater(t, stored.TrendingScore, 0.0)
}

func (suite *HandlersTestSuite) TestUpdatePostOnlyByAuthorOrAdmin() {
	t := suite.T()

	post := suite.createPost(suite.author, "editable", models.PostStatusDraft)
	newTitle := "Edited Title"

	w := suite.request("PUT", "/api/posts/"+post.ID, UpdatePostRequest{Title: &newTitle}, suite.reader)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request("PUT", "/api/posts/"+post.ID, UpdatePostRequest{Title: &newTitle}, suite.author)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edited-title", decodeBody(t, w)["slug"])
}

func (suite *HandlersTestSuite) TestPublishingSetsPublishedAtOnce() {
	t := suite.T()

	post := suite.createPost(suite.author, "to-publish", models.PostStatusDraft)

	published := "published"
	w := suite.request("PUT", "/api/posts/"+post.ID, UpdatePostRequest{Status: &published}, suite.author)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, suite.db.First(&stored, "id = ?", post.ID).Error)
	require.NotNil(t, stored.PublishedAt)
	firstPublish := *stored.PublishedAt

	// Unpublish and republish; the original timestamp survives
	draft := "draft"
	require.Equal(t, http.StatusOK,
		suite.request("PUT", "/api/posts/"+post.ID, UpdatePostRequest{Status: &draft}, suite.author).Code)
	require.Equal(t, http.StatusOK,
		suite.request("PUT", "/api/posts/"+post.ID, UpdatePostRequest{Status: &published}, suite.author).Code)

	require.NoError(t, suite.db.First(&stored, "id = ?", post.ID).Error)
	require.NotNil(t, stored.PublishedAt)
	assert.WithinDuration(t, firstPublish, *stored.PublishedAt, 0)
}

func (suite *HandlersTestSuite) TestLikePostToggleIsNetZero() {
	t := suite.T()

	post := suite.createPost(suite.author, "likeable", models.PostStatusPublished)

	w := suite.request("POST", "/api/posts/"+post.ID+"/like", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["liked"])
	assert.EqualValues(t, 1, body["like_count"])

	w = suite.request("POST", "/api/posts/"+post.ID+"/like", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, false, body["liked"])
	assert.EqualValues(t, 0, body["like_count"])

	var likes int64
	suite.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes)
	assert.EqualValues(t, 0, likes)
}

func (suite *HandlersTestSuite) TestLikeDraftPostNotFound() {
	t := suite.T()

	draft := suite.createPost(suite.author, "unlikeable", models.PostStatusDraft)

	w := suite.request("POST", "/api/posts/"+draft.ID+"/like", nil, suite.reader)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestBookmarkToggle() {
	t := suite.T()

	post := suite.createPost(suite.author, "bookmarkable", models.PostStatusPublished)

	w := suite.request("POST", "/api/posts/"+post.ID+"/bookmark", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["bookmarked"])

	w = suite.request("POST", "/api/posts/"+post.ID+"/bookmark", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["bookmarked"])
}

func (suite *HandlersTestSuite) TestDeletePostCascades() {
	t := suite.T()

	post := suite.createPost(suite.author, "doomed", models.PostStatusPublished)
	suite.db.Model(&models.User{}).Where("id = ?", suite.author.ID).UpdateColumn("post_count", 1)

	comment := &models.Comment{PostID: post.ID, AuthorID: suite.reader.ID, Content: "nice"}
	require.NoError(t, suite.db.Create(comment).Error)
	require.NoError(t, suite.db.Create(&models.Like{UserID: suite.reader.ID, PostID: &post.ID}).Error)
	require.NoError(t, suite.db.Create(&models.Like{UserID: suite.author.ID, CommentID: &comment.ID}).Error)
	require.NoError(t, suite.db.Create(&models.Bookmark{UserID: suite.reader.ID, PostID: post.ID}).Error)

	w := suite.request("DELETE", "/api/posts/"+post.ID, nil, suite.author)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	assert.EqualValues(t, 0, count)
	suite.db.Model(&models.Like{}).Count(&count)
	assert.EqualValues(t, 0, count)
	suite.db.Model(&models.Bookmark{}).Where("post_id = ?", post.ID).Count(&count)
	assert.EqualValues(t, 0, count)

	var author models.User
	require.NoError(t, suite.db.First(&author, "id = ?", suite.author.ID).Error)
	assert.Equal(t, 0, author.PostCount)
}

func (suite *HandlersTestSuite) TestListPostsHidesUnpublishedByDefault() {
	t := suite.T()

	suite.createPost(suite.author, "published-one", models.PostStatusPublished)
	suite.createPost(suite.author, "pending-one", models.PostStatusPending)
	suite.createPost(suite.author, "draft-one", models.PostStatusDraft)

	w := suite.request("GET", "/api/posts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["total"])

	// A reader asking for drafts still only sees published posts
	w = suite.request("GET", "/api/posts?status=draft", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["total"])

	// Moderators can filter by any status
	w = suite.request("GET", "/api/posts?status=pending", nil, suite.moderator)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["total"])
}

func (suite *HandlersTestSuite) TestFeedShowsFollowedAuthorsOnly() {
	t := suite.T()

	followed := suite.createPost(suite.author, "followed-post", models.PostStatusPublished)
	suite.createPost(suite.moderator, "unfollowed-post", models.PostStatusPublished)
	require.NoError(t, suite.db.Create(&models.Follow{
		FollowerID:  suite.reader.ID,
		FollowingID: suite.author.ID,
	}).Error)

	w := suite.request("GET", "/api/feed", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1)
	assert.Equal(t, followed.ID, posts[0].(map[string]interface{})["id"])
}
