package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) TestSearchRejectsShortQueries() {
	t := suite.T()

	w := suite.request("GET", "/api/search?q=g", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Short queries never make it into search history
	var logged int64
	suite.db.Model(&models.SearchQuery{}).Count(&logged)
	assert.EqualValues(t, 0, logged)
}

func (suite *HandlersTestSuite) TestSearchFindsPublishedPostsOnly() {
	t := suite.T()

	published := &models.Post{
		AuthorID:    suite.author.ID,
		Title:       "Profiling Goroutine Leaks",
		Slug:        "profiling-goroutine-leaks",
		Content:     "Finding goroutine leaks with pprof.",
		Status:      models.PostStatusPublished,
		PublishedAt: ptrNow(),
	}
	require.NoError(t, suite.db.Create(published).Error)
	require.NoError(t, suite.db.Create(&models.Post{
		AuthorID: suite.author.ID,
		Title:    "Unfinished Goroutine Notes",
		Slug:     "unfinished-goroutine-notes",
		Content:  "Draft notes about goroutine leaks.",
		Status:   models.PostStatusDraft,
	}).Error)

	w := suite.request("GET", "/api/search?q=goroutine&type=posts", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1)
	assert.Equal(t, published.ID, posts[0].(map[string]interface{})["id"])

	// The query was recorded with its result count and requester
	var entry models.SearchQuery
	require.NoError(t, suite.db.First(&entry, "query = ?", "goroutine").Error)
	assert.Equal(t, 1, entry.ResultCount)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, suite.reader.ID, *entry.UserID)
}

func (suite *HandlersTestSuite) TestSearchUsersSkipsBanned() {
	t := suite.T()

	suite.db.Model(&models.User{}).Where("id = ?", suite.author.ID).
		UpdateColumn("is_banned", true)

	w := suite.request("GET", "/api/search?q=author&type=users", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	users, _ := body["users"].([]interface{})
	assert.Empty(t, users)
}

func (suite *HandlersTestSuite) TestSuggestionsPreferPrefixMatches() {
	t := suite.T()

	for _, title := range []string{"Docker Basics", "Docker Compose In Anger", "Beyond Docker"} {
		suite.createPost(suite.author, title, models.PostStatusPublished)
	}

	w := suite.request("GET", "/api/search/suggestions?q=docker", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	suggestions := body["suggestions"].([]interface{})
	require.Len(t, suggestions, 3)

	// Prefix matches come first, the substring match fills the tail
	assert.ElementsMatch(t,
		[]interface{}{"Docker Basics", "Docker Compose In Anger"},
		suggestions[:2])
	assert.Equal(t, "Beyond Docker", suggestions[2])
}
