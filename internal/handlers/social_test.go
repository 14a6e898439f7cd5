package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) TestFollowAndUnfollowAdjustCounters() {
	t := suite.T()

	w := suite.request("POST", "/api/users/"+suite.author.Username+"/follow", nil, suite.reader)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["following"])

	var author, reader models.User
	require.NoError(t, suite.db.First(&author, "id = ?", suite.author.ID).Error)
	require.NoError(t, suite.db.First(&reader, "id = ?", suite.reader.ID).Error)
	assert.Equal(t, 1, author.FollowerCount)
	assert.Equal(t, 1, reader.FollowingCount)

	w = suite.request("DELETE", "/api/users/"+suite.author.Username+"/follow", nil, suite.reader)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, suite.db.First(&author, "id = ?", suite.author.ID).Error)
	require.NoError(t, suite.db.First(&reader, "id = ?", suite.reader.ID).Error)
	assert.Equal(t, 0, author.FollowerCount)
	assert.Equal(t, 0, reader.FollowingCount)
}

func (suite *HandlersTestSuite) TestSelfFollowRejected() {
	t := suite.T()

	w := suite.request("POST", "/api/users/"+suite.reader.Username+"/follow", nil, suite.reader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestDuplicateFollowConflicts() {
	t := suite.T()

	require.Equal(t, http.StatusCreated,
		suite.request("POST", "/api/users/"+suite.author.Username+"/follow", nil, suite.reader).Code)

	w := suite.request("POST", "/api/users/"+suite.author.Username+"/follow", nil, suite.reader)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The counter only moved once
	var author models.User
	require.NoError(t, suite.db.First(&author, "id = ?", suite.author.ID).Error)
	assert.Equal(t, 1, author.FollowerCount)
}

func (suite *HandlersTestSuite) TestUnfollowWithoutFollowNotFound() {
	t := suite.T()

	w := suite.request("DELETE", "/api/users/"+suite.author.Username+"/follow", nil, suite.reader)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestFollowNotifiesTarget() {
	t := suite.T()

	require.Equal(t, http.StatusCreated,
		suite.request("POST", "/api/users/"+suite.author.Username+"/follow", nil, suite.reader).Code)

	var notifications int64
	suite.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", suite.author.ID, models.NotificationTypeFollow).
		Count(&notifications)
	assert.EqualValues(t, 1, notifications)
}

func (suite *HandlersTestSuite) TestFollowersListingsExcludeBanned() {
	t := suite.T()

	require.NoError(t, suite.db.Create(&models.Follow{
		FollowerID:  suite.reader.ID,
		FollowingID: suite.author.ID,
	}).Error)
	require.NoError(t, suite.db.Create(&models.Follow{
		FollowerID:  suite.moderator.ID,
		FollowingID: suite.author.ID,
	}).Error)
	suite.db.Model(&models.User{}).Where("id = ?", suite.moderator.ID).
		UpdateColumn("is_banned", true)

	w := suite.request("GET", "/api/users/"+suite.author.Username+"/followers", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	followers := body["followers"].([]interface{})
	require.Len(t, followers, 1)
	assert.Equal(t, suite.reader.Username, followers[0].(map[string]interface{})["username"])
}

func (suite *HandlersTestSuite) TestProfileOfBannedUserNotFound() {
	t := suite.T()

	suite.db.Model(&models.User{}).Where("id = ?", suite.author.ID).
		UpdateColumn("is_banned", true)

	w := suite.request("GET", "/api/users/"+suite.author.Username, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
