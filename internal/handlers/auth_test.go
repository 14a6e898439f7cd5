package handlers

import (
	"net/http"

	"github.com/devlog-app/backend/internal/auth"
	"github.com/devlog-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *HandlersTestSuite) TestRegisterAndLogin() {
	t := suite.T()

	w := suite.request("POST", "/api/auth/register", auth.RegisterRequest{
		Username: "newcomer",
		Email:    "newcomer@test.com",
		Password: "Sup3rSecret",
		FullName: "New Comer",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "newcomer", body["username"])
	assert.Equal(t, "user", body["role"])
	assert.NotContains(t, w.Body.String(), "Sup3rSecret")

	w = suite.request("POST", "/api/auth/login", auth.LoginRequest{
		Email:    "newcomer@test.com",
		Password: "Sup3rSecret",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body = decodeBody(t, w)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["expires_at"])

	// The login minted a revocable session record
	var sessions int64
	suite.db.Model(&models.AuthSession{}).Count(&sessions)
	assert.EqualValues(t, 1, sessions)
}

func (suite *HandlersTestSuite) TestRegisterDuplicateEmailConflicts() {
	t := suite.T()

	payload := auth.RegisterRequest{
		Username: "original",
		Email:    "dup@test.com",
		Password: "Sup3rSecret",
	}
	require.Equal(t, http.StatusCreated,
		suite.request("POST", "/api/auth/register", payload, nil).Code)

	payload.Username = "different"
	w := suite.request("POST", "/api/auth/register", payload, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestRegisterWeakPasswordRejected() {
	t := suite.T()

	w := suite.request("POST", "/api/auth/register", auth.RegisterRequest{
		Username: "weakling",
		Email:    "weak@test.com",
		Password: "short",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestLoginBannedAccount() {
	t := suite.T()

	require.Equal(t, http.StatusCreated,
		suite.request("POST", "/api/auth/register", auth.RegisterRequest{
			Username: "outcast",
			Email:    "outcast@test.com",
			Password: "Sup3rSecret",
		}, nil).Code)
	suite.db.Model(&models.User{}).Where("username = ?", "outcast").
		UpdateColumn("is_banned", true)

	w := suite.request("POST", "/api/auth/login", auth.LoginRequest{
		Email:    "outcast@test.com",
		Password: "Sup3rSecret",
	}, nil)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Account is banned", decodeBody(t, w)["error"])
}

func (suite *HandlersTestSuite) TestLoginWrongPassword() {
	t := suite.T()

	require.Equal(t, http.StatusCreated,
		suite.request("POST", "/api/auth/register", auth.RegisterRequest{
			Username: "forgetful",
			Email:    "forgetful@test.com",
			Password: "Sup3rSecret",
		}, nil).Code)

	w := suite.request("POST", "/api/auth/login", auth.LoginRequest{
		Email:    "forgetful@test.com",
		Password: "WrongPassw0rd",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
