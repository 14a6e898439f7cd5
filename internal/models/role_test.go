package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRolePermissions(t *testing.T) {
	assert.False(t, RoleUser.CanModerate())
	assert.False(t, RoleUser.CanAdministrate())

	assert.True(t, RoleModerator.CanModerate())
	assert.False(t, RoleModerator.CanAdministrate())

	assert.True(t, RoleAdmin.CanModerate())
	assert.True(t, RoleAdmin.CanAdministrate())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleModerator.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestReportActionValid(t *testing.T) {
	for _, a := range []ReportAction{ReportActionDismiss, ReportActionWarn, ReportActionBan, ReportActionDelete} {
		assert.True(t, a.Valid())
	}
	assert.False(t, ReportAction("escalate").Valid())
}

func TestPostStatusValid(t *testing.T) {
	for _, s := range []PostStatus{PostStatusDraft, PostStatusPending, PostStatusPublished, PostStatusRejected} {
		assert.True(t, s.Valid())
	}
	assert.False(t, PostStatus("archived").Valid())
}
