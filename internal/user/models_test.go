package user

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func testPrincipal(t *testing.T) domain.AuditPrincipal {
	t.Helper()
	p, err := domain.PrincipalFromUser(domain.NewUserID())
	require.NoError(t, err)
	return p
}

func testAccount(t *testing.T) *UserAccount {
	t.Helper()
	account, err := NewUserAccount("Ann", "Lee", "ann@x.com", testPrincipal(t))
	require.NoError(t, err)
	return account
}

func TestNewUserAccount(t *testing.T) {
	t.Run("valid inputs produce an active account with creation audit", func(t *testing.T) {
		by := testPrincipal(t)
		account, err := NewUserAccount("ann", "LEE", " Ann@X.com ", by)
		require.NoError(t, err)

		assert.False(t, account.ID.IsNil())
		assert.True(t, account.IsActive())
		assert.Equal(t, "Ann", account.FirstName.String())
		assert.Equal(t, "Lee", account.LastName.String())
		assert.Equal(t, "ann@x.com", account.Email.String())
		assert.True(t, account.PendingEmail.IsZero())
		assert.Equal(t, account.Audit.CreatedAtUtc, account.Audit.ModifiedAtUtc)
		assert.Equal(t, by, account.Audit.CreatedBy)
	})

	t.Run("derived names", func(t *testing.T) {
		account := testAccount(t)
		assert.Equal(t, "Ann Lee", account.FullName())
		assert.Equal(t, "Lee, Ann", account.InvertedName())
	})

	t.Run("each invalid identity field fails validation", func(t *testing.T) {
		by := testPrincipal(t)
		cases := []struct {
			name                   string
			first, last, email     string
		}{
			{"empty first name", "", "Lee", "ann@x.com"},
			{"empty last name", "Ann", "  ", "ann@x.com"},
			{"email without at-sign", "Ann", "Lee", "annx.com"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewUserAccount(tc.first, tc.last, tc.email, by)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			})
		}
	})
}

func TestUpdateName(t *testing.T) {
	t.Run("identical values are a silent no-op", func(t *testing.T) {
		account := testAccount(t)
		before := account.Audit.ModifiedAtUtc

		changed, err := account.UpdateName("Ann", "Lee", testPrincipal(t))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, before, account.Audit.ModifiedAtUtc, "no-op must not stamp audit")
	})

	t.Run("normalized-equal values are still a no-op", func(t *testing.T) {
		account := testAccount(t)
		changed, err := account.UpdateName("ANN", "lee", testPrincipal(t))
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("new values mutate and stamp", func(t *testing.T) {
		account := testAccount(t)
		by := testPrincipal(t)
		created := account.Audit.CreatedAtUtc

		changed, err := account.UpdateName("Joan", "Lee", by)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Joan", account.FirstName.String())
		assert.Equal(t, by, account.Audit.ModifiedBy)
		assert.Equal(t, created, account.Audit.CreatedAtUtc)
		assert.False(t, account.Audit.ModifiedAtUtc.Before(created))
	})

	t.Run("invalid replacement leaves state untouched", func(t *testing.T) {
		account := testAccount(t)
		_, err := account.UpdateName("", "Lee", testPrincipal(t))
		require.Error(t, err)
		assert.Equal(t, "Ann", account.FirstName.String())
	})
}

func TestDeactivateReactivate(t *testing.T) {
	t.Run("second deactivate is a no-op", func(t *testing.T) {
		account := testAccount(t)
		by := testPrincipal(t)

		require.True(t, account.Deactivate(by))
		assert.False(t, account.IsActive())
		deactivatedAt := account.DeactivatedAt
		modifiedAt := account.Audit.ModifiedAtUtc
		assert.Equal(t, deactivatedAt, modifiedAt, "deactivation stamps modified with the same instant")

		assert.False(t, account.Deactivate(by))
		assert.Equal(t, deactivatedAt, account.DeactivatedAt)
		assert.Equal(t, modifiedAt, account.Audit.ModifiedAtUtc, "no-op must not move modifiedAtUtc")
	})

	t.Run("reactivate while active is a no-op", func(t *testing.T) {
		account := testAccount(t)
		before := account.Audit.ModifiedAtUtc
		assert.False(t, account.Reactivate(testPrincipal(t)))
		assert.Equal(t, before, account.Audit.ModifiedAtUtc)
	})

	t.Run("full cycle returns to active", func(t *testing.T) {
		account := testAccount(t)
		by := testPrincipal(t)
		require.True(t, account.Deactivate(by))
		require.True(t, account.Reactivate(by))
		assert.True(t, account.IsActive())
		assert.True(t, account.DeactivatedAt.IsZero())
	})
}

func TestEmailChange(t *testing.T) {
	t.Run("initiate stages without touching the primary email", func(t *testing.T) {
		account := testAccount(t)
		changed, err := account.InitiateEmailChange("b@x.com", testPrincipal(t))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "ann@x.com", account.Email.String())
		assert.Equal(t, "b@x.com", account.PendingEmail.String())
	})

	t.Run("initiating the identical pending address twice is a no-op", func(t *testing.T) {
		account := testAccount(t)
		by := testPrincipal(t)
		changed, err := account.InitiateEmailChange("b@x.com", by)
		require.NoError(t, err)
		require.True(t, changed)
		before := account.Audit.ModifiedAtUtc

		changed, err = account.InitiateEmailChange("B@X.COM", by)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, before, account.Audit.ModifiedAtUtc)
	})

	t.Run("initiating the current address is a no-op", func(t *testing.T) {
		account := testAccount(t)
		changed, err := account.InitiateEmailChange("ann@x.com", testPrincipal(t))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, account.PendingEmail.IsZero())
	})

	t.Run("confirm without pending fails with invalid state", func(t *testing.T) {
		account := testAccount(t)
		err := account.ConfirmEmailChange(testPrincipal(t))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("confirm promotes pending and archives previous", func(t *testing.T) {
		account := testAccount(t)
		by := testPrincipal(t)
		_, err := account.InitiateEmailChange("b@x.com", by)
		require.NoError(t, err)

		require.NoError(t, account.ConfirmEmailChange(by))
		assert.Equal(t, "b@x.com", account.Email.String())
		assert.Equal(t, "ann@x.com", account.PreviousEmail.String())
		assert.True(t, account.PendingEmail.IsZero())
	})
}

func TestSoftDelete(t *testing.T) {
	account := testAccount(t)
	by := testPrincipal(t)

	require.True(t, account.SoftDelete(by))
	assert.True(t, account.Audit.IsDeleted())
	assert.False(t, account.IsActive())
	assert.Equal(t, account.Audit.DeletedAtUtc, account.Audit.ModifiedAtUtc)

	assert.False(t, account.SoftDelete(by), "second delete is a no-op")
}

func TestSnapshot(t *testing.T) {
	account := testAccount(t)
	_, err := account.InitiateEmailChange("b@x.com", testPrincipal(t))
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(account.Snapshot()), &decoded))
	assert.Equal(t, "Ann", decoded["firstName"])
	assert.Equal(t, "ann@x.com", decoded["email"])
	assert.Equal(t, "b@x.com", decoded["pendingEmail"])
	_, hasDeactivated := decoded["deactivatedAt"]
	assert.False(t, hasDeactivated, "active accounts omit deactivatedAt")
}

func TestAccountLogFactories(t *testing.T) {
	accountID := domain.NewUserID()
	by := testPrincipal(t)

	t.Run("registration binds the vocabulary action and stamps internally", func(t *testing.T) {
		entry := NewRegistrationLog(accountID, by)
		assert.Equal(t, "UserAccount.Registration.Create", entry.Action.String())
		assert.Equal(t, accountID, entry.UserAccountID)
		assert.Equal(t, by, entry.PerformedBy)
		assert.False(t, entry.PerformedAtUtc.IsZero())
		assert.False(t, entry.ID.IsNil())
	})

	t.Run("every factory stays inside the UserAccount category", func(t *testing.T) {
		email, _ := domain.ParseEmailAddress("b@x.com")
		entries := []*AccountLog{
			NewRegistrationLog(accountID, by),
			NewUpdateLog(accountID, by, "{}", "{}"),
			NewDeactivationLog(accountID, by),
			NewReactivationLog(accountID, by),
			NewEmailChangeStartedLog(accountID, by, email),
			NewEmailChangeConfirmedLog(accountID, by, email, email),
			NewDeletionLog(accountID, by),
		}
		for _, entry := range entries {
			assert.True(t, entry.Action.InCategory(domain.ActionCategoryUserAccount), "action %s", entry.Action)
		}
	})

	t.Run("email change logs capture the addresses", func(t *testing.T) {
		oldAddr, _ := domain.ParseEmailAddress("ann@x.com")
		newAddr, _ := domain.ParseEmailAddress("b@x.com")

		started := NewEmailChangeStartedLog(accountID, by, newAddr)
		assert.Equal(t, "b@x.com", started.NewValues)

		confirmed := NewEmailChangeConfirmedLog(accountID, by, oldAddr, newAddr)
		assert.Equal(t, "ann@x.com", confirmed.OriginalValues)
		assert.Equal(t, "b@x.com", confirmed.NewValues)
	})
}
