package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

func TestParseEmailAddress(t *testing.T) {
	t.Run("case and whitespace variants normalize to equal values", func(t *testing.T) {
		a, err := ParseEmailAddress("Ann@X.com")
		require.NoError(t, err)
		b, err := ParseEmailAddress("  ann@x.com ")
		require.NoError(t, err)
		c, err := ParseEmailAddress("ANN@X.COM")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Equal(t, b, c)
		assert.Equal(t, "ann@x.com", a.String())
	})

	t.Run("rejects input without @", func(t *testing.T) {
		for _, raw := range []string{"annx.com", "ann.x.com", "plainstring"} {
			_, err := ParseEmailAddress(raw)
			require.Error(t, err, "expected rejection of %q", raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			assert.Equal(t, "email", dErrors.FieldOf(err))
		}
	})

	t.Run("rejects empty and whitespace", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "\t\n"} {
			_, err := ParseEmailAddress(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseEmailAddress(strings.Repeat("a", EmailAddressMaxLength) + "@x.com")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParsePersonName(t *testing.T) {
	t.Run("title-cases and trims", func(t *testing.T) {
		tests := map[string]string{
			"ann":      "Ann",
			"SMITH":    "Smith",
			"mcclain":  "Mcclain",
			"  lee  ":  "Lee",
			"de vries": "De Vries",
		}
		for raw, want := range tests {
			name, err := ParsePersonName(raw)
			require.NoError(t, err, "raw %q", raw)
			assert.Equal(t, want, name.String())
		}
	})

	t.Run("equal inputs produce equal values", func(t *testing.T) {
		a, _ := ParsePersonName("ann")
		b, _ := ParsePersonName("ANN")
		assert.Equal(t, a, b)
	})

	t.Run("rejects empty and oversized", func(t *testing.T) {
		_, err := ParsePersonName("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = ParsePersonName(strings.Repeat("a", PersonNameMaxLength+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestAuditPrincipal(t *testing.T) {
	t.Run("user principal round-trips to User:<uuid>", func(t *testing.T) {
		userID := NewUserID()
		p, err := PrincipalFromUser(userID)
		require.NoError(t, err)
		assert.Equal(t, "User:"+userID.String(), p.String())
		assert.True(t, p.IsUser())
		assert.False(t, p.IsSystem())
	})

	t.Run("nil user identifier is rejected", func(t *testing.T) {
		_, err := PrincipalFromUser(UserID{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("system principal trims and composes", func(t *testing.T) {
		p, err := PrincipalFromSystem("  provisioning-batch ")
		require.NoError(t, err)
		assert.Equal(t, "System:provisioning-batch", p.String())
		assert.True(t, p.IsSystem())
	})

	t.Run("empty system name is rejected", func(t *testing.T) {
		_, err := PrincipalFromSystem("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("oversized composed signature is rejected", func(t *testing.T) {
		_, err := PrincipalFromSystem(strings.Repeat("s", AuditPrincipalMaxLength))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("reconstruct rejects free text", func(t *testing.T) {
		for _, stored := range []string{"", "no-colon", "Robot:x", "User:", "hacker"} {
			_, err := ReconstructPrincipal(stored)
			assert.Error(t, err, "expected rejection of %q", stored)
		}
		p, err := ReconstructPrincipal("System:scheduler")
		require.NoError(t, err)
		assert.Equal(t, "System:scheduler", p.String())
	})
}

func TestComposeAction(t *testing.T) {
	t.Run("accepts 2 and 3 segment hierarchies", func(t *testing.T) {
		a, err := ComposeAction(ActionCategoryUserAccount, ActionOperationUpdate)
		require.NoError(t, err)
		assert.Equal(t, "UserAccount.Update", a.String())

		b, err := ComposeAction(ActionCategoryUserAccount, ActionSubCategoryRegistration, ActionOperationCreate)
		require.NoError(t, err)
		assert.Equal(t, "UserAccount.Registration.Create", b.String())
	})

	t.Run("segments are trimmed before joining", func(t *testing.T) {
		a, err := ComposeAction(" UserAccount ", " Update ")
		require.NoError(t, err)
		assert.Equal(t, "UserAccount.Update", a.String())
	})

	t.Run("rejects wrong segment counts", func(t *testing.T) {
		_, err := ComposeAction("UserAccount")
		require.Error(t, err)

		_, err = ComposeAction("A", "B", "C", "D")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-alphanumeric segments", func(t *testing.T) {
		for _, segs := range [][]string{
			{"User Account", "Update"},
			{"UserAccount", "Up-date"},
			{"UserAccount", ""},
			{"UserAccount", "Update!"},
		} {
			_, err := ComposeAction(segs...)
			assert.Error(t, err, "expected rejection of %v", segs)
		}
	})

	t.Run("category prefix filtering", func(t *testing.T) {
		a := MustComposeAction(ActionCategoryUserAccount, ActionSubCategoryEmail, ActionOperationChange)
		assert.True(t, a.InCategory(ActionCategoryUserAccount))
		assert.False(t, a.InCategory(ActionCategorySecurity))
	})
}

func TestAuditStamp(t *testing.T) {
	principal, err := PrincipalFromSystem("registration")
	require.NoError(t, err)

	t.Run("creation sets modified equal to created", func(t *testing.T) {
		now := time.Now()
		stamp := NewAuditStamp(principal, now)
		assert.Equal(t, stamp.CreatedAtUtc, stamp.ModifiedAtUtc)
		assert.Equal(t, principal, stamp.CreatedBy)
		assert.Equal(t, principal, stamp.ModifiedBy)
		assert.False(t, stamp.IsDeleted())
		assert.Equal(t, time.UTC, stamp.CreatedAtUtc.Location())
	})

	t.Run("modification moves only the modified pair", func(t *testing.T) {
		stamp := NewAuditStamp(principal, time.Now())
		created := stamp.CreatedAtUtc

		other, err := PrincipalFromUser(NewUserID())
		require.NoError(t, err)
		later := created.Add(time.Minute)
		stamp.StampModified(other, later)

		assert.Equal(t, created, stamp.CreatedAtUtc)
		assert.Equal(t, later, stamp.ModifiedAtUtc)
		assert.Equal(t, other, stamp.ModifiedBy)
		assert.True(t, !stamp.ModifiedAtUtc.Before(stamp.CreatedAtUtc))
	})

	t.Run("deletion refreshes modified with the same instant", func(t *testing.T) {
		stamp := NewAuditStamp(principal, time.Now())
		later := stamp.CreatedAtUtc.Add(time.Hour)
		stamp.StampDeleted(principal, later)

		assert.True(t, stamp.IsDeleted())
		assert.Equal(t, stamp.DeletedAtUtc, stamp.ModifiedAtUtc)
		assert.Equal(t, principal, stamp.DeletedBy)
	})
}
