package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"custodia/internal/user"
	"custodia/internal/user/confirm"
	"custodia/internal/user/service"
	"custodia/internal/user/store/memory"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store  *memory.Store
	tokens *confirm.MemoryTokens
	svc    *service.Service
	by     domain.AuditPrincipal
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.New()
	s.tokens = confirm.NewMemoryTokens()
	s.svc = service.New(s.store, s.tokens, zap.NewNop())

	by, err := domain.PrincipalFromSystem("registration")
	s.Require().NoError(err)
	s.by = by
}

func (s *ServiceSuite) createUser(email string) domain.UserID {
	id, err := s.svc.CreateUser(context.Background(), service.CreateUserCommand{
		FirstName: "Ann", LastName: "Lee", Email: email, By: s.by,
	})
	s.Require().NoError(err)
	return id
}

func (s *ServiceSuite) logs(accountID domain.UserID) []*user.AccountLog {
	entries, err := s.svc.ListUserLogs(context.Background(), accountID)
	s.Require().NoError(err)
	return entries
}

func (s *ServiceSuite) TestCreateUser() {
	ctx := context.Background()

	id, err := s.svc.CreateUser(ctx, service.CreateUserCommand{
		FirstName: "Ann", LastName: "Lee", Email: "ann@x.com", By: s.by,
	})
	s.Require().NoError(err)
	s.False(id.IsNil())

	account, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.Equal("ann@x.com", account.Email.String())
	s.True(account.IsActive())

	entries := s.logs(id)
	s.Require().Len(entries, 1)
	s.Equal("UserAccount.Registration.Create", entries[0].Action.String())
	s.Equal(s.by, entries[0].PerformedBy)
}

func (s *ServiceSuite) TestCreateUserDuplicateEmailCaseVariant() {
	ctx := context.Background()
	s.createUser("ann@x.com")

	_, err := s.svc.CreateUser(ctx, service.CreateUserCommand{
		FirstName: "Other", LastName: "Person", Email: "ANN@X.COM", By: s.by,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))

	accounts, err := s.svc.ListUsers(ctx)
	s.Require().NoError(err)
	s.Len(accounts, 1, "rejected create must stage nothing")
}

func (s *ServiceSuite) TestCreateUserInvalidInput() {
	_, err := s.svc.CreateUser(context.Background(), service.CreateUserCommand{
		FirstName: "Ann", LastName: "Lee", Email: "not-an-email", By: s.by,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestUpdateUserName() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	res, err := s.svc.UpdateUser(ctx, service.UpdateUserCommand{
		UserID: id, FirstName: "Joan", By: s.by,
	})
	s.Require().NoError(err)
	s.True(res.NameChanged)

	account, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.Equal("Joan", account.FirstName.String())
	s.Equal("Lee", account.LastName.String(), "unspecified field keeps its value")

	entries := s.logs(id)
	s.Require().Len(entries, 2)
	s.Equal("UserAccount.Update", entries[1].Action.String())
	s.NotEmpty(entries[1].OriginalValues)
	s.NotEmpty(entries[1].NewValues)
}

func (s *ServiceSuite) TestUpdateUserIdempotentNoOp() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	res, err := s.svc.UpdateUser(ctx, service.UpdateUserCommand{
		UserID: id, FirstName: "ANN", LastName: "lee", By: s.by,
	})
	s.Require().NoError(err)
	s.False(res.NameChanged)

	s.Len(s.logs(id), 1, "no-op update must not add an audit entry")
}

func (s *ServiceSuite) TestUpdateUserUnknownAccount() {
	_, err := s.svc.UpdateUser(context.Background(), service.UpdateUserCommand{
		UserID: domain.NewUserID(), FirstName: "Joan", By: s.by,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.UpdateUser(context.Background(), service.UpdateUserCommand{
		FirstName: "Joan", By: s.by,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "nil user ID is invalid input")
}

func (s *ServiceSuite) TestEmailChangeFlow() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	res, err := s.svc.UpdateUser(ctx, service.UpdateUserCommand{
		UserID: id, Email: "b@x.com", By: s.by,
	})
	s.Require().NoError(err)
	s.True(res.EmailChangeStarted)
	s.Require().NotEmpty(res.ConfirmationToken)

	account, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.Equal("ann@x.com", account.Email.String(), "primary email untouched until confirmation")
	s.Equal("b@x.com", account.PendingEmail.String())

	s.Require().NoError(s.svc.ConfirmEmailChange(ctx, res.ConfirmationToken))

	account, err = s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.Equal("b@x.com", account.Email.String())
	s.Equal("ann@x.com", account.PreviousEmail.String())
	s.True(account.PendingEmail.IsZero())

	entries := s.logs(id)
	s.Require().Len(entries, 3)
	s.Equal("UserAccount.Email.Update", entries[1].Action.String())
	s.Equal("UserAccount.Email.Change", entries[2].Action.String())
	s.Equal("ann@x.com", entries[2].OriginalValues)
	s.Equal("b@x.com", entries[2].NewValues)
}

func (s *ServiceSuite) TestConfirmEmailChangeBadToken() {
	err := s.svc.ConfirmEmailChange(context.Background(), "never-issued")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.svc.ConfirmEmailChange(context.Background(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestConfirmEmailChangeTokenSingleUse() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	res, err := s.svc.UpdateUser(ctx, service.UpdateUserCommand{
		UserID: id, Email: "b@x.com", By: s.by,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.ConfirmEmailChange(ctx, res.ConfirmationToken))
	err = s.svc.ConfirmEmailChange(ctx, res.ConfirmationToken)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "token must be consumed on first use")
}

// TestConfirmEmailChangeLosesUniquenessRace covers the window where another
// account registers the staged address between initiation and confirmation.
// The constraint rejection at commit must surface as a duplicate error and
// leave the pending state intact.
func (s *ServiceSuite) TestConfirmEmailChangeLosesUniquenessRace() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	res, err := s.svc.UpdateUser(ctx, service.UpdateUserCommand{
		UserID: id, Email: "b@x.com", By: s.by,
	})
	s.Require().NoError(err)

	s.createUser("b@x.com")

	err = s.svc.ConfirmEmailChange(ctx, res.ConfirmationToken)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))

	account, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.Equal("ann@x.com", account.Email.String(), "losing the race must not change the primary email")
	s.Equal("b@x.com", account.PendingEmail.String(), "pending state survives the lost race")
}

func (s *ServiceSuite) TestDeactivateReactivate() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	s.Require().NoError(s.svc.DeactivateUser(ctx, id, s.by))
	account, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.False(account.IsActive())

	// Second deactivation is success-without-effect.
	s.Require().NoError(s.svc.DeactivateUser(ctx, id, s.by))
	s.Len(s.logs(id), 2, "no-op transition must not add an audit entry")

	s.Require().NoError(s.svc.ReactivateUser(ctx, id, s.by))
	account, err = s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.True(account.IsActive())

	entries := s.logs(id)
	s.Require().Len(entries, 3)
	s.Equal("UserAccount.Status.Lock", entries[1].Action.String())
	s.Equal("UserAccount.Status.Unlock", entries[2].Action.String())
}

func (s *ServiceSuite) TestDeleteUser() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	s.Require().NoError(s.svc.DeleteUser(ctx, id, s.by))

	account, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err, "soft-deleted rows stay readable")
	s.True(account.Audit.IsDeleted())
	s.False(account.IsActive())

	s.Require().NoError(s.svc.DeleteUser(ctx, id, s.by))
	entries := s.logs(id)
	s.Require().Len(entries, 2, "second delete is a no-op")
	s.Equal("UserAccount.Delete", entries[1].Action.String())
}

func (s *ServiceSuite) TestListUsers() {
	ctx := context.Background()
	s.createUser("a@x.com")
	s.createUser("b@x.com")

	accounts, err := s.svc.ListUsers(ctx)
	s.Require().NoError(err)
	s.Len(accounts, 2)
}

func (s *ServiceSuite) TestListUserLogsUnknownAccount() {
	_, err := s.svc.ListUserLogs(context.Background(), domain.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRecordLogin() {
	ctx := context.Background()
	id := s.createUser("ann@x.com")

	before, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err)

	at := time.Now()
	s.Require().NoError(s.svc.RecordLogin(ctx, id, at))

	account, err := s.svc.GetUser(ctx, id)
	s.Require().NoError(err)
	s.WithinDuration(at.UTC(), account.LastLoginAt, time.Second)
	s.Equal(before.Audit.ModifiedAtUtc, account.Audit.ModifiedAtUtc, "logins do not stamp modification audit")
	s.Len(s.logs(id), 1, "logins are not audited mutations")
}
