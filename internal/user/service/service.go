// Package service holds the user account command handlers. Each handler
// loads or constructs aggregates, pairs every mutation with its audit log
// entry, and commits both through one unit of work. This is also the
// translation boundary where storage sentinels become coded domain errors.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"custodia/internal/user"
	"custodia/internal/user/confirm"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

var commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "custodia_user_commands_total",
	Help: "User account commands by name and outcome",
}, []string{"command", "outcome"})

// Service executes user account commands.
type Service struct {
	uowFactory user.UnitOfWorkFactory
	tokens     confirm.TokenStore
	tokenTTL   time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithTokenTTL overrides the confirmation token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// New constructs the command service.
func New(uowFactory user.UnitOfWorkFactory, tokens confirm.TokenStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		uowFactory: uowFactory,
		tokens:     tokens,
		tokenTTL:   confirm.DefaultTTL,
		logger:     logger,
		tracer:     otel.Tracer("custodia/internal/user/service"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// begin opens a span and a unit of work for one command.
func (s *Service) begin(ctx context.Context, command string) (context.Context, trace.Span, user.UnitOfWork, error) {
	ctx, span := s.tracer.Start(ctx, command)
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		span.End()
		return ctx, nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open unit of work")
	}
	return ctx, span, uow, nil
}

func (s *Service) observe(command string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// loadAccount fetches an aggregate, translating the missing-row sentinel.
func loadAccount(ctx context.Context, uow user.UnitOfWork, accountID domain.UserID) (*user.UserAccount, error) {
	if accountID.IsNil() {
		return nil, dErrors.NewField(dErrors.CodeInvalidInput, "userId", "user ID required")
	}
	account, err := uow.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user account")
	}
	return account, nil
}

// commit saves the unit of work, translating a constraint rejection into the
// duplicate error the caller is contractually owed. The pre-commit existence
// check is advisory only; this translation is the real uniqueness
// enforcement.
func commit(ctx context.Context, uow user.UnitOfWork) error {
	if err := uow.SaveChanges(ctx); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeDuplicate, "email address already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit unit of work")
	}
	return nil
}
