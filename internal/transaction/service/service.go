// Package service orchestrates badge transactions: the handshake between a
// sponsor app, an end user and this authority, from Begin through award or
// refusal.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	appModel "sigil/internal/application/models"
	"sigil/internal/audit"
	badgeModel "sigil/internal/badge/models"
	"sigil/internal/notify"
	"sigil/internal/platform/config"
	"sigil/internal/platform/metrics"
	"sigil/internal/transaction/models"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/email"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
	"sigil/pkg/secrets"
)

// Store is the persistence contract for transactions. UpdateIf is a
// conditional write keyed on the expected prior state; it is the guard
// against double award when a token is replayed.
type Store interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	UpdateIf(ctx context.Context, tx *models.Transaction, expectedState models.State) error
}

// Applications is the slice of the application service the orchestrator
// needs: credential checks at Begin, callback lookup at notification time.
type Applications interface {
	Authenticate(ctx context.Context, id, password string) (*appModel.Application, error)
	Get(ctx context.Context, id string) (*appModel.Application, error)
}

// Resolver answers which inferred badge names an email domain carries.
type Resolver interface {
	Resolve(ctx context.Context, domain string) ([]string, error)
}

// Issuer mints badges idempotently and lists a user's live ones.
type Issuer interface {
	EnsureBadge(ctx context.Context, name, ownerEmail string, badgeType badgeModel.Type, expiresAt *time.Time, requestingAppID string) (*badgeModel.Badge, error)
	ActiveForOwner(ctx context.Context, ownerEmail string) ([]badgeModel.Badge, error)
}

// Notifier delivers transaction outcomes to sponsor callback URLs.
type Notifier interface {
	NotifyGranted(ctx context.Context, callbackURL, transactionID string, badges []badgeModel.Badge) bool
	NotifyRefused(ctx context.Context, callbackURL, transactionID, reason string)
	NotifyServerError(ctx context.Context, callbackURL, transactionID string)
}

// AuditPublisher records what happened, off the request path.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Deps collects the orchestrator's collaborators.
type Deps struct {
	Transactions   Store
	Applications   Applications
	Resolver       Resolver
	Issuer         Issuer
	Notifier       Notifier
	Mailer         notify.Mailer
	Audit          AuditPublisher
	Policy         config.PolicyConfig
	Authority      string
	SupportAddress string
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// Service drives the transaction state machine. Timeouts are lazy: nothing
// expires until the transaction is next touched.
type Service struct {
	txs            Store
	apps           Applications
	resolver       Resolver
	issuer         Issuer
	notifier       Notifier
	mailer         notify.Mailer
	audit          AuditPublisher
	policy         config.PolicyConfig
	authority      string
	supportAddress string
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

func NewService(deps Deps) *Service {
	return &Service{
		txs:            deps.Transactions,
		apps:           deps.Applications,
		resolver:       deps.Resolver,
		issuer:         deps.Issuer,
		notifier:       deps.Notifier,
		mailer:         deps.Mailer,
		audit:          deps.Audit,
		policy:         deps.Policy,
		authority:      deps.Authority,
		supportAddress: deps.SupportAddress,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
	}
}

// Begin authenticates the sponsor app and opens a transaction in
// PendingCredentials. The returned step carries the token the user-facing
// form submits back; the token embeds the app id as a prefix so operators
// can attribute it at a glance.
func (s *Service) Begin(ctx context.Context, appID, appPassword string) (models.Step, error) {
	app, err := s.apps.Authenticate(ctx, appID, appPassword)
	if err != nil {
		return models.Step{}, err
	}

	suffix, err := secrets.RandomToken(secrets.TransactionTokenBytes)
	if err != nil {
		return models.Step{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint transaction token")
	}
	tx := &models.Transaction{
		ID:             app.ID + suffix,
		State:          models.StatePendingCredentials,
		SponsorAppID:   app.ID,
		SponsorAppName: app.DisplayName,
		StartedAt:      requestcontext.Now(ctx),
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return models.Step{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create transaction")
	}

	s.metrics.TransactionsStarted.Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionTransactionStarted,
		TransactionID: tx.ID,
		AppID:         app.ID,
	})
	s.logger.InfoContext(ctx, "transaction started", "transaction_id", tx.ID, "app_id", app.ID)
	return models.NeedEmail(tx.ID, false), nil
}

// SubmitEmail receives the user's address for a PendingCredentials
// transaction. All protocol answers are steps; unknown tokens, wrong states
// and malformed tokens are indistinguishable.
func (s *Service) SubmitEmail(ctx context.Context, token, rawEmail string) models.Step {
	tx, err := s.txs.FindByID(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Terminal(models.OutcomeNotAuthorized)
		}
		return s.systemError(ctx, nil, err, "failed to load transaction")
	}
	if tx.State != models.StatePendingCredentials {
		return models.Terminal(models.OutcomeNotAuthorized)
	}

	now := requestcontext.Now(ctx)
	if tx.CredentialsWindowClosed(now, s.policy.CredentialsWindow) {
		// Lazy timeout: the record stays PendingCredentials and any later
		// touch hits the same wall.
		return models.Terminal(models.OutcomeRefusedTimeout)
	}

	if !email.IsValid(rawEmail) {
		return models.NeedEmail(token, true)
	}
	userEmail := email.Normalize(rawEmail)
	domain := email.Domain(userEmail)

	names, err := s.resolver.Resolve(ctx, domain)
	if err != nil {
		return s.systemError(ctx, tx, err, "domain resolution failed")
	}
	if len(names) == 0 {
		return models.DomainUnsupported(token, domain)
	}
	candidates := append([]string{domain}, names...)

	held, err := s.issuer.ActiveForOwner(ctx, userEmail)
	if err != nil {
		return s.systemError(ctx, tx, err, "failed to list held badges")
	}
	if existing, allHeld := matchAll(candidates, held); allHeld {
		return s.awardExisting(ctx, tx, userEmail, existing)
	}

	code, err := secrets.RandomToken(secrets.VerificationCodeBytes)
	if err != nil {
		return s.systemError(ctx, tx, err, "failed to mint verification code")
	}
	updated := *tx
	updated.State = models.StatePendingVerification
	updated.VerificationCode = code
	updated.UserEmail = userEmail
	updated.StartedAt = now
	updated.RetryCount = 0
	if err := s.txs.UpdateIf(ctx, &updated, models.StatePendingCredentials); err != nil {
		if errors.Is(err, sentinel.ErrStateMismatch) || errors.Is(err, sentinel.ErrNotFound) {
			return models.Terminal(models.OutcomeNotAuthorized)
		}
		return s.systemError(ctx, tx, err, "failed to advance transaction")
	}

	subject, body := notify.VerificationEmail(s.authority, tx.SponsorAppName, code, s.policy.VerificationWindow)
	if err := s.mailer.Send(ctx, userEmail, subject, body); err != nil {
		s.metrics.MailFailures.Inc()
		return s.systemError(ctx, tx, err, "failed to send verification email")
	}

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionEmailSubmitted,
		TransactionID: tx.ID,
		AppID:         tx.SponsorAppID,
		UserEmail:     userEmail,
	})
	return models.NeedCode(token, false)
}

// SubmitCode checks the emailed code for a PendingVerification transaction.
// The verification window is checked before the code, so a correct code
// arriving late is still a timeout refusal.
func (s *Service) SubmitCode(ctx context.Context, token, code string) models.Step {
	tx, err := s.txs.FindByID(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Terminal(models.OutcomeNotAuthorized)
		}
		return s.systemError(ctx, nil, err, "failed to load transaction")
	}
	if tx.State != models.StatePendingVerification {
		return models.Terminal(models.OutcomeNotAuthorized)
	}

	now := requestcontext.Now(ctx)
	if tx.Expired(now, s.policy.VerificationWindow) {
		return s.refuse(ctx, tx, models.RefusalUserTimeout, models.OutcomeRefusedTimeout)
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(tx.VerificationCode)) == 1 {
		return s.award(ctx, tx, now)
	}

	tx.RetryCount++
	if tx.RetryCount >= s.policy.RetryBudget {
		return s.refuse(ctx, tx, models.RefusalTooManyRetries, models.OutcomeRefusedTooManyRetries)
	}
	if err := s.txs.UpdateIf(ctx, tx, models.StatePendingVerification); err != nil {
		if errors.Is(err, sentinel.ErrStateMismatch) || errors.Is(err, sentinel.ErrNotFound) {
			return models.Terminal(models.OutcomeNotAuthorized)
		}
		return s.systemError(ctx, tx, err, "failed to record retry")
	}
	return models.NeedCode(token, true)
}

// RequestDomainSupport records an out-of-band plea to add a domain to the
// inference graph. Best-effort: the user always gets an acknowledgement.
func (s *Service) RequestDomainSupport(ctx context.Context, userEmail, domain string) {
	s.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionSupportRequested,
		UserEmail: userEmail,
		Detail:    domain,
	})
	subject, body := notify.SupportRequestEmail(s.authority, userEmail, domain)
	if err := s.mailer.Send(ctx, s.supportAddress, subject, body); err != nil {
		s.metrics.MailFailures.Inc()
		s.logger.ErrorContext(ctx, "failed to send support request mail",
			"domain", domain,
			"error", err,
		)
	}
}

// award mints the email-domain badge plus one badge per inferred name, then
// moves the transaction to Awarded and notifies the sponsor. The mint comes
// first: the state update is best-effort because a badge that exists must be
// reported even if the bookkeeping write loses a race.
func (s *Service) award(ctx context.Context, tx *models.Transaction, now time.Time) models.Step {
	domain := email.Domain(tx.UserEmail)
	names, err := s.resolver.Resolve(ctx, domain)
	if err != nil {
		return s.systemError(ctx, tx, err, "domain resolution failed at award")
	}

	expiresAt := now.Add(s.policy.BadgeValidity)
	badges := make([]badgeModel.Badge, 0, len(names)+1)
	minted, err := s.issuer.EnsureBadge(ctx, domain, tx.UserEmail, badgeModel.TypeEmail, &expiresAt, tx.SponsorAppID)
	if err != nil {
		return s.systemError(ctx, tx, err, "failed to mint email badge")
	}
	badges = append(badges, *minted)
	for _, name := range names {
		minted, err := s.issuer.EnsureBadge(ctx, name, tx.UserEmail, badgeModel.TypeInferred, &expiresAt, tx.SponsorAppID)
		if err != nil {
			return s.systemError(ctx, tx, err, "failed to mint inferred badge")
		}
		badges = append(badges, *minted)
	}

	updated := *tx
	updated.State = models.StateAwarded
	updated.VerificationCode = ""
	if err := s.txs.UpdateIf(ctx, &updated, models.StatePendingVerification); err != nil {
		s.logger.WarnContext(ctx, "award state update failed, badges stand",
			"transaction_id", tx.ID,
			"error", err,
		)
	}

	s.metrics.TransactionsAwarded.Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionBadgeAwarded,
		TransactionID: tx.ID,
		AppID:         tx.SponsorAppID,
		UserEmail:     tx.UserEmail,
	})

	if s.notifyGranted(ctx, tx, badges) {
		return models.Terminal(models.OutcomeGranted)
	}
	return models.Terminal(models.OutcomeGrantedNotAcknowledged)
}

// awardExisting is the fast path: every candidate badge already exists
// unexpired, so the sponsor is re-notified without minting anything.
func (s *Service) awardExisting(ctx context.Context, tx *models.Transaction, userEmail string, badges []badgeModel.Badge) models.Step {
	updated := *tx
	updated.State = models.StateAwarded
	updated.UserEmail = userEmail
	if err := s.txs.UpdateIf(ctx, &updated, models.StatePendingCredentials); err != nil {
		if errors.Is(err, sentinel.ErrStateMismatch) || errors.Is(err, sentinel.ErrNotFound) {
			return models.Terminal(models.OutcomeNotAuthorized)
		}
		return s.systemError(ctx, tx, err, "failed to close fast-path transaction")
	}

	s.metrics.TransactionsAwarded.Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionBadgeAwarded,
		TransactionID: tx.ID,
		AppID:         tx.SponsorAppID,
		UserEmail:     userEmail,
		Detail:        "existing badges",
	})

	if s.notifyGranted(ctx, tx, badges) {
		return models.Terminal(models.OutcomeAlreadyGranted)
	}
	return models.Terminal(models.OutcomeGrantedNotAcknowledged)
}

// refuse closes the transaction with reason and tells the sponsor. The
// sponsor's answer to a refusal does not matter.
func (s *Service) refuse(ctx context.Context, tx *models.Transaction, reason models.RefusalReason, outcome models.Outcome) models.Step {
	updated := *tx
	updated.State = models.StateRefused
	updated.RefusalReason = reason
	updated.VerificationCode = ""
	if err := s.txs.UpdateIf(ctx, &updated, models.StatePendingVerification); err != nil {
		if errors.Is(err, sentinel.ErrStateMismatch) || errors.Is(err, sentinel.ErrNotFound) {
			return models.Terminal(models.OutcomeNotAuthorized)
		}
		return s.systemError(ctx, tx, err, "failed to refuse transaction")
	}

	s.metrics.TransactionsRefused.WithLabelValues(string(reason)).Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionTransactionRefused,
		TransactionID: tx.ID,
		AppID:         tx.SponsorAppID,
		UserEmail:     tx.UserEmail,
		Detail:        string(reason),
	})
	if callbackURL, ok := s.callbackURL(ctx, tx); ok {
		s.notifier.NotifyRefused(ctx, callbackURL, tx.ID, string(reason))
	}
	return models.Terminal(outcome)
}

func (s *Service) notifyGranted(ctx context.Context, tx *models.Transaction, badges []badgeModel.Badge) bool {
	callbackURL, ok := s.callbackURL(ctx, tx)
	if !ok {
		return false
	}
	return s.notifier.NotifyGranted(ctx, callbackURL, tx.ID, badges)
}

// systemError logs the fault, tells the sponsor the transaction died and
// returns the opaque terminal step. tx may be nil when the fault precedes
// loading the record.
func (s *Service) systemError(ctx context.Context, tx *models.Transaction, err error, msg string) models.Step {
	attrs := []any{"error", err}
	if tx != nil {
		attrs = append(attrs, "transaction_id", tx.ID, "app_id", tx.SponsorAppID)
	}
	s.logger.ErrorContext(ctx, msg, attrs...)
	if tx != nil {
		if callbackURL, ok := s.callbackURL(ctx, tx); ok {
			s.notifier.NotifyServerError(ctx, callbackURL, tx.ID)
		}
	}
	return models.Terminal(models.OutcomeSystemError)
}

func (s *Service) callbackURL(ctx context.Context, tx *models.Transaction) (string, bool) {
	app, err := s.apps.Get(ctx, tx.SponsorAppID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load sponsor for callback",
			"transaction_id", tx.ID,
			"app_id", tx.SponsorAppID,
			"error", err,
		)
		return "", false
	}
	return app.CallbackURL(), true
}

// matchAll reports whether every candidate name appears among held, and
// returns the matching badges in candidate order when it does.
func matchAll(candidates []string, held []badgeModel.Badge) ([]badgeModel.Badge, bool) {
	byName := make(map[string]badgeModel.Badge, len(held))
	for _, badge := range held {
		byName[badge.Name] = badge
	}
	matched := make([]badgeModel.Badge, 0, len(candidates))
	for _, name := range candidates {
		badge, ok := byName[name]
		if !ok {
			return nil, false
		}
		matched = append(matched, badge)
	}
	return matched, true
}
