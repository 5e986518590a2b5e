package interaction

import (
	"context"
	"testing"
	"time"

	"signon/backend/internal/apperr"
	"signon/backend/internal/connector"
	"signon/backend/internal/user/domain"
)

type fakeAccounts struct {
	users      []*domain.User
	identities []*domain.SocialIdentity
}

func (a *fakeAccounts) GetByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range a.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (a *fakeAccounts) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range a.users {
		if u.PrimaryEmail == email {
			return u, nil
		}
	}
	return nil, nil
}

func (a *fakeAccounts) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	for _, u := range a.users {
		if u.PrimaryPhone == phone {
			return u, nil
		}
	}
	return nil, nil
}

func (a *fakeAccounts) GetBySocialIdentity(ctx context.Context, target, providerUserID string) (*domain.User, error) {
	for _, s := range a.identities {
		if s.Target == target && s.ProviderUserID == providerUserID {
			return a.GetByID(ctx, s.UserID)
		}
	}
	return nil, nil
}

func (a *fakeAccounts) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range a.users {
		if u.PrimaryEmail != "" && existing.PrimaryEmail == u.PrimaryEmail {
			return apperr.New(apperr.UserEmailAlreadyInUse, nil)
		}
		if u.PrimaryPhone != "" && existing.PrimaryPhone == u.PrimaryPhone {
			return apperr.New(apperr.UserPhoneAlreadyInUse, nil)
		}
	}
	cp := *u
	a.users = append(a.users, &cp)
	return nil
}

func (a *fakeAccounts) BindSocialIdentity(ctx context.Context, identity *domain.SocialIdentity) error {
	for _, s := range a.identities {
		if s.Target == identity.Target && s.ProviderUserID == identity.ProviderUserID {
			return apperr.New(apperr.UserIdentityAlreadyInUse, nil)
		}
	}
	cp := *identity
	a.identities = append(a.identities, &cp)
	return nil
}

func (a *fakeAccounts) UpdateLastSignIn(ctx context.Context, id string, at time.Time) error {
	for _, u := range a.users {
		if u.ID == id {
			t := at
			u.LastSignInAt = &t
		}
	}
	return nil
}

func seededAccounts() *fakeAccounts {
	return &fakeAccounts{
		users: []*domain.User{
			{ID: "user-1", PrimaryEmail: "alice@example.com", PrimaryPhone: "+14155550100"},
			{ID: "user-2"},
		},
		identities: []*domain.SocialIdentity{
			{UserID: "user-2", Target: "github", ConnectorID: "github-universal", ProviderUserID: "77"},
		},
	}
}

func TestResolve_AccountID(t *testing.T) {
	resolver := NewResolver(seededAccounts())
	ctx := context.Background()

	decision, err := resolver.Resolve(ctx, FlowSignIn, AccountID("user-1"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if decision.User == nil || decision.User.ID != "user-1" {
		t.Errorf("decision user = %+v, want user-1", decision.User)
	}

	_, err = resolver.Resolve(ctx, FlowSignIn, AccountID("missing"))
	if !apperr.Is(err, apperr.UserNotExist) {
		t.Fatalf("Resolve(missing id) error = %v, want user.user_not_exist", err)
	}
}

func TestResolve_EmailSignIn(t *testing.T) {
	resolver := NewResolver(seededAccounts())
	ctx := context.Background()

	decision, err := resolver.Resolve(ctx, FlowSignIn, VerifiedEmail("alice@example.com"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if decision.User.ID != "user-1" {
		t.Errorf("user id = %q, want user-1", decision.User.ID)
	}

	_, err = resolver.Resolve(ctx, FlowSignIn, VerifiedEmail("nobody@example.com"))
	if !apperr.Is(err, apperr.UserNotExist) {
		t.Fatalf("Resolve(unknown email) error = %v, want user.user_not_exist", err)
	}
}

func TestResolve_EmailRegister(t *testing.T) {
	resolver := NewResolver(seededAccounts())
	ctx := context.Background()

	decision, err := resolver.Resolve(ctx, FlowRegister, VerifiedEmail("new@example.com"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !decision.NewAccount {
		t.Error("decision.NewAccount = false, want true")
	}

	_, err = resolver.Resolve(ctx, FlowRegister, VerifiedEmail("alice@example.com"))
	if !apperr.Is(err, apperr.UserEmailAlreadyInUse) {
		t.Fatalf("Resolve(taken email) error = %v, want user.email_already_in_use", err)
	}
}

func TestResolve_PhoneForgotPassword(t *testing.T) {
	resolver := NewResolver(seededAccounts())
	ctx := context.Background()

	decision, err := resolver.Resolve(ctx, FlowForgotPassword, VerifiedPhone("+14155550100"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if decision.User.ID != "user-1" {
		t.Errorf("user id = %q, want user-1", decision.User.ID)
	}

	// Recovery never creates accounts.
	_, err = resolver.Resolve(ctx, FlowForgotPassword, VerifiedPhone("+14155559999"))
	if !apperr.Is(err, apperr.UserNotExist) {
		t.Fatalf("Resolve(unknown phone) error = %v, want user.user_not_exist", err)
	}
}

func TestResolve_SocialBound(t *testing.T) {
	resolver := NewResolver(seededAccounts())
	ctx := context.Background()
	bound := Social("github-universal", "github", &connector.SocialProfile{ID: "77"})

	decision, err := resolver.Resolve(ctx, FlowSignIn, bound)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if decision.User.ID != "user-2" {
		t.Errorf("user id = %q, want user-2", decision.User.ID)
	}

	_, err = resolver.Resolve(ctx, FlowRegister, bound)
	if !apperr.Is(err, apperr.UserIdentityAlreadyInUse) {
		t.Fatalf("Resolve(bound social, register) error = %v, want user.identity_already_in_use", err)
	}
}

func TestResolve_SocialUnboundAnyFlow(t *testing.T) {
	resolver := NewResolver(seededAccounts())
	ctx := context.Background()
	unbound := Social("github-universal", "github", &connector.SocialProfile{ID: "999", Name: "New Person"})

	for _, flow := range []Flow{FlowSignIn, FlowRegister} {
		decision, err := resolver.Resolve(ctx, flow, unbound)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", flow, err)
		}
		if !decision.NewAccount {
			t.Errorf("Resolve(%s).NewAccount = false, want true", flow)
		}
	}
}

func TestProvision_EmailAccount(t *testing.T) {
	accounts := seededAccounts()
	resolver := NewResolver(accounts)
	ctx := context.Background()

	decision, err := resolver.Resolve(ctx, FlowRegister, VerifiedEmail("new@example.com"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	u, err := resolver.Provision(ctx, decision)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if u.PrimaryEmail != "new@example.com" {
		t.Errorf("primary email = %q, want new@example.com", u.PrimaryEmail)
	}
	if got, _ := accounts.GetByEmail(ctx, "new@example.com"); got == nil {
		t.Error("account not persisted")
	}
}

func TestProvision_SocialAccountBindsIdentity(t *testing.T) {
	accounts := seededAccounts()
	resolver := NewResolver(accounts)
	ctx := context.Background()
	profile := &connector.SocialProfile{ID: "999", Name: "New Person", Avatar: "https://a.example/p.png"}

	decision, err := resolver.Resolve(ctx, FlowSignIn, Social("github-universal", "github", profile))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	u, err := resolver.Provision(ctx, decision)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if u.Name != "New Person" {
		t.Errorf("name = %q, want New Person", u.Name)
	}
	bound, _ := accounts.GetBySocialIdentity(ctx, "github", "999")
	if bound == nil || bound.ID != u.ID {
		t.Errorf("identity not bound to new account, got %+v", bound)
	}
}

func TestProvision_RejectsExistingAccountDecision(t *testing.T) {
	resolver := NewResolver(seededAccounts())
	ctx := context.Background()

	decision, err := resolver.Resolve(ctx, FlowSignIn, AccountID("user-1"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := resolver.Provision(ctx, decision); !apperr.Is(err, apperr.RequestInvalidInput) {
		t.Fatalf("Provision(existing) error = %v, want request.invalid_input", err)
	}
}

func TestRecordSignIn(t *testing.T) {
	accounts := seededAccounts()
	resolver := NewResolver(accounts)
	ctx := context.Background()

	if err := resolver.RecordSignIn(ctx, "user-1"); err != nil {
		t.Fatalf("RecordSignIn() error = %v", err)
	}
	u, _ := accounts.GetByID(ctx, "user-1")
	if u.LastSignInAt == nil {
		t.Error("last sign-in not recorded")
	}
}
