package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"signon/backend/internal/apperr"
	"signon/backend/internal/connector"
	"signon/backend/internal/passcode/domain"
)

type fakeStore struct {
	passcodes []*domain.Passcode
}

func (s *fakeStore) Create(ctx context.Context, p *domain.Passcode) error {
	cp := *p
	s.passcodes = append(s.passcodes, &cp)
	return nil
}

func (s *fakeStore) GetCurrent(ctx context.Context, jti string, typ domain.Type) (*domain.Passcode, error) {
	var latest *domain.Passcode
	for _, p := range s.passcodes {
		if p.JTI == jti && p.Type == typ && !p.Consumed && !p.Superseded {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeStore) IncrementTryCount(ctx context.Context, id string, max int) (bool, error) {
	for _, p := range s.passcodes {
		if p.ID == id && !p.Consumed && !p.Superseded && p.TryCount < max {
			p.TryCount++
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Consume(ctx context.Context, id string, max int) (bool, error) {
	for _, p := range s.passcodes {
		if p.ID == id && !p.Consumed && !p.Superseded && p.TryCount < max {
			p.Consumed = true
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) SupersedeByJTIAndType(ctx context.Context, jti string, typ domain.Type) error {
	for _, p := range s.passcodes {
		if p.JTI == jti && p.Type == typ {
			p.Superseded = true
		}
	}
	return nil
}

type fakeSender struct {
	sent    []string
	sendErr error
}

func (s *fakeSender) Send(ctx context.Context, to string, usage connector.UsageType, code string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, to)
	return nil
}

type fakeConnectors struct {
	sms   *fakeSender
	email *fakeSender
}

func (c *fakeConnectors) ActiveSender(ctx context.Context, typ connector.Type) (connector.Sender, error) {
	switch typ {
	case connector.TypeSMS:
		if c.sms != nil {
			return c.sms, nil
		}
	case connector.TypeEmail:
		if c.email != nil {
			return c.email, nil
		}
	}
	return nil, apperr.New(apperr.ConnectorNotFound, map[string]any{"type": string(typ)})
}

type devRecorder struct {
	codes map[string]string
}

func (d *devRecorder) Record(jti string, typ domain.Type, code string) {
	if d.codes == nil {
		d.codes = map[string]string{}
	}
	d.codes[jti+"/"+string(typ)] = code
}

func newTestEngine(cfg Config) (*Engine, *fakeStore, *fakeConnectors, *devRecorder) {
	store := &fakeStore{}
	connectors := &fakeConnectors{sms: &fakeSender{}, email: &fakeSender{}}
	dev := &devRecorder{}
	engine := NewEngine(Deps{Store: store, Connectors: connectors, Dev: dev}, cfg)
	return engine, store, connectors, dev
}

// issuedCode returns the cleartext code the dev sink captured for the session.
func issuedCode(t *testing.T, dev *devRecorder, jti string, typ domain.Type) string {
	t.Helper()
	code, ok := dev.codes[jti+"/"+string(typ)]
	if !ok {
		t.Fatalf("no dev code recorded for %s/%s", jti, typ)
	}
	return code
}

func TestCreateAndSend_SMS(t *testing.T) {
	engine, store, connectors, _ := newTestEngine(Config{})
	ctx := context.Background()

	err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, domain.Recipient{Phone: "+14155550100"})
	if err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	if len(connectors.sms.sent) != 1 || connectors.sms.sent[0] != "+14155550100" {
		t.Errorf("sms sent = %v, want one delivery to +14155550100", connectors.sms.sent)
	}
	cur, _ := store.GetCurrent(ctx, "jti-1", domain.TypeSignIn)
	if cur == nil {
		t.Fatal("no passcode persisted")
	}
	if cur.Phone != "+14155550100" {
		t.Errorf("persisted phone = %q, want %q", cur.Phone, "+14155550100")
	}
	if len(cur.CodeHash) != 64 {
		t.Errorf("code hash length = %d, want 64", len(cur.CodeHash))
	}
}

func TestCreateAndSend_EmptyRecipient(t *testing.T) {
	engine, _, _, _ := newTestEngine(Config{})
	err := engine.CreateAndSend(context.Background(), "jti-1", domain.TypeSignIn, domain.Recipient{})
	if !apperr.Is(err, apperr.PasscodePhoneEmailEmpty) {
		t.Fatalf("CreateAndSend() error = %v, want passcode.phone_email_empty", err)
	}
}

func TestCreateAndSend_NoActiveConnector(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(Deps{Store: store, Connectors: &fakeConnectors{}}, Config{})

	err := engine.CreateAndSend(context.Background(), "jti-1", domain.TypeSignIn, domain.Recipient{Email: "a@b.com"})
	if !apperr.Is(err, apperr.ConnectorNotFound) {
		t.Fatalf("CreateAndSend() error = %v, want connector.not_found", err)
	}
	if len(store.passcodes) != 0 {
		t.Errorf("passcode persisted despite missing connector")
	}
}

func TestCreateAndSend_SendFailureWrapped(t *testing.T) {
	store := &fakeStore{}
	connectors := &fakeConnectors{email: &fakeSender{sendErr: errors.New("provider down")}}
	engine := NewEngine(Deps{Store: store, Connectors: connectors}, Config{})

	err := engine.CreateAndSend(context.Background(), "jti-1", domain.TypeRegister, domain.Recipient{Email: "a@b.com"})
	if !apperr.Is(err, apperr.ConnectorGeneral) {
		t.Fatalf("CreateAndSend() error = %v, want connector.general", err)
	}
	// The record survives the failed dispatch.
	if len(store.passcodes) != 1 {
		t.Errorf("stored passcodes = %d, want 1 (record kept after send failure)", len(store.passcodes))
	}
}

func TestCreateAndSend_ReplacesPriorCode(t *testing.T) {
	engine, store, _, dev := newTestEngine(Config{})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("first CreateAndSend() error = %v", err)
	}
	first := issuedCode(t, dev, "jti-1", domain.TypeSignIn)
	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("second CreateAndSend() error = %v", err)
	}

	if len(store.passcodes) != 2 {
		t.Fatalf("stored passcodes = %d, want 2 (prior superseded, not deleted)", len(store.passcodes))
	}
	if !store.passcodes[0].Superseded {
		t.Error("prior passcode not marked superseded")
	}
	if store.passcodes[1].Superseded {
		t.Error("fresh passcode marked superseded")
	}
	// The first code must no longer verify.
	err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, first)
	if err == nil {
		t.Fatal("first code still verifies after reissue")
	}
}

func TestCreateAndSend_KeepsConsumedHistory(t *testing.T) {
	engine, store, _, dev := newTestEngine(Config{})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)
	if err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, code); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("reissue CreateAndSend() error = %v", err)
	}

	if len(store.passcodes) != 2 {
		t.Fatalf("stored passcodes = %d, want 2 (consumed record kept)", len(store.passcodes))
	}
	consumed := 0
	for _, p := range store.passcodes {
		if p.Consumed {
			consumed++
		}
	}
	if consumed != 1 {
		t.Errorf("consumed records = %d, want 1", consumed)
	}
}

func TestValidate_Success(t *testing.T) {
	engine, store, _, dev := newTestEngine(Config{})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)

	if err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, code); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(store.passcodes) != 1 || !store.passcodes[0].Consumed {
		t.Error("passcode not marked consumed after successful validation")
	}
	// Consumed: a second submission of the same code fails.
	err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, code)
	if !apperr.Is(err, apperr.PasscodeNotFound) {
		t.Fatalf("second Validate() error = %v, want passcode.not_found", err)
	}
}

func TestValidate_NotFound(t *testing.T) {
	engine, _, _, _ := newTestEngine(Config{})
	err := engine.Validate(context.Background(), "jti-1", domain.TypeSignIn, domain.Recipient{Email: "a@b.com"}, "123456")
	if !apperr.Is(err, apperr.PasscodeNotFound) {
		t.Fatalf("Validate() error = %v, want passcode.not_found", err)
	}
}

func TestValidate_Expired(t *testing.T) {
	engine, _, _, dev := newTestEngine(Config{TTL: 10 * time.Minute})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)

	engine.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, code)
	if !apperr.Is(err, apperr.PasscodeExpired) {
		t.Fatalf("Validate() error = %v, want passcode.expired", err)
	}
}

func TestValidate_WrongCodeBurnsAttempt(t *testing.T) {
	engine, store, _, dev := newTestEngine(Config{MaxTry: 3})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, wrong)
	if !apperr.Is(err, apperr.PasscodeCodeMismatch) {
		t.Fatalf("Validate() error = %v, want passcode.code_mismatch", err)
	}
	cur, _ := store.GetCurrent(ctx, "jti-1", domain.TypeSignIn)
	if cur.TryCount != 1 {
		t.Errorf("try count = %d, want 1", cur.TryCount)
	}
}

func TestValidate_ExceedMaxTry(t *testing.T) {
	engine, _, _, dev := newTestEngine(Config{MaxTry: 2})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 2; i++ {
		if err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, wrong); err == nil {
			t.Fatal("wrong code accepted")
		}
	}
	// Attempts exhausted: even the correct code is rejected.
	err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, to, code)
	if !apperr.Is(err, apperr.PasscodeExceedMaxTry) {
		t.Fatalf("Validate() error = %v, want passcode.exceed_max_try", err)
	}
}

func TestValidate_RecipientMismatchDoesNotBurnAttempt(t *testing.T) {
	engine, store, _, dev := newTestEngine(Config{})
	ctx := context.Background()

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, domain.Recipient{Phone: "+14155550100"}); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)

	err := engine.Validate(ctx, "jti-1", domain.TypeSignIn, domain.Recipient{Phone: "+14155550199"}, code)
	if !apperr.Is(err, apperr.PasscodePhoneMismatch) {
		t.Fatalf("Validate() error = %v, want passcode.phone_mismatch", err)
	}
	cur, _ := store.GetCurrent(ctx, "jti-1", domain.TypeSignIn)
	if cur.TryCount != 0 {
		t.Errorf("try count = %d, want 0 (mismatch must not burn attempts)", cur.TryCount)
	}
}

func TestValidate_EmailMismatch(t *testing.T) {
	engine, _, _, dev := newTestEngine(Config{})
	ctx := context.Background()

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeRegister, domain.Recipient{Email: "a@b.com"}); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeRegister)

	err := engine.Validate(ctx, "jti-1", domain.TypeRegister, domain.Recipient{Email: "other@b.com"}, code)
	if !apperr.Is(err, apperr.PasscodeEmailMismatch) {
		t.Fatalf("Validate() error = %v, want passcode.email_mismatch", err)
	}
}

func TestValidate_ScopedToFlowType(t *testing.T) {
	engine, _, _, dev := newTestEngine(Config{})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)

	// A SignIn code must not verify a Register flow.
	err := engine.Validate(ctx, "jti-1", domain.TypeRegister, to, code)
	if !apperr.Is(err, apperr.PasscodeNotFound) {
		t.Fatalf("Validate() error = %v, want passcode.not_found", err)
	}
}

func TestValidate_ScopedToSession(t *testing.T) {
	engine, _, _, dev := newTestEngine(Config{})
	ctx := context.Background()
	to := domain.Recipient{Email: "a@b.com"}

	if err := engine.CreateAndSend(ctx, "jti-1", domain.TypeSignIn, to); err != nil {
		t.Fatalf("CreateAndSend() error = %v", err)
	}
	code := issuedCode(t, dev, "jti-1", domain.TypeSignIn)

	err := engine.Validate(ctx, "jti-2", domain.TypeSignIn, to, code)
	if !apperr.Is(err, apperr.PasscodeNotFound) {
		t.Fatalf("Validate() error = %v, want passcode.not_found", err)
	}
}
