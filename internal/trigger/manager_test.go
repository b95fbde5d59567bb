package trigger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragicflow/internal/ragic"
	"ragicflow/internal/store"
	"ragicflow/internal/types"
)

// fakeRagic records registrations per sheet.
type fakeRagic struct {
	hooks map[string]map[string]string // sheet -> callback -> event
	calls []string
	fail  error
}

type fakeSheet struct {
	r     *fakeRagic
	sheet string
}

func (f *fakeRagic) factory(creds ragic.TriggerCredentials) (Subscriber, error) {
	if _, err := ragic.ParseSheetURL(creds.SheetURL); err != nil {
		return nil, err
	}
	return &fakeSheet{r: f, sheet: creds.SheetURL}, nil
}

func (s *fakeSheet) WebhookExists(_ context.Context, callbackURL string) (bool, error) {
	s.r.calls = append(s.r.calls, "check "+s.sheet)
	_, ok := s.r.hooks[s.sheet][callbackURL]
	return ok, s.r.fail
}

func (s *fakeSheet) Subscribe(_ context.Context, callbackURL, event string) error {
	s.r.calls = append(s.r.calls, "subscribe "+s.sheet)
	if s.r.hooks[s.sheet] == nil {
		s.r.hooks[s.sheet] = map[string]string{}
	}
	s.r.hooks[s.sheet][callbackURL] = event
	return nil
}

func (s *fakeSheet) Unsubscribe(_ context.Context, callbackURL, _ string) error {
	s.r.calls = append(s.r.calls, "unsubscribe "+s.sheet)
	delete(s.r.hooks[s.sheet], callbackURL)
	return nil
}

const (
	sheetA = "https://ap5.ragic.com/acme/sales/1"
	sheetB = "https://ap5.ragic.com/acme/sales/2"
)

func newTestManager(t *testing.T) (*Manager, *fakeRagic) {
	t.Helper()
	fake := &fakeRagic{hooks: map[string]map[string]string{}}
	m := NewManager(Config{PublicURL: "https://flows.example.com/", APIKey: "key", DefaultSheetURL: sheetA},
		store.NewMemoryStore(), nil, WithClientFactory(fake.factory))
	return m, fake
}

func ragicFlow(name, sheet, event string) *types.FlowDef {
	return &types.FlowDef{Name: name, Trigger: &types.TriggerDef{Type: types.TriggerRagic, SheetURL: sheet, Event: event}}
}

func TestActivateSubscribesOnce(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	sub, err := m.Activate(ctx, ragicFlow("orders", "", ""))
	require.NoError(t, err)
	assert.Equal(t, sheetA, sub.SheetURL)
	assert.Equal(t, ragic.DefaultWebhookEvent, sub.Event)
	assert.True(t, strings.HasPrefix(sub.CallbackURL, "https://flows.example.com/webhook/"))
	assert.Equal(t, m.CallbackURL(sub.WebhookID), sub.CallbackURL)
	assert.True(t, sub.Active())

	again, err := m.Activate(ctx, ragicFlow("orders", "", ""))
	require.NoError(t, err)
	assert.Equal(t, sub.WebhookID, again.WebhookID, "webhook ID must be stable")

	assert.Equal(t, []string{"check " + sheetA, "subscribe " + sheetA, "check " + sheetA}, fake.calls)

	flow, err := m.Lookup(sub.WebhookID)
	require.NoError(t, err)
	assert.Equal(t, "orders", flow)
}

func TestActivateMovesToNewSheet(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	first, err := m.Activate(ctx, ragicFlow("orders", sheetA, "create"))
	require.NoError(t, err)

	moved, err := m.Activate(ctx, ragicFlow("orders", sheetB, "update"))
	require.NoError(t, err)
	assert.Equal(t, first.WebhookID, moved.WebhookID)
	assert.Empty(t, fake.hooks[sheetA])
	assert.Equal(t, "update", fake.hooks[sheetB][moved.CallbackURL])
}

func TestDeactivateKeepsWebhookID(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	sub, err := m.Activate(ctx, ragicFlow("orders", "", ""))
	require.NoError(t, err)

	require.NoError(t, m.Deactivate(ctx, "orders"))
	assert.Empty(t, fake.hooks[sheetA])

	_, err = m.Lookup(sub.WebhookID)
	assert.ErrorIs(t, err, ErrInactive)

	subs, err := m.Subscriptions()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].Active())

	again, err := m.Activate(ctx, ragicFlow("orders", "", ""))
	require.NoError(t, err)
	assert.Equal(t, sub.CallbackURL, again.CallbackURL)

	// Deactivating twice, or an unknown flow, is a no-op.
	require.NoError(t, m.Deactivate(ctx, "orders"))
	calls := len(fake.calls)
	require.NoError(t, m.Deactivate(ctx, "orders"))
	assert.Len(t, fake.calls, calls)
	assert.NoError(t, m.Deactivate(ctx, "missing"))
}

func TestForget(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	sub, err := m.Activate(ctx, ragicFlow("orders", "", ""))
	require.NoError(t, err)

	require.NoError(t, m.Forget(ctx, "orders"))
	assert.Empty(t, fake.hooks[sheetA])
	_, err = m.Lookup(sub.WebhookID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestActivateErrors(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	_, err := m.Activate(ctx, &types.FlowDef{Name: "plain"})
	assert.ErrorIs(t, err, ErrNotRagicTrigger)

	_, err = m.Activate(ctx, ragicFlow("bad", "https://ap5.ragic.com", ""))
	assert.ErrorIs(t, err, ragic.ErrInvalidSheetURL)

	fake.fail = errors.New("boom")
	_, err = m.Activate(ctx, ragicFlow("orders", "", ""))
	assert.ErrorContains(t, err, "boom")
	subs, err := m.Subscriptions()
	require.NoError(t, err)
	assert.Empty(t, subs, "failed activation must not be recorded")

	noURL := NewManager(Config{}, store.NewMemoryStore(), nil, WithClientFactory(fake.factory))
	_, err = noURL.Activate(ctx, ragicFlow("orders", sheetA, ""))
	assert.ErrorIs(t, err, ErrNoPublicURL)
}

func TestActivateAllAndDeactivateAll(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	flows := []*types.FlowDef{
		ragicFlow("orders", sheetA, ""),
		ragicFlow("invoices", sheetB, ""),
		{Name: "manual"},
		{Name: "hook", Trigger: &types.TriggerDef{Type: types.TriggerWebhook, Path: "/hook"}},
	}
	require.NoError(t, m.ActivateAll(ctx, flows))

	subs, err := m.Subscriptions()
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "invoices", subs[0].Flow)

	require.NoError(t, m.DeactivateAll(ctx))
	assert.Empty(t, fake.hooks[sheetA])
	assert.Empty(t, fake.hooks[sheetB])
}
