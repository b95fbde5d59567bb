package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragicflow/internal/ragic"
	"ragicflow/internal/store"
	"ragicflow/internal/types"
)

// CallbackPrefix is the server path incoming Ragic callbacks arrive on.
const CallbackPrefix = "/webhook/"

var (
	ErrNotRagicTrigger = errors.New("flow has no ragic trigger")
	ErrNoPublicURL     = errors.New("public_url is not configured")
	ErrInactive        = errors.New("webhook is not active")
)

// Subscriber manages webhook registrations on one sheet.
type Subscriber interface {
	WebhookExists(ctx context.Context, callbackURL string) (bool, error)
	Subscribe(ctx context.Context, callbackURL, event string) error
	Unsubscribe(ctx context.Context, callbackURL, event string) error
}

// ClientFactory builds a Subscriber for the given credentials.
type ClientFactory func(creds ragic.TriggerCredentials) (Subscriber, error)

// Config holds what the manager needs to register callbacks.
type Config struct {
	PublicURL       string
	APIKey          string
	DefaultSheetURL string
	Timeout         time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithClientFactory replaces the Ragic trigger client, mainly for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) { m.newClient = f }
}

// Manager keeps the Ragic webhook of every ragic-triggered flow registered.
// Each flow gets a stable webhook ID, so its callback URL survives restarts.
type Manager struct {
	cfg       Config
	store     store.Store
	log       *zap.SugaredLogger
	newClient ClientFactory
	mu        sync.Mutex
}

func NewManager(cfg Config, st store.Store, log *zap.SugaredLogger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	m := &Manager{cfg: cfg, store: st, log: log}
	m.newClient = func(creds ragic.TriggerCredentials) (Subscriber, error) {
		return ragic.NewTriggerClient(creds, ragic.WithTimeout(cfg.Timeout), ragic.WithLogger(log))
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CallbackURL is the URL Ragic calls for webhookID.
func (m *Manager) CallbackURL(webhookID string) string {
	return m.cfg.PublicURL + CallbackPrefix + webhookID
}

// Activate makes sure the flow's webhook is registered on its sheet and
// records the subscription. Registering twice is a no-op.
func (m *Manager) Activate(ctx context.Context, flow *types.FlowDef) (store.Subscription, error) {
	if flow == nil || flow.Trigger == nil || flow.Trigger.Type != types.TriggerRagic {
		return store.Subscription{}, ErrNotRagicTrigger
	}
	if m.cfg.PublicURL == "" {
		return store.Subscription{}, ErrNoPublicURL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sheetURL := flow.Trigger.SheetURL
	if sheetURL == "" {
		sheetURL = m.cfg.DefaultSheetURL
	}
	event := flow.Trigger.Event
	if event == "" {
		event = ragic.DefaultWebhookEvent
	}

	sub, err := m.store.Get(flow.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		sub = store.Subscription{
			Flow:      flow.Name,
			WebhookID: uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		}
	case err != nil:
		return store.Subscription{}, fmt.Errorf("load subscription for %s: %w", flow.Name, err)
	case sub.Active() && (sub.SheetURL != sheetURL || sub.Event != event):
		// The flow moved to another sheet or event; drop the stale registration.
		if err := m.unsubscribe(ctx, sub); err != nil {
			m.log.Warnw("failed to remove stale webhook", "flow", flow.Name, "sheet", sub.SheetURL, "error", err)
		}
		sub.ActivatedAt = time.Time{}
	}

	sub.SheetURL = sheetURL
	sub.Event = event
	sub.CallbackURL = m.CallbackURL(sub.WebhookID)

	client, err := m.client(sheetURL)
	if err != nil {
		return store.Subscription{}, fmt.Errorf("activate %s: %w", flow.Name, err)
	}

	exists, err := client.WebhookExists(ctx, sub.CallbackURL)
	if err != nil {
		return store.Subscription{}, fmt.Errorf("activate %s: check webhook: %w", flow.Name, err)
	}
	if !exists {
		if err := client.Subscribe(ctx, sub.CallbackURL, event); err != nil {
			return store.Subscription{}, fmt.Errorf("activate %s: subscribe: %w", flow.Name, err)
		}
		m.log.Infow("webhook subscribed", "flow", flow.Name, "sheet", sheetURL, "event", event, "callback", sub.CallbackURL)
	} else {
		m.log.Debugw("webhook already registered", "flow", flow.Name, "callback", sub.CallbackURL)
	}

	sub.ActivatedAt = time.Now().UTC()
	if err := m.store.Put(sub); err != nil {
		return store.Subscription{}, fmt.Errorf("save subscription for %s: %w", flow.Name, err)
	}
	return sub, nil
}

// Deactivate unsubscribes the flow's webhook. The record, and so the webhook
// ID, is kept for the next activation. Unknown or inactive flows are ignored.
func (m *Manager) Deactivate(ctx context.Context, flowName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.store.Get(flowName)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load subscription for %s: %w", flowName, err)
	}
	if !sub.Active() {
		return nil
	}

	if err := m.unsubscribe(ctx, sub); err != nil {
		return fmt.Errorf("deactivate %s: %w", flowName, err)
	}
	m.log.Infow("webhook unsubscribed", "flow", flowName, "sheet", sub.SheetURL, "callback", sub.CallbackURL)

	sub.ActivatedAt = time.Time{}
	return m.store.Put(sub)
}

// Forget deactivates the flow and drops its record, so a later activation
// registers a new callback URL.
func (m *Manager) Forget(ctx context.Context, flowName string) error {
	if err := m.Deactivate(ctx, flowName); err != nil {
		return err
	}
	return m.store.Delete(flowName)
}

// ActivateAll activates every ragic-triggered flow and reports all failures together.
func (m *Manager) ActivateAll(ctx context.Context, flows []*types.FlowDef) error {
	var errs []error
	for _, flow := range flows {
		if flow.Trigger == nil || flow.Trigger.Type != types.TriggerRagic {
			continue
		}
		if _, err := m.Activate(ctx, flow); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeactivateAll deactivates every active subscription.
func (m *Manager) DeactivateAll(ctx context.Context) error {
	subs, err := m.store.List()
	if err != nil {
		return err
	}
	var errs []error
	for _, sub := range subs {
		if !sub.Active() {
			continue
		}
		if err := m.Deactivate(ctx, sub.Flow); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lookup resolves a webhook ID from a callback path to its flow name.
// Deactivated subscriptions keep their ID but resolve to ErrInactive.
func (m *Manager) Lookup(webhookID string) (string, error) {
	sub, err := m.store.FindByWebhookID(webhookID)
	if err != nil {
		return "", err
	}
	if !sub.Active() {
		return "", ErrInactive
	}
	return sub.Flow, nil
}

// Subscriptions lists the recorded subscriptions.
func (m *Manager) Subscriptions() ([]store.Subscription, error) {
	return m.store.List()
}

func (m *Manager) unsubscribe(ctx context.Context, sub store.Subscription) error {
	client, err := m.client(sub.SheetURL)
	if err != nil {
		return err
	}
	return client.Unsubscribe(ctx, sub.CallbackURL, sub.Event)
}

func (m *Manager) client(sheetURL string) (Subscriber, error) {
	return m.newClient(ragic.TriggerCredentials{APIKey: m.cfg.APIKey, SheetURL: sheetURL})
}
