package application

import (
	"context"
	"io"
	"time"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
	"github.com/fulfillment-platform/portal/pkg/idempotency"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/outbox"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "test",
		Output:      io.Discard,
	})
}

// fakeLedgerStore is an in-memory LedgerStore. Outbox events handed to
// AppendWithEvents are captured for assertions.
type fakeLedgerStore struct {
	entries []*domain.LedgerEntry
	events  []*outbox.OutboxEvent
	failOn  error
}

func (f *fakeLedgerStore) Append(_ context.Context, entry *domain.LedgerEntry) error {
	if f.failOn != nil {
		return f.failOn
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerStore) AppendAll(_ context.Context, entries []*domain.LedgerEntry) error {
	if f.failOn != nil {
		return f.failOn
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeLedgerStore) AppendWithEvents(_ context.Context, entries []*domain.LedgerEntry, events []*outbox.OutboxEvent) error {
	if f.failOn != nil {
		return f.failOn
	}
	f.entries = append(f.entries, entries...)
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeLedgerStore) CurrentQuantity(_ context.Context, clientID, skuID, locationID string) (int, error) {
	total := 0
	for _, e := range f.entries {
		if e.ClientID != clientID || e.SKUID != skuID {
			continue
		}
		if locationID != "" && e.LocationID != locationID {
			continue
		}
		total += e.QtyDelta
	}
	return total, nil
}

func (f *fakeLedgerStore) FindBySKU(_ context.Context, clientID, skuID string, _ domain.Pagination) ([]*domain.LedgerEntry, error) {
	out := make([]*domain.LedgerEntry, 0)
	for _, e := range f.entries {
		if e.ClientID == clientID && e.SKUID == skuID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) FindBySourceRef(_ context.Context, clientID, sourceType, sourceRef string) ([]*domain.LedgerEntry, error) {
	out := make([]*domain.LedgerEntry, 0)
	for _, e := range f.entries {
		if e.ClientID == clientID && e.SourceType == sourceType && e.SourceRef == sourceRef {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) HasEntriesForSKU(_ context.Context, clientID, skuID string) (bool, error) {
	for _, e := range f.entries {
		if e.ClientID == clientID && e.SKUID == skuID {
			return true, nil
		}
	}
	return false, nil
}

// pushEventCount counts inventory push requests captured by the store
func (f *fakeLedgerStore) pushEventCount() int {
	count := 0
	for _, e := range f.events {
		if e.EventType == cloudevents.InventoryPushRequested {
			count++
		}
	}
	return count
}

type fakeSKURepo struct {
	skus map[string]*domain.SKU
}

func newFakeSKURepo() *fakeSKURepo {
	return &fakeSKURepo{skus: make(map[string]*domain.SKU)}
}

func (f *fakeSKURepo) Save(_ context.Context, sku *domain.SKU) error {
	f.skus[sku.ClientID+"|"+sku.SKUID] = sku
	return nil
}

func (f *fakeSKURepo) FindByID(_ context.Context, clientID, skuID string) (*domain.SKU, error) {
	sku, ok := f.skus[clientID+"|"+skuID]
	if !ok {
		return nil, domain.ErrSKUNotFound
	}
	return sku, nil
}

func (f *fakeSKURepo) FindByClientSKU(_ context.Context, clientID, clientSKU string) (*domain.SKU, error) {
	for _, sku := range f.skus {
		if sku.ClientID == clientID && sku.ClientSKU == clientSKU && sku.IsActive() {
			return sku, nil
		}
	}
	return nil, domain.ErrSKUNotFound
}

func (f *fakeSKURepo) FindByClient(_ context.Context, clientID string, includeDeleted bool, _ domain.Pagination) ([]*domain.SKU, error) {
	out := make([]*domain.SKU, 0)
	for _, sku := range f.skus {
		if sku.ClientID != clientID {
			continue
		}
		if !includeDeleted && !sku.IsActive() {
			continue
		}
		out = append(out, sku)
	}
	return out, nil
}

func (f *fakeSKURepo) HardDelete(_ context.Context, clientID, skuID string) error {
	key := clientID + "|" + skuID
	if _, ok := f.skus[key]; !ok {
		return domain.ErrSKUNotFound
	}
	delete(f.skus, key)
	return nil
}

func (f *fakeSKURepo) Count(_ context.Context, clientID string, includeDeleted bool) (int64, error) {
	list, _ := f.FindByClient(context.Background(), clientID, includeDeleted, domain.DefaultPagination())
	return int64(len(list)), nil
}

type fakeAliasRepo struct {
	aliases []*domain.SKUAlias
}

func (f *fakeAliasRepo) Upsert(_ context.Context, alias *domain.SKUAlias) error {
	for _, a := range f.aliases {
		if a.ClientID == alias.ClientID && a.AliasType == alias.AliasType && a.AliasValue == alias.AliasValue {
			if a.SKUID == alias.SKUID {
				return nil
			}
			return domain.ErrAliasAlreadyExists
		}
	}
	f.aliases = append(f.aliases, alias)
	return nil
}

func (f *fakeAliasRepo) FindByAlias(_ context.Context, clientID string, aliasType domain.AliasType, aliasValue string) (*domain.SKUAlias, error) {
	for _, a := range f.aliases {
		if a.ClientID == clientID && a.AliasType == aliasType && a.AliasValue == aliasValue {
			return a, nil
		}
	}
	return nil, domain.ErrAliasNotFound
}

func (f *fakeAliasRepo) FindBySKU(_ context.Context, clientID, skuID string) ([]*domain.SKUAlias, error) {
	out := make([]*domain.SKUAlias, 0)
	for _, a := range f.aliases {
		if a.ClientID == clientID && a.SKUID == skuID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAliasRepo) FindSKUIDsMissingAliasType(_ context.Context, clientID string, haveType, wantType domain.AliasType) ([]string, error) {
	have := make(map[string]bool)
	want := make(map[string]bool)
	for _, a := range f.aliases {
		if a.ClientID != clientID {
			continue
		}
		switch a.AliasType {
		case haveType:
			have[a.SKUID] = true
		case wantType:
			want[a.SKUID] = true
		}
	}

	out := make([]string, 0)
	for skuID := range have {
		if !want[skuID] {
			out = append(out, skuID)
		}
	}
	return out, nil
}

type fakeASNRepo struct {
	asns        map[string]*domain.ASN
	skusWithRef map[string]bool
}

func newFakeASNRepo() *fakeASNRepo {
	return &fakeASNRepo{
		asns:        make(map[string]*domain.ASN),
		skusWithRef: make(map[string]bool),
	}
}

func (f *fakeASNRepo) Save(_ context.Context, asn *domain.ASN) error {
	f.asns[asn.ClientID+"|"+asn.ASNID] = asn
	for _, line := range asn.Lines {
		f.skusWithRef[asn.ClientID+"|"+line.SKUID] = true
	}
	return nil
}

func (f *fakeASNRepo) FindByID(_ context.Context, clientID, asnID string) (*domain.ASN, error) {
	asn, ok := f.asns[clientID+"|"+asnID]
	if !ok {
		return nil, domain.ErrASNNotFound
	}
	return asn, nil
}

func (f *fakeASNRepo) FindByClient(_ context.Context, clientID string, status *domain.ASNStatus, _ domain.Pagination) ([]*domain.ASN, error) {
	out := make([]*domain.ASN, 0)
	for _, asn := range f.asns {
		if asn.ClientID != clientID {
			continue
		}
		if status != nil && asn.Status != *status {
			continue
		}
		out = append(out, asn)
	}
	return out, nil
}

func (f *fakeASNRepo) CountExpected(_ context.Context, clientID string) (int64, error) {
	count := int64(0)
	for _, asn := range f.asns {
		if asn.ClientID == clientID && asn.Status == domain.ASNStatusNotReceived {
			count++
		}
	}
	return count, nil
}

func (f *fakeASNRepo) HasLinesForSKU(_ context.Context, clientID, skuID string) (bool, error) {
	return f.skusWithRef[clientID+"|"+skuID], nil
}

type fakeDiscrepancyRepo struct {
	rows []*domain.Discrepancy
}

func (f *fakeDiscrepancyRepo) Save(_ context.Context, d *domain.Discrepancy) error {
	for i, existing := range f.rows {
		if existing.DiscrepancyID == d.DiscrepancyID {
			f.rows[i] = d
			return nil
		}
	}
	f.rows = append(f.rows, d)
	return nil
}

func (f *fakeDiscrepancyRepo) FindByID(_ context.Context, clientID, discrepancyID string) (*domain.Discrepancy, error) {
	for _, d := range f.rows {
		if d.ClientID == clientID && d.DiscrepancyID == discrepancyID {
			return d, nil
		}
	}
	return nil, domain.ErrDiscrepancyNotFound
}

func (f *fakeDiscrepancyRepo) FindByASNAndSKU(_ context.Context, clientID, asnID, skuID string) ([]*domain.Discrepancy, error) {
	out := make([]*domain.Discrepancy, 0)
	for _, d := range f.rows {
		if d.ClientID == clientID && d.ASNID == asnID && d.SKUID == skuID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDiscrepancyRepo) FindByClient(_ context.Context, clientID string, status *domain.DiscrepancyStatus, _ domain.Pagination) ([]*domain.Discrepancy, error) {
	out := make([]*domain.Discrepancy, 0)
	for _, d := range f.rows {
		if d.ClientID != clientID {
			continue
		}
		if status != nil && d.Status != *status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDiscrepancyRepo) CountPending(_ context.Context, clientID string) (int64, error) {
	count := int64(0)
	for _, d := range f.rows {
		if d.ClientID == clientID && d.Status == domain.DiscrepancyStatusPending {
			count++
		}
	}
	return count, nil
}

type fakeReturnRepo struct {
	returns map[string]*domain.Return
}

func newFakeReturnRepo() *fakeReturnRepo {
	return &fakeReturnRepo{returns: make(map[string]*domain.Return)}
}

func (f *fakeReturnRepo) UpsertNew(_ context.Context, r *domain.Return) (*domain.Return, bool, error) {
	key := r.ClientID + "|" + r.ShopifyReturnID
	if existing, ok := f.returns[key]; ok {
		return existing, false, nil
	}
	f.returns[key] = r
	return r, true, nil
}

func (f *fakeReturnRepo) Save(_ context.Context, r *domain.Return) error {
	f.returns[r.ClientID+"|"+r.ShopifyReturnID] = r
	return nil
}

func (f *fakeReturnRepo) FindByExternalID(_ context.Context, clientID, shopifyReturnID string) (*domain.Return, error) {
	r, ok := f.returns[clientID+"|"+shopifyReturnID]
	if !ok {
		return nil, domain.ErrReturnNotFound
	}
	return r, nil
}

func (f *fakeReturnRepo) FindByClient(_ context.Context, clientID string, status *domain.ReturnStatus, _ domain.Pagination) ([]*domain.Return, error) {
	out := make([]*domain.Return, 0)
	for _, r := range f.returns {
		if r.ClientID != clientID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeConnectionRepo struct {
	connections map[string]*domain.StoreConnection
	states      map[string]*domain.OAuthState
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{
		connections: make(map[string]*domain.StoreConnection),
		states:      make(map[string]*domain.OAuthState),
	}
}

func (f *fakeConnectionRepo) SaveConnection(_ context.Context, conn *domain.StoreConnection) error {
	for _, existing := range f.connections {
		if existing.ShopDomain == conn.ShopDomain && existing.ClientID != conn.ClientID {
			return domain.ErrShopDomainTaken
		}
	}
	f.connections[conn.ClientID] = conn
	return nil
}

func (f *fakeConnectionRepo) FindByClient(_ context.Context, clientID string) (*domain.StoreConnection, error) {
	conn, ok := f.connections[clientID]
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	return conn, nil
}

func (f *fakeConnectionRepo) FindByShopDomain(_ context.Context, shopDomain string) (*domain.StoreConnection, error) {
	for _, conn := range f.connections {
		if conn.ShopDomain == shopDomain {
			return conn, nil
		}
	}
	return nil, domain.ErrConnectionNotFound
}

func (f *fakeConnectionRepo) SaveState(_ context.Context, state *domain.OAuthState) error {
	f.states[state.State] = state
	return nil
}

func (f *fakeConnectionRepo) ConsumeState(_ context.Context, state string) (*domain.OAuthState, error) {
	stored, ok := f.states[state]
	if !ok {
		return nil, domain.ErrOAuthStateNotFound
	}
	delete(f.states, state)
	return stored, nil
}

func (f *fakeConnectionRepo) DeleteExpiredStates(_ context.Context, cutoff time.Time) (int64, error) {
	removed := int64(0)
	for key, state := range f.states {
		if state.ExpiresAt.Before(cutoff) {
			delete(f.states, key)
			removed++
		}
	}
	return removed, nil
}

type fakePhotoRepo struct {
	photos []*domain.QCPhoto
}

func (f *fakePhotoRepo) Save(_ context.Context, photo *domain.QCPhoto) error {
	f.photos = append(f.photos, photo)
	return nil
}

func (f *fakePhotoRepo) FindOlderThan(_ context.Context, cutoff time.Time, _ int64) ([]*domain.QCPhoto, error) {
	out := make([]*domain.QCPhoto, 0)
	for _, p := range f.photos {
		if p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) Delete(_ context.Context, id string) error {
	for i, p := range f.photos {
		if p.ID.Hex() == id {
			f.photos = append(f.photos[:i], f.photos[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakePhotoRepo) FindBySource(_ context.Context, clientID, sourceType, sourceRef string) ([]*domain.QCPhoto, error) {
	out := make([]*domain.QCPhoto, 0)
	for _, p := range f.photos {
		if p.ClientID == clientID && p.SourceType == sourceType && p.SourceRef == sourceRef {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeProcessedRepo struct {
	seen map[string]time.Time
}

func newFakeProcessedRepo() *fakeProcessedRepo {
	return &fakeProcessedRepo{seen: make(map[string]time.Time)}
}

func (f *fakeProcessedRepo) Record(_ context.Context, webhook *idempotency.ProcessedWebhook) (bool, error) {
	key := webhook.ClientID + "|" + webhook.ExternalEventID
	if _, ok := f.seen[key]; ok {
		return false, nil
	}
	f.seen[key] = webhook.ReceivedAt
	return true, nil
}

func (f *fakeProcessedRepo) Seen(_ context.Context, clientID, externalEventID string) (bool, error) {
	_, ok := f.seen[clientID+"|"+externalEventID]
	return ok, nil
}

func (f *fakeProcessedRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	removed := int64(0)
	for key, receivedAt := range f.seen {
		if receivedAt.Before(cutoff) {
			delete(f.seen, key)
			removed++
		}
	}
	return removed, nil
}

type fakeOutboxRepo struct {
	saved []*outbox.OutboxEvent
}

func (f *fakeOutboxRepo) Save(_ context.Context, event *outbox.OutboxEvent) error {
	f.saved = append(f.saved, event)
	return nil
}

func (f *fakeOutboxRepo) SaveAll(_ context.Context, events []*outbox.OutboxEvent) error {
	f.saved = append(f.saved, events...)
	return nil
}

func (f *fakeOutboxRepo) FindUnpublished(_ context.Context, _ int) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkPublished(_ context.Context, _ string) error { return nil }

func (f *fakeOutboxRepo) IncrementRetry(_ context.Context, _, _ string) error { return nil }

func (f *fakeOutboxRepo) DeletePublished(_ context.Context, _ int64) error { return nil }

func (f *fakeOutboxRepo) GetByID(_ context.Context, _ string) (*outbox.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) FindByAggregateID(_ context.Context, _ string) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

// fakeGateway records outbound platform calls
type fakeGateway struct {
	exchangeErr error
	pushErr     error
	pushed      []pushCall
	token       string
	scope       string
}

type pushCall struct {
	shopDomain      string
	inventoryItemID string
	available       int
}

func (f *fakeGateway) AuthorizeURL(shopDomain, state string) string {
	return "https://" + shopDomain + "/admin/oauth/authorize?state=" + state
}

func (f *fakeGateway) ExchangeToken(_ context.Context, _, _ string) (*TokenExchange, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	token := f.token
	if token == "" {
		token = "shpat_test"
	}
	return &TokenExchange{AccessToken: token, Scope: f.scope}, nil
}

func (f *fakeGateway) SetInventoryLevel(_ context.Context, conn *domain.StoreConnection, inventoryItemID string, available int) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, pushCall{
		shopDomain:      conn.ShopDomain,
		inventoryItemID: inventoryItemID,
		available:       available,
	})
	return nil
}

type fakePublisher struct {
	events []domain.DomainEvent
}

func (f *fakePublisher) Publish(_ context.Context, event domain.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) PublishAll(_ context.Context, events []domain.DomainEvent) error {
	f.events = append(f.events, events...)
	return nil
}
