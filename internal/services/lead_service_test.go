package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

type fakeLeadRepo struct {
	created   []*domain.Lead
	unrouted  []domain.Lead
	providers []domain.Provider
	assigned  map[string]string
	billable  []domain.Lead
	billed    map[string]float64
	expired   int64
	createErr error
}

func (r *fakeLeadRepo) CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, l)
	return nil
}

func (r *fakeLeadRepo) ListUnroutedLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error) {
	return r.unrouted, nil
}

func (r *fakeLeadRepo) AssignLead(ctx context.Context, db *gorm.DB, leadID, providerID string) error {
	if r.assigned == nil {
		r.assigned = make(map[string]string)
	}
	r.assigned[leadID] = providerID
	return nil
}

func (r *fakeLeadRepo) ExpireStaleLeads(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return r.expired, nil
}

func (r *fakeLeadRepo) ListBillableLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error) {
	return r.billable, nil
}

func (r *fakeLeadRepo) MarkLeadBilled(ctx context.Context, db *gorm.DB, leadID string, amount float64) error {
	if r.billed == nil {
		r.billed = make(map[string]float64)
	}
	r.billed[leadID] = amount
	return nil
}

func (r *fakeLeadRepo) ListActiveProviders(ctx context.Context, db *gorm.DB) ([]domain.Provider, error) {
	return r.providers, nil
}

func (r *fakeLeadRepo) GetProvider(ctx context.Context, db *gorm.DB, id string) (*domain.Provider, error) {
	for _, p := range r.providers {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func provider(id string, price *float64, services, cities []string) domain.Provider {
	return domain.Provider{
		ID:           id,
		Status:       domain.ProviderStatusActive,
		PricePerLead: price,
		Services:     datatypes.NewJSONSlice(services),
		Cities:       datatypes.NewJSONSlice(cities),
	}
}

func newTestLeads(r *fakeLeadRepo) *LeadService {
	return NewLeadService(nil, r, zerolog.Nop())
}

func TestCapture_ValidatesRequiredFields(t *testing.T) {
	s := newTestLeads(&fakeLeadRepo{})
	cases := map[string]domain.Lead{
		"missing name":    {Phone: "07", Service: "pt", City: "Leeds"},
		"missing phone":   {Name: "Jo", Service: "pt", City: "Leeds"},
		"missing service": {Name: "Jo", Phone: "07", City: "Leeds"},
		"missing city":    {Name: "Jo", Phone: "07", Service: "pt"},
		"blank after trim": {Name: "  ", Phone: "07", Service: "pt", City: "Leeds"},
	}
	for name, l := range cases {
		lead := l
		if _, err := s.Capture(context.Background(), &lead); !errors.Is(err, ErrInvalidLead) {
			t.Errorf("%s: expected ErrInvalidLead, got %v", name, err)
		}
	}
}

func TestCapture_NormalizesAndStoresAsNew(t *testing.T) {
	r := &fakeLeadRepo{}
	s := newTestLeads(r)

	got, err := s.Capture(context.Background(), &domain.Lead{
		Name:    "  Jo   Bloggs ",
		Phone:   " 07000000001 ",
		Service: "personal  training",
		City:    " Leeds",
		Status:  domain.LeadStatusConverted, // client-supplied status is ignored
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got.Name != "Jo Bloggs" || got.Phone != "07000000001" || got.Service != "personal training" || got.City != "Leeds" {
		t.Fatalf("normalization failed: %+v", got)
	}
	if got.Status != domain.LeadStatusNew {
		t.Fatalf("expected NEW, got %s", got.Status)
	}
	if len(r.created) != 1 {
		t.Fatalf("lead not persisted")
	}
}

func TestRoutePending_MatchesServiceAndCity(t *testing.T) {
	r := &fakeLeadRepo{
		unrouted: []domain.Lead{
			{ID: "l1", Service: "pt", City: "Leeds"},
			{ID: "l2", Service: "pt", City: "Bath"}, // nobody covers Bath
			{ID: "l3", Service: "yoga", City: "Leeds"},
		},
		providers: []domain.Provider{
			provider("p1", f64(10), []string{"pt"}, []string{"Leeds"}),
			provider("p2", f64(12), []string{"yoga"}, []string{"Leeds", "York"}),
		},
	}
	s := newTestLeads(r)

	routed, err := s.RoutePending(context.Background())
	if err != nil {
		t.Fatalf("RoutePending: %v", err)
	}
	if routed != 2 {
		t.Fatalf("expected 2 routed, got %d", routed)
	}
	if r.assigned["l1"] != "p1" || r.assigned["l3"] != "p2" {
		t.Fatalf("unexpected assignments: %+v", r.assigned)
	}
	if _, ok := r.assigned["l2"]; ok {
		t.Fatal("uncovered lead must stay unrouted")
	}
}

type recordingDispatcher struct {
	contacted map[string]string // lead ID -> provider ID
	err       error
}

func (d *recordingDispatcher) Contact(ctx context.Context, lead domain.Lead, p domain.Provider) error {
	if d.contacted == nil {
		d.contacted = make(map[string]string)
	}
	d.contacted[lead.ID] = p.ID
	return d.err
}

func TestRoutePending_NotifiesDispatcher(t *testing.T) {
	r := &fakeLeadRepo{
		unrouted:  []domain.Lead{{ID: "l1", Service: "pt", City: "Leeds"}},
		providers: []domain.Provider{provider("p1", f64(10), []string{"pt"}, []string{"Leeds"})},
	}
	s := newTestLeads(r)
	d := &recordingDispatcher{}
	s.Dispatch = d

	routed, err := s.RoutePending(context.Background())
	if err != nil || routed != 1 {
		t.Fatalf("RoutePending: routed=%d err=%v", routed, err)
	}
	if d.contacted["l1"] != "p1" {
		t.Fatalf("dispatcher not notified: %+v", d.contacted)
	}
}

func TestRoutePending_DispatchFailureKeepsAssignment(t *testing.T) {
	r := &fakeLeadRepo{
		unrouted:  []domain.Lead{{ID: "l1", Service: "pt", City: "Leeds"}},
		providers: []domain.Provider{provider("p1", f64(10), []string{"pt"}, []string{"Leeds"})},
	}
	s := newTestLeads(r)
	s.Dispatch = &recordingDispatcher{err: errors.New("sms gateway down")}

	routed, err := s.RoutePending(context.Background())
	if err != nil {
		t.Fatalf("RoutePending: %v", err)
	}
	if routed != 1 || r.assigned["l1"] != "p1" {
		t.Fatalf("assignment must survive a failed notification: routed=%d assigned=%+v", routed, r.assigned)
	}
}

func TestBillQualified_UsesProviderPriceAndSkipsUnpriced(t *testing.T) {
	p1 := "p1"
	p2 := "p2"
	r := &fakeLeadRepo{
		billable: []domain.Lead{
			{ID: "l1", ProviderID: &p1},
			{ID: "l2", ProviderID: &p2}, // provider has no price
			{ID: "l3"},                  // no provider at all
		},
		providers: []domain.Provider{
			provider("p1", f64(15.50), nil, nil),
			provider("p2", nil, nil, nil),
		},
	}
	s := newTestLeads(r)

	billed, err := s.BillQualified(context.Background())
	if err != nil {
		t.Fatalf("BillQualified: %v", err)
	}
	if billed != 1 {
		t.Fatalf("expected 1 billed, got %d", billed)
	}
	if r.billed["l1"] != 15.50 {
		t.Fatalf("unexpected billing: %+v", r.billed)
	}
}
