// Lead-routing and provider-billing scaffold models. Telephony and payment
// execution live behind external collaborators; these rows only track state.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lead statuses, in rough lifecycle order.
const (
	LeadStatusNew       = "NEW"
	LeadStatusContacted = "CONTACTED"
	LeadStatusQualified = "QUALIFIED"
	LeadStatusConverted = "CONVERTED"
	LeadStatusRejected  = "REJECTED"
	LeadStatusExpired   = "EXPIRED"
)

// Provider statuses.
const (
	ProviderStatusPending   = "PENDING"
	ProviderStatusActive    = "ACTIVE"
	ProviderStatusPaused    = "PAUSED"
	ProviderStatusSuspended = "SUSPENDED"
)

// TaskRun statuses.
const (
	TaskRunStatusRunning   = "RUNNING"
	TaskRunStatusCompleted = "COMPLETED"
	TaskRunStatusFailed    = "FAILED"
)

// Lead is a consumer inquiry captured from a service page. Leads are routed
// to the best matching ACTIVE provider and, once qualified, billed against
// that provider's price per lead.
type Lead struct {
	ID         string   `json:"id"       gorm:"type:char(36);primaryKey"`
	Name       string   `json:"name"     gorm:"type:varchar(200);not null"`
	Email      string   `json:"email"    gorm:"type:varchar(254)"`
	Phone      string   `json:"phone"    gorm:"type:varchar(20);not null"`
	Service    string   `json:"service"  gorm:"type:varchar(200);not null;index:idx_lead_service_city,priority:1"`
	City       string   `json:"city"     gorm:"type:varchar(100);not null;index:idx_lead_service_city,priority:2"`
	Notes      string   `json:"notes"    gorm:"type:text"`
	ProviderID *string  `json:"provider_id,omitempty" gorm:"type:char(36);index:idx_lead_provider_status,priority:1"`
	Status     string   `json:"status"   gorm:"type:varchar(20);not null;default:'NEW';index:idx_lead_provider_status,priority:2;index;check:status IN ('NEW','CONTACTED','QUALIFIED','CONVERTED','REJECTED','EXPIRED')"`
	IsBilled   bool     `json:"is_billed" gorm:"not null;default:false"`
	BilledAt   *time.Time `json:"billed_at,omitempty"`
	AmountBilled *float64 `json:"amount_billed,omitempty"`
	QualifiedAt  *time.Time `json:"qualified_at,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// Provider is a service provider that receives routed leads. Services and
// Cities are stored as JSON arrays so coverage can change without migrations.
type Provider struct {
	ID           string                      `json:"id"    gorm:"type:char(36);primaryKey"`
	Name         string                      `json:"name"  gorm:"type:varchar(200);not null"`
	Email        string                      `json:"email" gorm:"type:varchar(254);not null"`
	Phone        string                      `json:"phone" gorm:"type:varchar(20);not null"`
	Status       string                      `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index;check:status IN ('PENDING','ACTIVE','PAUSED','SUSPENDED')"`
	Services     datatypes.JSONSlice[string] `json:"services"`
	Cities       datatypes.JSONSlice[string] `json:"cities"`
	PricePerLead *float64                    `json:"price_per_lead,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Provider.
func (Provider) TableName() string { return "providers" }

// Covers reports whether the provider serves the given service in the given
// city. Matching is exact and case-sensitive; normalization happens upstream.
func (p *Provider) Covers(service, city string) bool {
	found := false
	for _, s := range p.Services {
		if s == service {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for _, c := range p.Cities {
		if c == city {
			return true
		}
	}
	return false
}

// TaskRun records one refresh-pipeline invocation: which tier ran, how many
// categories succeeded or errored, and the terminal error if the whole run
// failed. One row per invocation; used for observability only.
type TaskRun struct {
	ID         string     `json:"id"        gorm:"type:char(36);primaryKey"`
	TaskName   string     `json:"task_name" gorm:"type:varchar(100);not null;index"`
	Tier       string     `json:"tier"      gorm:"type:varchar(40)"`
	Status     string     `json:"status"    gorm:"type:varchar(20);not null"`
	Refreshed  int        `json:"refreshed" gorm:"not null;default:0"`
	Errored    int        `json:"errored"   gorm:"not null;default:0"`
	Error      string     `json:"error,omitempty" gorm:"type:text"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TableName returns the database table name for TaskRun.
func (TaskRun) TableName() string { return "task_runs" }
