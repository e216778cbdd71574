package leads

import (
	"time"

	"github.com/synura/agency-api/internal/crm"
	"github.com/synura/agency-api/internal/notify"
)

// Company size buckets accepted by the contact form.
const (
	CompanySize1To10     = "1-10"
	CompanySize11To50    = "11-50"
	CompanySize51To200   = "51-200"
	CompanySize201To1000 = "201-1000"
	CompanySize1000Plus  = "1000+"
)

// CompanySizes lists the valid non-empty buckets in ascending order.
var CompanySizes = []string{
	CompanySize1To10,
	CompanySize11To50,
	CompanySize51To200,
	CompanySize201To1000,
	CompanySize1000Plus,
}

const (
	statusNew     = "new"
	defaultIntent = "consultation"
)

// Submission is a validated contact form lead. Build it only through
// Validator.ValidateContact.
type Submission struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"max=20"`
	CompanySize string `json:"companySize" validate:"companysize"`
	Message     string `json:"message" validate:"required,max=1000"`
}

// VoiceLead is a validated lead captured by the voice agent.
type VoiceLead struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Company     string `json:"company"`
	Phone       string `json:"phone"`
	Intent      string `json:"intent" validate:"oneof=consultation demo info pricing partnership"`
	Message     string `json:"message"`
	Source      string `json:"source" validate:"oneof=website retell form referral"`
	UTMSource   string `json:"utm_source"`
	UTMCampaign string `json:"utm_campaign"`
	UTMMedium   string `json:"utm_medium"`
}

// RequestMeta is what the transport knows about the caller.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// Record is the lead as it flows through one pipeline run. It is never
// shared between requests.
type Record struct {
	ID          string
	CreatedAt   time.Time
	Source      string
	Channel     notify.Channel
	Intent      string
	Status      string
	Name        string
	Email       string
	Phone       string
	Company     string
	CompanySize string
	Message     string
	UTMSource   string
	ROI         *crm.ROIDetails
	Meta        RequestMeta
}

// Result reports the lead id and which side effects were delivered.
type Result struct {
	LeadID           string
	CRMSynced        bool
	NotificationSent bool
}

// NewContactRecord builds the pipeline record for a contact form lead.
func NewContactRecord(sub Submission, now time.Time, meta RequestMeta) Record {
	rec := Record{
		ID:          NewContactID(now),
		CreatedAt:   now.UTC(),
		Source:      crm.SourceContactForm,
		Channel:     notify.ChannelForm,
		Intent:      defaultIntent,
		Status:      statusNew,
		Name:        sub.Name,
		Email:       sub.Email,
		Phone:       sub.Phone,
		CompanySize: sub.CompanySize,
		Message:     sub.Message,
		UTMSource:   crm.SourceContactForm,
		Meta:        meta,
	}
	if sub.CompanySize != "" {
		rec.Company = sub.CompanySize + " employees"
	}
	return rec
}

// NewVoiceRecord builds the pipeline record for a voice agent lead.
func NewVoiceRecord(lead VoiceLead, now time.Time, meta RequestMeta) Record {
	return Record{
		ID:        NewLeadID(now),
		CreatedAt: now.UTC(),
		Source:    crm.SourceVoiceAgent,
		Channel:   notify.ChannelVoiceAgent,
		Intent:    lead.Intent,
		Status:    statusNew,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		Message:   lead.Message,
		UTMSource: lead.UTMSource,
		Meta:      meta,
	}
}

func (r Record) crmContact() crm.Contact {
	return crm.Contact{
		Email:       r.Email,
		Name:        r.Name,
		CompanySize: r.CompanySize,
		Message:     r.Message,
		Source:      r.Source,
		ROI:         r.ROI,
	}
}

func (r Record) notification() notify.LeadNotification {
	return notify.LeadNotification{
		LeadID:    r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Company:   r.Company,
		Phone:     r.Phone,
		Message:   r.Message,
		Intent:    r.Intent,
		Source:    r.Source,
		Status:    r.Status,
		UTMSource: r.UTMSource,
		Timestamp: r.CreatedAt,
	}
}
