package model

// RawRace is a race record as published by an external source, before it
// is mapped onto a Race.
type RawRace struct {
	ExternalID       string   `json:"externalId" yaml:"externalId"`
	Name             string   `json:"name" yaml:"name"`
	Date             string   `json:"date" yaml:"date"`
	City             string   `json:"city" yaml:"city"`
	State            string   `json:"state" yaml:"state"`
	Country          string   `json:"country,omitempty" yaml:"country,omitempty"`
	Distance         Distance `json:"distance" yaml:"distance"`
	RegistrationCost float64  `json:"registrationCost,omitempty" yaml:"registrationCost,omitempty"`
	RegistrationURL  string   `json:"registrationUrl,omitempty" yaml:"registrationUrl,omitempty"`
	WebsiteURL       string   `json:"raceWebsiteUrl,omitempty" yaml:"raceWebsiteUrl,omitempty"`
	OrganizerSeries  string   `json:"organizerSeries,omitempty" yaml:"organizerSeries,omitempty"`
	IsQualifier      bool     `json:"isQualifier,omitempty" yaml:"isQualifier,omitempty"`
	QualifierFor     string   `json:"qualifierFor,omitempty" yaml:"qualifierFor,omitempty"`
}

// SyncRecord is one raw race travelling from a source to the ingestion workers.
type SyncRecord struct {
	RunID  string
	Source string
	Raw    RawRace
}

// SyncAction is what applying a SyncRecord did to the catalog.
type SyncAction string

// Sync outcomes.
const (
	SyncAdded   SyncAction = "added"
	SyncUpdated SyncAction = "updated"
	SyncSkipped SyncAction = "skipped"
)
