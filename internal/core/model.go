package core

import (
	"errors"
	"time"
)

// ErrNotFound is the base sentinel for missing records; adapters map it to 404.
var ErrNotFound = errors.New("not found")

// ErrInvoiceNotFound aborts a match run before any write happens.
var ErrInvoiceNotFound = errors.New("invoice not found")

type Company struct {
	ID           int    `json:"id"`
	CompanyCode  string `json:"company_code"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

// FiscalClass tags an invoice with the document class inherited from its
// origin document. Orthogonal to the match algorithm; carried for reporting.
type FiscalClass string

const (
	FiscalClassStandard FiscalClass = "STANDARD"
	FiscalClassExtended FiscalClass = "EXTENDED"
)

// AuditEntry is one immutable row in the audit trail.
type AuditEntry struct {
	ID        string    `json:"id"`
	CompanyID int       `json:"company_id"`
	Entity    string    `json:"entity"`
	EntityID  int       `json:"entity_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}
