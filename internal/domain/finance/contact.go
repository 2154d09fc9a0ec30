package finance

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ContactType classifies a counterparty
type ContactType string

const (
	ContactTypeVendor   ContactType = "vendor"
	ContactTypeCustomer ContactType = "customer"
	ContactTypeEmployee ContactType = "employee"
)

// Contact is a counterparty of the tenant. Vendors created for P2P suppliers
// carry the supplier's tenant id in LinkedTenantID.
type Contact struct {
	shared.TenantAggregateRoot
	Name           string
	Type           ContactType
	Email          string
	LinkedTenantID *uuid.UUID
}

// NewVendorContact creates a vendor contact, optionally linked to a supplier tenant
func NewVendorContact(tenantID uuid.UUID, name string, linkedTenantID *uuid.UUID) (*Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Contact name cannot be empty")
	}
	return &Contact{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Type:                ContactTypeVendor,
		LinkedTenantID:      linkedTenantID,
	}, nil
}
