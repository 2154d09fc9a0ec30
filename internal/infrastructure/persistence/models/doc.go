// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities are free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Mutable rows embed VersionedTenantModel and declare their writable columns
// statically through WriteColumns and OptionalColumns. The versioned store uses
// that declaration instead of introspecting row shapes per request.
//
// Structure:
// - base.go: VersionedTenantModel and the mapping helpers
// - finance.go: accounts, contacts, bills, transactions, payslips
// - procurement.go: purchase bills, inventory items, inventory stock
// - p2p.go: purchase orders, P2P invoices, bill reconciliations
// - audit.go: append-only audit entries
package models
