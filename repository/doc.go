// Package repository provides the generic junction repository: lookups,
// existence checks, upsert and soft delete over a two-column join table,
// built on Bun and executed through the resilience executor.
package repository
