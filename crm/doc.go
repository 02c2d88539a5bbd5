// Package crm provides the junction tables of the CRM data model and one
// repository per table. Each repository embeds the generic
// repository.Junction and adds names taken from its domain, for example
// TeamUserRepository.AddUserToTeam.
//
// Importing the package registers every junction model and its foreign keys
// with the database package, so migrations create the tables.
package crm
