// Package crmjunction is the entry point of the CRM junction data layer.
//
// Open connects to the configured database, runs the schema migrations and
// returns a Client holding one repository per junction table:
//
//	client, err := crmjunction.Open(ctx, crmjunction.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	_, err = client.Repos.TeamUsers.AddUserToTeam(ctx, teamID, userID)
package crmjunction
