/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tomoncle/crmjunction/database"
)

func newMigrateCommand(a *app) *cobra.Command {
	var foreignKeys bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the junction tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Database.DataMigrateConfig.EnableMigrateOnStartup = false
			if cmd.Flags().Changed("foreign-keys") {
				a.cfg.Database.DataMigrateConfig.EnableForeignKey = foreignKeys
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&foreignKeys, "foreign-keys", false, "also add foreign keys to the parent tables")
	return cmd
}

func newSeedCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Execute the SQL seed files for the configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env, _ := cmd.Flags().GetString("env"); env != "" {
				a.cfg.Database.DataInitConfig.Environment = env
			}
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seed data loaded")
			return nil
		},
	}
	cmd.Flags().String("env", "", "override database.init.environment")
	return cmd
}

func newHealthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the database and print the connection pool state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			status := client.HealthCheck(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if !status.Healthy {
				return errors.New(color.RedString("database unhealthy: %s", status.LastError))
			}
			return nil
		},
	}
}

func newFKCommand(a *app) *cobra.Command {
	fk := &cobra.Command{
		Use:   "fk",
		Short: "Inspect foreign key definitions",
	}
	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the effective foreign keys to a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			fkm, err := database.NewConfigurableForeignKeyManager(database.GetLogger(), a.cfg.Database.DataMigrateConfig.ForeignKeyFile)
			if err != nil {
				return err
			}
			if err := fkm.ValidateConstraints(); err != nil {
				return err
			}
			if err := fkm.ExportToConfig(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d foreign keys written to %s\n", len(fkm.ListAllConstraints()), out)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "foreign_keys.yaml", "output file")
	fk.AddCommand(export)
	return fk
}
