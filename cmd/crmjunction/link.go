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
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomoncle/crmjunction/crm"
)

func newJunctionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "junctions",
		Short: "List the junction tables and their key columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			return printJSON(cmd.OutOrStdout(), client.Admin.Junctions())
		},
	}
}

// withLinkAdmin opens a client and resolves the named junction.
func (a *app) withLinkAdmin(ctx context.Context, name string, fn func(crm.LinkAdmin) error) error {
	client, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	admin, err := client.Admin.Get(name)
	if err != nil {
		return err
	}
	return fn(admin)
}

func newLinkCommand(a *app) *cobra.Command {
	link := &cobra.Command{
		Use:   "link",
		Short: "Add, remove and inspect links of a junction table",
	}

	add := &cobra.Command{
		Use:   "add <junction> <first-id> <second-id>",
		Short: "Create or reactivate a link",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLinkAdmin(cmd.Context(), args[0], func(admin crm.LinkAdmin) error {
				rec, err := admin.Add(cmd.Context(), args[1], args[2])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <junction> <first-id> <second-id>",
		Short: "Soft delete a link",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLinkAdmin(cmd.Context(), args[0], func(admin crm.LinkAdmin) error {
				removed, err := admin.Remove(cmd.Context(), args[1], args[2])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("%s (%s, %s): no active link", args[0], args[1], args[2])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "removed")
				return nil
			})
		},
	}

	exists := &cobra.Command{
		Use:   "exists <junction> <first-id> <second-id>",
		Short: "Report whether an active link exists",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLinkAdmin(cmd.Context(), args[0], func(admin crm.LinkAdmin) error {
				ok, err := admin.Exists(cmd.Context(), args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}

	var by string
	list := &cobra.Command{
		Use:   "list <junction> <id>",
		Short: "List the active links of one side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLinkAdmin(cmd.Context(), args[0], func(admin crm.LinkAdmin) error {
				var (
					links interface{}
					err   error
				)
				switch by {
				case "first":
					links, err = admin.ListByFirst(cmd.Context(), args[1])
				case "second":
					links, err = admin.ListBySecond(cmd.Context(), args[1])
				default:
					return fmt.Errorf("--by must be first or second, got %q", by)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), links)
			})
		},
	}
	list.Flags().StringVar(&by, "by", "first", "side the id belongs to: first or second")

	link.AddCommand(add, remove, exists, list)
	return link
}
