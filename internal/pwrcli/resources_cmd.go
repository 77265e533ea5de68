package pwrcli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/ol-power-client/internal/powerapi"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var usersListCmd = protected(&cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		users, err := client.Users(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), users, func(tw *tabwriter.Writer) {
			printUsers(tw, users...)
		})
	},
})

var usersGetCmd = protected(&cobra.Command{
	Use:   "get <id>",
	Short: "Show one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		user, err := client.UserByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), user, func(tw *tabwriter.Writer) {
			printUsers(tw, *user)
		})
	},
})

var usersByNameCmd = protected(&cobra.Command{
	Use:   "by-name <username>",
	Short: "Look a user up by username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		user, err := client.UserByUsername(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %q not found", args[0])
		}
		return render(cmd.OutOrStdout(), user, func(tw *tabwriter.Writer) {
			printUsers(tw, *user)
		})
	},
})

var usersUpdateCmd = protected(&cobra.Command{
	Use:   "update <id>",
	Short: "Update a user's profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		var patch powerapi.User
		patch.RealName, _ = cmd.Flags().GetString("real-name")
		patch.Phone, _ = cmd.Flags().GetString("phone")
		patch.Email, _ = cmd.Flags().GetString("email")
		patch.Role, _ = cmd.Flags().GetString("role")
		patch.IsActive, _ = cmd.Flags().GetBool("active")
		user, err := client.UpdateUser(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), user, func(tw *tabwriter.Writer) {
			printUsers(tw, *user)
		})
	},
})

var usersDeleteCmd = protected(&cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			answer, err := readLine(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Delete user %s? [y/N] ", args[0]))
			if err != nil {
				return err
			}
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}
		if err := client.DeleteUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted.\n", args[0])
		return nil
	},
})

func printUsers(tw *tabwriter.Writer, users ...powerapi.User) {
	fmt.Fprintf(tw, "ID\tUsername\tName\tRole\tFace\tActive\tLast Login\n")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Username, orDash(u.RealName), u.Role, boolMark(u.FaceRegistered), boolMark(u.IsActive), orDash(u.LastLoginTime))
	}
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Browse hall services",
}

var servicesListCmd = protected(&cobra.Command{
	Use:   "list",
	Short: "List services",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		types, err := client.Services(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), types, func(tw *tabwriter.Writer) {
			printServiceTypes(tw, types...)
		})
	},
})

var servicesGetCmd = protected(&cobra.Command{
	Use:   "get <id>",
	Short: "Show one service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		st, err := client.ServiceByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), st, func(tw *tabwriter.Writer) {
			printServiceTypes(tw, *st)
		})
	},
})

var servicesMonitorCmd = protected(&cobra.Command{
	Use:   "monitor",
	Short: "Show the service monitoring view",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		data, err := client.ServiceMonitor(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), data, func(tw *tabwriter.Writer) {
			printMonitor(tw, data)
		})
	},
})

var serviceTypesCmd = protected(&cobra.Command{
	Use:   "service-types",
	Short: "List knowledge-base service types",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		types, err := client.ServiceTypes(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), types, func(tw *tabwriter.Writer) {
			printServiceTypes(tw, types...)
		})
	},
})

func printServiceTypes(tw *tabwriter.Writer, types ...powerapi.ServiceType) {
	fmt.Fprintf(tw, "ID\tName\tOrder\tActive\n")
	for _, st := range types {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", st.ID, st.Name, st.SortOrder, boolMark(st.IsActive))
	}
}

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Browse the knowledge base",
}

var kbListCmd = protected(&cobra.Command{
	Use:   "list",
	Short: "List knowledge-base entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		entries, err := client.KnowledgeBase(cmd.Context())
		if err != nil {
			return err
		}
		return renderKnowledge(cmd, entries)
	},
})

var kbPopularCmd = protected(&cobra.Command{
	Use:   "popular",
	Short: "List the most asked questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		entries, err := client.PopularQuestions(cmd.Context())
		if err != nil {
			return err
		}
		return renderKnowledge(cmd, entries)
	},
})

var kbByTypeCmd = protected(&cobra.Command{
	Use:   "by-type <service-type-id>",
	Short: "List entries of one service type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		entries, err := client.KnowledgeBaseByServiceType(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return renderKnowledge(cmd, entries)
	},
})

func renderKnowledge(cmd *cobra.Command, entries []powerapi.KnowledgeBase) error {
	return render(cmd.OutOrStdout(), entries, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "ID\tType\tHits\tQuestion\n")
		for _, kb := range entries {
			typeName := "-"
			if kb.ServiceType != nil {
				typeName = kb.ServiceType.Name
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", kb.ID, typeName, kb.HitCount, kb.Question)
		}
	})
}

func init() {
	usersUpdateCmd.Flags().String("real-name", "", "Display name")
	usersUpdateCmd.Flags().String("phone", "", "Phone number")
	usersUpdateCmd.Flags().String("email", "", "Email address")
	usersUpdateCmd.Flags().String("role", "", "Role (USER|ADMIN)")
	usersUpdateCmd.Flags().Bool("active", true, "Whether the account is active")
	usersDeleteCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	usersCmd.AddCommand(usersListCmd, usersGetCmd, usersByNameCmd, usersUpdateCmd, usersDeleteCmd)
	servicesCmd.AddCommand(servicesListCmd, servicesGetCmd, servicesMonitorCmd)
	kbCmd.AddCommand(kbListCmd, kbPopularCmd, kbByTypeCmd)
}
