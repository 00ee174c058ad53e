package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/provider-directory/internal/moderator"
)

var moderatorCmd = &cobra.Command{
	Use:   "moderator",
	Short: "Manage moderators",
}

var moderatorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a moderator and print its id",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		username, _ := cmd.Flags().GetString("username")
		admin, _ := cmd.Flags().GetBool("admin")
		if username == "" {
			return eris.New("--username is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		id, err := uuid.NewV7()
		if err != nil {
			return eris.Wrap(err, "moderator: generate id")
		}
		m := moderator.Moderator{
			ID:        id.String(),
			Username:  username,
			Admin:     admin,
			CreatedAt: time.Now().UTC(),
		}
		if err := st.CreateModerator(ctx, m); err != nil {
			return eris.Wrap(err, "moderator: create")
		}

		cmd.Println(m.ID)
		return nil
	},
}

func init() {
	moderatorAddCmd.Flags().String("username", "", "display name shown as approver")
	moderatorAddCmd.Flags().Bool("admin", false, "grant admin rights")

	moderatorCmd.AddCommand(moderatorAddCmd)
	rootCmd.AddCommand(moderatorCmd)
}
