package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/einkauf-app/einkauf/internal/model"
)

var inviteCharges int

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Mint a signup invite code",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		invite := model.Invite{
			Code:           uuid.NewString(),
			InitialCharges: inviteCharges,
		}
		if err := s.CreateInvite(cmd.Context(), invite); err != nil {
			return err
		}

		fmt.Printf("invite code: %s (%d charges)\n", invite.Code, invite.InitialCharges)
		return nil
	},
}

func init() {
	inviteCmd.Flags().IntVar(&inviteCharges, "charges", 1, "number of signups the code allows")
	rootCmd.AddCommand(inviteCmd)
}
