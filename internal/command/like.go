package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/validation"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

type likeArgs struct {
	ItemType string `json:"type" validate:"required,itemtype"`
	ID       string `json:"id" validate:"required,itemid"`
}

// NewLikeCmd creates the like command.
func NewLikeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "like <type> <id>",
		Short: "Toggle the like on an item",
		Long:  "Like the item when it is not liked, unlike it otherwise. The change is rolled back if the remote write fails.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := likeArgs{ItemType: args[0], ID: args[1]}
			if err := validation.GetValidator().Validate(in); err != nil {
				return writeCommandError(cmd, err)
			}
			t, err := catalog.ParseItemType(in.ItemType)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			key := catalog.ItemKey{ID: in.ID, Type: t}

			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			// The like index is filled by mounting the favorites view, so the
			// toggle starts from the remote state.
			if ctx.Sessions.Identity() != nil {
				c, err := loadCollection(cmd.Context(), ctx, catalog.ViewFavorites)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				defer c.Close()
			}

			toggle, err := ctx.Engine.UseLikeToggle(key).Begin()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := toggle.Settle(cmd.Context()); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(api.ToggleResponse{
					ID:       key.ID,
					ItemType: key.Type.String(),
					Liked:    toggle.Liked(),
					State:    toggle.State().String(),
				})
			}
			verb := "Unliked"
			if toggle.Liked() {
				verb = "Liked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", verb, key.Type, key.ID)
			return nil
		},
	}
	return cmd
}
