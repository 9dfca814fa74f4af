package command

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	switch {
	case apperrors.HasCode(err, apperrors.CodeCircuitOpen):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: the remote store is short-circuited after repeated failures. Try again shortly.")
	case apperrors.IsAuthRequired(err):
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: sign in first with '%s login'\n", AppName)
	}

	return err
}
