package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunContinuity(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	asOf, err := optionalStringFlag(cmd, "as-of")
	if err != nil {
		return err
	}
	asJSON, err := optionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	ctx, err := svc.Continuity(asOf)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(ctx)
	}
	fmt.Print(ctx.PromptBlock())
	return nil
}
