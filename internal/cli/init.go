package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunInit(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Init(); err != nil {
		return err
	}

	fmt.Printf("Initialized campaign vault at %s\n", svc.Vault().Root)
	return nil
}
