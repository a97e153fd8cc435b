package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunExport(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Export(args[0]); err != nil {
		return err
	}

	fmt.Printf("export: %s\n", args[0])
	return nil
}

func RunImport(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.ImportSnapshot(args[0]); err != nil {
		return err
	}

	sessions, err := svc.Sessions()
	if err != nil {
		return err
	}
	fmt.Printf("import: sessions=%d\n", len(sessions))
	return nil
}
