package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunRender(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	written, err := svc.RenderNotes()
	if err != nil {
		return err
	}

	fmt.Printf("render: files=%d\n", written)
	return nil
}
