package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunSummarize(cmd *cobra.Command, args []string) error {
	date, err := optionalStringFlag(cmd, "date")
	if err != nil {
		return err
	}
	if date == "" {
		return fmt.Errorf("--date is required (YYYY-MM-DD)")
	}
	title, err := optionalStringFlag(cmd, "title")
	if err != nil {
		return err
	}
	outPath, err := optionalStringFlag(cmd, "output")
	if err != nil {
		return err
	}

	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	sum, err := svc.SummarizeTranscript(args[0], title, date, outPath)
	if err != nil {
		return err
	}

	if outPath == "" {
		return printJSON(sum)
	}

	fmt.Printf("summarize: date=%s title=%q characters=%d locations=%d\n",
		sum.SessionDate, sum.SessionTitle, len(sum.Characters), len(sum.Locations))
	fmt.Printf("output: %s\n", outPath)
	return nil
}
