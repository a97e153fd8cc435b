package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/campaignkit/internal/store"
)

func RunCheck(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	asJSON, err := optionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	issues, err := svc.Check()
	if err != nil {
		return err
	}

	if asJSON {
		if issues == nil {
			issues = []store.IntegrityIssue{}
		}
		if err := printJSON(issues); err != nil {
			return err
		}
	} else if len(issues) == 0 {
		fmt.Println("check: ok")
	} else {
		fmt.Printf("check: %d issues\n", len(issues))
		for _, issue := range issues {
			if issue.Fix != "" {
				fmt.Printf("- %s: %s (fix: %s)\n", issue.Name, issue.Detail, issue.Fix)
			} else {
				fmt.Printf("- %s: %s\n", issue.Name, issue.Detail)
			}
		}
	}

	if len(issues) > 0 {
		return fmt.Errorf("%d integrity issues found", len(issues))
	}
	return nil
}
