package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/campaignkit/pkg/merge"
)

func RunMerge(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	asJSON, err := optionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	res, err := svc.MergeFile(args[0])
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(res)
	}
	printMergeResult(res)
	return nil
}

func printMergeResult(res *merge.Result) {
	if res.Unchanged {
		fmt.Printf("merge: date=%s unchanged (summary matches the stored session)\n", res.SessionDate)
		return
	}

	fmt.Printf("merge: date=%s title=%q session=%s overwrite=%t\n",
		res.SessionDate, res.Title, res.SessionID, res.Overwrite)
	if len(res.Created) > 0 {
		fmt.Printf("created (%d): %s\n", len(res.Created), summarizeNames(res.Created, 8))
	}
	if len(res.Updated) > 0 {
		fmt.Printf("updated (%d): %s\n", len(res.Updated), summarizeNames(res.Updated, 8))
	}
	fmt.Printf("hooks: new=%d resolved=%d\n", res.NewHooks, res.ResolvedHooks)
	fmt.Printf("links: new=%d\n", res.NewLinks)
}
