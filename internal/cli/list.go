package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func RunSessions(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	asJSON, err := optionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	sessions, err := svc.Sessions()
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(sessions)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions merged yet")
		return nil
	}
	for _, rec := range sessions {
		fmt.Printf("%s  %s\n", rec.Date, rec.Title)
	}
	return nil
}

func RunEntities(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	category, err := optionalStringFlag(cmd, "category")
	if err != nil {
		return err
	}
	asJSON, err := optionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	entities, err := svc.Entities(category)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(entities)
	}
	if len(entities) == 0 {
		fmt.Println("no entities registered yet")
		return nil
	}
	for _, e := range entities {
		line := fmt.Sprintf("%-9s  %s", e.Category, e.CanonicalName)
		if len(e.Aliases) > 0 {
			line += fmt.Sprintf("  (aka %s)", strings.Join(e.Aliases, ", "))
		}
		fmt.Println(line)
	}
	return nil
}

func RunHooks(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	asJSON, err := optionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}

	hooks, err := svc.OpenHooks()
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(hooks)
	}
	if len(hooks) == 0 {
		fmt.Println("no unresolved hooks")
		return nil
	}
	for _, h := range hooks {
		fmt.Printf("- %s\n", h.Text)
	}
	return nil
}
