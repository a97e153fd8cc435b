package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kittclouds/campaignkit/pkg/campaign"
)

// optionalStringFlag reads a string flag that may not be registered, so bare
// commands in tests work without declaring every flag.
func optionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func optionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// resolveVault returns the campaign vault directory from --vault, defaulting
// to the working directory.
func resolveVault(cmd *cobra.Command) (string, error) {
	dir, err := optionalStringFlag(cmd, "vault")
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault path: %w", err)
	}
	return abs, nil
}

func openService(cmd *cobra.Command) (*campaign.Service, error) {
	root, err := resolveVault(cmd)
	if err != nil {
		return nil, err
	}
	return campaign.Open(root)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func summarizeNames(names []string, max int) string {
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(names[:max], ", "), len(names)-max)
}
