package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/placementmentor/mentor-server/internal/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
		Long:  `Inspect the environment driven configuration of the mentor server.`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Resolve the configuration from the current environment and print it with secrets masked.`,
		RunE:  runConfigShow,
	}
	showCmd.Flags().String("format", "yaml", "Output format: yaml, json")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		RunE:  runConfigSchema,
	}

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(schemaCmd)
	return configCmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	redacted := cfg.Redacted()

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(redacted)
	case "yaml":
		// Round trip through JSON so the yaml keys match the json tags.
		raw, err := json.Marshal(redacted)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		var values map[string]any
		if err := json.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(values); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Mentor Server Configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
