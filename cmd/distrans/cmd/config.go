package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mistvane/distrans/internal/config"
	"github.com/mistvane/distrans/pkg/bytesize"
	"github.com/mistvane/distrans/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for inspecting distrans configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  distrans config dump > .distrans.yaml

Configuration can be set via:
  - Config file (.distrans.yaml, /etc/distrans/.distrans.yaml)
  - Environment variables (DISTRANS_DATABASE_PATH, DISTRANS_LOGGING_LEVEL, etc.)
  - Command-line flags (for the run command)

The run command takes clients (when --clients is not given), min_free_space,
database and logging from the configuration. Its --length, --tmp, --keep,
--status-addr, --ffmpeg and --ffprobe flags are read from the command line
only; the length, tmp_dir, keep, status_addr and ffmpeg keys are not applied.

Environment variables use the DISTRANS_ prefix and underscores for nesting.
Example: database.path -> DISTRANS_DATABASE_PATH`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and sizes for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Tag.Get("yaml")
		}
		if key == "" {
			key = fieldType.Name
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		case config.Duration:
			result[key] = v.String()
		case config.ByteSize:
			result[key] = v.String()
		case int64:
			if strings.Contains(key, "size") || strings.Contains(key, "bytes") {
				result[key] = bytesize.Format(bytesize.Size(v))
			} else {
				result[key] = v
			}
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)

	// Fill in placeholder clients so the dump shows an example host list
	// instead of an empty one.
	v.SetDefault("clients", []string{"worker1", "worker2"})

	var cfg config.Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return fmt.Errorf("unmarshaling default config: %w", err)
	}

	cfgMap := toMap(cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# distrans configuration file")
	fmt.Println("# ============================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults except `clients`, a placeholder.")
	fmt.Println("# Duration format: 30s, 5m, 1h")
	fmt.Println("# Size format: 5MB, 1GB")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   DISTRANS_DATABASE_PATH, DISTRANS_LOGGING_LEVEL, DISTRANS_LOGGING_FORMAT")
	fmt.Println("#   DISTRANS_MIN_FREE_SPACE")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("# length, tmp_dir, keep, status_addr and ffmpeg are not applied by the")
	fmt.Println("# run command; use its flags instead.")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
