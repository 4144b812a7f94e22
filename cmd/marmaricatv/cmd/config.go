package cmd

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/pkg/bytesize"
	"github.com/pokerist/marmaricatv-sub001/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for inspecting marmaricatv configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format, after applying the
config file and environment overrides. Credentials embedded in the database
DSN are masked.

Redirect the output to a file to create a configuration template:

  marmaricatv config dump > config.yaml

Environment variables use the MARMARICATV_ prefix and underscores for
nesting. Example: server.port -> MARMARICATV_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a config struct to a map, formatting durations and byte
// sizes for human readability and masking credential-bearing values.
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
			key = strings.ToLower(fieldType.Name)
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		case config.ByteSize:
			result[key] = bytesize.Format(bytesize.Size(v))
		case string:
			if key == "dsn" {
				result[key] = maskDSN(v)
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

// maskDSN hides the password in URL-style DSNs. Non-URL DSNs (sqlite file
// paths, key=value postgres strings) pass through when they carry no
// password, otherwise the whole value is masked.
func maskDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "*****")
			return u.String()
		}
		return dsn
	}
	if strings.Contains(strings.ToLower(dsn), "password=") {
		return "*****"
	}
	return dsn
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# marmaricatv Configuration File")
	fmt.Println("# ==============================")
	fmt.Println("#")
	fmt.Println("# Duration format: 30s, 5m, 1h, 30d")
	fmt.Println("# Size format: 5MB, 2GB")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   MARMARICATV_SERVER_HOST, MARMARICATV_SERVER_PORT")
	fmt.Println("#   MARMARICATV_DATABASE_DRIVER, MARMARICATV_DATABASE_DSN")
	fmt.Println("#   MARMARICATV_TRANSCODING_FFMPEG_PATH")
	fmt.Println("#   MARMARICATV_LOGGING_LEVEL, MARMARICATV_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
