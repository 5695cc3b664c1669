package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/grammar-annotation-backend/internal/app"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation/seed"
)

const envPrefix = "ANNOTATION"

// newRootCmd builds a fresh command tree with its own viper instance so tests
// can run it repeatedly. Precedence is flags, then ANNOTATION_* env, then the
// engine config file.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "annotate",
		Short:         "Suggest grammar knowledge points for exam questions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config-file", "", "engine config YAML (thresholds, top_k, fusion)")
	root.PersistentFlags().String("catalog", "", "knowledge-point catalog YAML (default: built-in seed catalog)")
	_ = v.BindPFlag("config_file", root.PersistentFlags().Lookup("config-file"))
	_ = v.BindPFlag("catalog", root.PersistentFlags().Lookup("catalog"))

	root.AddCommand(newSuggestCmd(v), newCatalogCmd(v))
	return root
}

func loadCatalog(v *viper.Viper) (*annotation.Catalog, error) {
	path := strings.TrimSpace(v.GetString("catalog"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv(seed.CatalogEnv))
	}
	if path == "" {
		return seed.Catalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	points, err := seed.Parse(data)
	if err != nil {
		return nil, err
	}
	return annotation.NewCatalog(points)
}

func loadEngineConfig(v *viper.Viper) (annotation.Config, error) {
	cfg := annotation.DefaultConfig()
	if path := strings.TrimSpace(v.GetString("config_file")); path != "" {
		fileCfg, err := app.LoadEngineConfigFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}
	if v.IsSet("confidence_threshold") {
		cfg.ConfidenceThreshold = v.GetFloat64("confidence_threshold")
	}
	if v.IsSet("auto_apply_threshold") {
		cfg.AutoApplyThreshold = v.GetFloat64("auto_apply_threshold")
	}
	if v.IsSet("top_k") {
		cfg.TopK = v.GetInt("top_k")
	}
	if v.IsSet("fusion_enabled") {
		cfg.FusionEnabled = v.GetBool("fusion_enabled")
	}
	return cfg.Clamped(), nil
}
