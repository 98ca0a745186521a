package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rushteam/eventrec/config"
	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/log"
	"github.com/rushteam/eventrec/service"
)

var (
	configPath string
	debug      bool

	cfg *config.Config
	rt  *service.Runtime
)

var rootCmd = &cobra.Command{
	Use:           "eventrec",
	Short:         "Personalized event recommendation engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Log.Debug = true
		}
		if err = log.SetLogger(cfg.Log.Debug, cfg.Log.Path); err != nil {
			return errors.Annotate(err, "set logger")
		}
		rt, err = service.Build(cfg, nil)
		if err != nil {
			return err
		}
		// 内存存储只在进程内有效，启动时导入配置的数据文件
		if cfg.Store.Type == config.StoreMemory && rt.Fixture != nil {
			if _, err = rt.Service.ImportRaw(cmd.Context(), "static", rt.Fixture.Events()); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if rt == nil {
			return nil
		}
		return rt.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (yaml/toml/json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(importCmd, signalCmd, recommendCmd, searchCmd, viewCmd, prefsCmd, feedbackCmd)
}

// printJSON 把结果以 JSON 输出到 stdout
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// itemView 是候选的输出形态
type itemView struct {
	ID       string             `json:"id"`
	Title    string             `json:"title,omitempty"`
	Category string             `json:"category"`
	Country  string             `json:"country_code,omitempty"`
	Start    string             `json:"start,omitempty"`
	Score    float64            `json:"score"`
	Scores   map[string]float64 `json:"scores,omitempty"`
	Labels   map[string]string  `json:"labels,omitempty"`
}

func printItems(items []*core.Item) error {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		v := itemView{
			ID:       it.ID,
			Category: it.Features.Category,
			Country:  it.Features.CountryCode,
			Score:    it.Score,
			Scores:   it.Scores,
			Labels:   make(map[string]string, len(it.Labels)),
		}
		if title, ok := it.Raw["title"].(string); ok {
			v.Title = title
		}
		if it.Start != nil {
			v.Start = it.Start.Format("2006-01-02T15:04:05Z07:00")
		}
		for k, lbl := range it.Labels {
			v.Labels[k] = lbl.Value
		}
		out = append(out, v)
	}
	return printJSON(out)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer log.CloseLogger()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Logger().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
