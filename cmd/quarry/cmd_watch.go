package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/internal/ui"
)

// watchCmd re-validates and re-plans whenever a schema file changes.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-check schema files on change",
		Long: `Watch the schema directory and re-run check and plan whenever a YAML
file is written. Runs until interrupted.`,
		Example: `  # Watch the default schema directory
  quarry watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return qerr.Wrap(qerr.ErrInternal, err, "cannot create file watcher")
			}
			defer watcher.Close()
			if err := watcher.Add(cfg.SchemaDir); err != nil {
				return qerr.Wrap(qerr.ErrInternal, err, "cannot watch schema directory").
					With("dir", cfg.SchemaDir)
			}

			fmt.Println(ui.Info("watching " + cfg.SchemaDir))
			recheck(cfg)

			// Editors fire several events per save; coalesce them.
			var pending *time.Timer
			debounce := make(chan struct{}, 1)
			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Println(ui.Error(err.Error()))
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !isSchemaFile(ev.Name) {
						continue
					}
					if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
						!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
						continue
					}
					if pending != nil {
						pending.Stop()
					}
					pending = time.AfterFunc(200*time.Millisecond, func() {
						select {
						case debounce <- struct{}{}:
						default:
						}
					})
				case <-debounce:
					recheck(cfg)
				}
			}
		},
	}
}

func isSchemaFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// recheck reports errors instead of returning them so the watch loop
// survives a broken intermediate state.
func recheck(cfg *Config) {
	plan, _, err := loadPlan(cfg)
	if err != nil {
		fmt.Println(ui.Error(err.Error()))
		return
	}
	printPlan(plan)
}
