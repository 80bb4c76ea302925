package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/ddicdi/watch"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		flags    convertFlags
		debounce time.Duration
		initial  bool
	)

	cmd := &cobra.Command{
		Use:   "watch [flags] <dir>",
		Short: "Reconvert data files when they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(cmd, &flags); err != nil {
				return err
			}
			c, err := a.converter()
			if err != nil {
				return err
			}
			w, err := watch.New(watch.Config{
				Root:     args[0],
				Debounce: debounce,
				Initial:  initial,
				Logger:   a.logger,
			}, c)
			if err != nil {
				return err
			}

			go func() {
				for ev := range w.Events() {
					switch {
					case ev.Err != nil:
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", ev.Path, ev.Err)
					case ev.Operation == watch.OpDelete:
						a.logger.Info("input removed", slog.String("path", ev.Path))
					default:
						fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", ev.Path, ev.Result.Output)
					}
					a.writeMetrics()
				}
			}()
			return w.Run(cmd.Context())
		},
	}

	flags.register(cmd, true)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Wait this long for more changes before converting")
	cmd.Flags().BoolVar(&initial, "initial", false, "Convert every existing file before watching")
	return cmd
}
