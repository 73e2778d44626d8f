package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"schooldash/internal/app"
	"schooldash/internal/config"
	"schooldash/internal/domain"
)

// withApp loads config, wires the app and closes it after fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if cfg.DatabaseURL == "" {
		return err
	}
	log := app.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [domain]",
		Short: "Start tracking a school and fetch its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				_, raw, err := a.Schools.Create(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), raw)
			})
		},
	}
}

func refreshCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "refresh [domain]",
		Short: "Re-fetch one school, or every school with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all takes no domain")
			}
			if !all && len(args) != 1 {
				return errors.New("refresh needs a domain or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !all {
					raw, err := a.Schools.Refresh(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), raw)
				}
				out, err := a.Schools.RefreshAll(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				failed := 0
				for _, o := range out {
					state := "ok"
					if !o.Success {
						state = "FAILED"
						failed++
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Domain, state, o.Message)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d schools failed to refresh", failed, len(out))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "refresh every tracked school")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [domain]",
		Short: "Stop tracking a school",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				snap, err := a.Schools.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", snap.Domain, snap.SchoolName)
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked schools with their summary figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				list, err := a.Schools.List(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), list)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DOMAIN\tSCHOOL\tSTAFF\tORDERS\tTOTAL\tEMAILS\tUPDATED")
				for _, s := range list {
					updated := "-"
					if !s.LastUpdated.IsZero() {
						updated = s.LastUpdated.Format("2006-01-02 15:04")
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
						s.Domain, s.SchoolName, s.StaffCount, s.OrderCount, s.OrderTotal.StringFixed(2), s.EmailCount, updated)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show which upstream sources are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				status := a.Schools.SourceStatus(ctx)
				for _, name := range domain.Services {
					state := "unavailable"
					if status[name] {
						state = "available"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, state)
				}
				return nil
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if cfg.DatabaseURL == "" {
				return err
			}
			store, err := app.OpenStore(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
