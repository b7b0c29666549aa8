// File path: cmd/recollect/connect.go

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recollect-dev/recollect/internal/adapters"
	"github.com/recollect-dev/recollect/internal/config"
)

func newConnectCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "connect [list|auto|remove <name>|<name>]",
		Short: "Manage connected agent platforms",
		Long: `Connect registers an agent platform so sync can read its sessions.

  recollect connect list          show connected platforms
  recollect connect auto          connect every platform found on disk
  recollect connect remove NAME   disconnect a platform
  recollect connect NAME [--path] connect one platform explicitly`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			registry := adapters.NewRegistry(cfg.PlatformsPath)
			switch strings.ToLower(args[0]) {
			case "list":
				return connectList(registry)
			case "auto":
				return connectAuto(registry)
			case "remove":
				if len(args) < 2 {
					return fmt.Errorf("connect remove requires a platform name")
				}
				if err := registry.Remove(args[1]); err != nil {
					return err
				}
				fmt.Printf("disconnected %s\n", args[1])
				return nil
			default:
				root := path
				if root == "" {
					root = cfg.PlatformRoot(args[0])
				}
				entry, err := registry.Connect(args[0], root)
				if err != nil {
					return err
				}
				adapter, _ := adapters.New(entry.Name)
				emit(entry, func() {
					fmt.Printf("connected %s at %s (%d sessions)\n",
						entry.Name, entry.Path, adapter.CountSessions(entry.Path))
				})
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "platform storage root (default: platform convention)")
	return cmd
}

func connectList(registry *adapters.Registry) error {
	entries, err := registry.List()
	if err != nil {
		return err
	}
	emit(entries, func() {
		if len(entries) == 0 {
			fmt.Println("no platforms connected; try `recollect connect auto`")
			return
		}
		for _, entry := range entries {
			adapter, err := adapters.New(entry.Name)
			if err != nil {
				continue
			}
			fmt.Printf("%-10s %s (%d sessions)\n",
				entry.Name, entry.Path, adapter.CountSessions(entry.Path))
		}
	})
	return nil
}

func connectAuto(registry *adapters.Registry) error {
	added, err := registry.AutoConnect()
	if err != nil {
		return err
	}
	emit(added, func() {
		if len(added) == 0 {
			fmt.Println("no platform storage found on this machine")
			return
		}
		for _, entry := range added {
			fmt.Printf("connected %s at %s\n", entry.Name, entry.Path)
		}
	})
	return nil
}
