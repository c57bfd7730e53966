package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/vitals/core"
	"github.com/huangsam/vitals/core/derive"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/internal/outwriter"
	"github.com/huangsam/vitals/schema"
	"github.com/spf13/cobra"
)

// clientsCmd manages client profiles.
var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage coaching clients",
	Long: `Manage the client profiles read before every run.

A client has a display name, an optional IANA timezone used to assign samples
to calendar days, an optional program start that anchors the 14-day periods,
and an active flag. Runs of inactive clients are refused.`,
}

var clientsAddCmd = &cobra.Command{
	Use:   "add <client>",
	Short: "Add or update a client",
	Long: `Add a client or replace an existing profile.

New clients get the default targets (2500 kcal, 8000 steps, 2500 ml of water,
7.5 hours of sleep and a weekly weight change of -0.75%) unless --no-default-targets
is given. Existing targets are never overwritten.

Examples:
  vitals clients add ana --name "Ana M" --tz Europe/Madrid --program-start 2024-03-01`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		client, err := clientFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		if err := store.UpsertClient(rootCtx, client); err != nil {
			return err
		}

		noDefaults, _ := cmd.Flags().GetBool("no-default-targets")
		if !noDefaults {
			existing, err := store.GetTargets(rootCtx, client.ClientID)
			if err != nil {
				return err
			}
			for metric, value := range derive.DefaultTargets() {
				if _, ok := existing[metric]; ok {
					continue
				}
				if err := store.SetTarget(rootCtx, client.ClientID, metric, value); err != nil {
					return err
				}
			}
		}
		contract.LogInfo("Saved client %s", client.ClientID)
		return nil
	},
}

// clientFromFlags builds a client profile from the add flags.
func clientFromFlags(cmd *cobra.Command, clientID string) (schema.Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return schema.Client{}, fmt.Errorf("client id is required")
	}
	name, _ := cmd.Flags().GetString("name")
	tz, _ := cmd.Flags().GetString("tz")
	start, _ := cmd.Flags().GetString("program-start")
	inactive, _ := cmd.Flags().GetBool("inactive")

	if _, err := contract.LoadLocation(tz); err != nil {
		return schema.Client{}, err
	}
	client := schema.Client{
		ClientID: clientID,
		Name:     name,
		Timezone: strings.TrimSpace(tz),
		Active:   !inactive,
	}
	if start != "" {
		d, err := schema.ParseDate(start)
		if err != nil {
			return schema.Client{}, fmt.Errorf("invalid --program-start: %w", err)
		}
		client.ProgramStart = &d
	}
	return client, nil
}

var clientsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List clients",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		clients, err := store.ListClients(rootCtx)
		if err != nil {
			return err
		}
		return outwriter.PrintClients(clients, cfg)
	},
}

// vitaminsCmd manages the vitamin log.
var vitaminsCmd = &cobra.Command{
	Use:   "vitamins",
	Short: "Manage client vitamin logs",
	Long: `Record the supplements a client took on a day.

Entries are merged into the analytics table by date. A second entry for the
same client and day replaces the first.`,
}

var vitaminsAddCmd = &cobra.Command{
	Use:   "add <client>",
	Short: "Record a vitamin log entry",
	Long: `Record one day of supplements for a client.

Examples:
  vitals vitamins add ana --date 2024-03-02 --vitamin-d 2000 --omega3 1 --notes "with breakfast"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		entry, err := vitaminEntryFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		if err := store.UpsertVitaminLog(rootCtx, entry); err != nil {
			return err
		}
		contract.LogInfo("Saved vitamin log for %s on %s", entry.ClientID, entry.Date.Format(schema.DateLayout))
		return nil
	},
}

// vitaminEntryFromFlags builds a vitamin log entry from the add flags.
func vitaminEntryFromFlags(cmd *cobra.Command, clientID string) (schema.VitaminLogEntry, error) {
	flags := cmd.Flags()
	day, _ := flags.GetString("date")

	var d time.Time
	if day == "" {
		now := time.Now()
		if cfg.Location != nil {
			now = now.In(cfg.Location)
		}
		d = schema.DateOf(now)
	} else {
		parsed, err := schema.ParseDate(day)
		if err != nil {
			return schema.VitaminLogEntry{}, fmt.Errorf("invalid --date: %w", err)
		}
		d = parsed
	}

	entry := schema.VitaminLogEntry{ClientID: strings.TrimSpace(clientID), Date: d}
	entry.VitaminD, _ = flags.GetFloat64("vitamin-d")
	entry.VitaminC, _ = flags.GetFloat64("vitamin-c")
	entry.VitaminB12, _ = flags.GetFloat64("vitamin-b12")
	entry.Omega3, _ = flags.GetFloat64("omega3")
	entry.Magnesium, _ = flags.GetFloat64("magnesium")
	entry.Zinc, _ = flags.GetFloat64("zinc")
	entry.Iron, _ = flags.GetFloat64("iron")
	entry.Other, _ = flags.GetString("other")
	entry.Notes, _ = flags.GetString("notes")
	return entry, nil
}

var vitaminsListCmd = &cobra.Command{
	Use:     "list <client>",
	Short:   "List a client's vitamin log",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		entries, err := store.ListVitaminLogs(rootCtx, args[0])
		if err != nil {
			return err
		}
		return outwriter.PrintVitaminLogs(entries, cfg)
	},
}

// targetsCmd manages client targets.
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage client targets",
	Long: `Manage the per-metric targets used for deviations, hydration compliance and the composite score.

A metric without a target has no deviation and does not count toward the composite score.
The weekly weight trend target is named weight` + derive.TrendTargetSuffix + `.`,
}

var targetsSetCmd = &cobra.Command{
	Use:   "set <client> <metric> <value>",
	Short: "Set one target",
	Long: `Set the target of one metric for a client.

Examples:
  vitals targets set ana water 2500
  vitals targets set ana weight` + derive.TrendTargetSuffix + ` -0.5`,
	Args:    cobra.ExactArgs(3),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		if err := core.ValidateTargetMetric(args[1]); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid target value %q: %w", args[2], err)
		}
		return store.SetTarget(rootCtx, args[0], args[1], value)
	},
}

var targetsListCmd = &cobra.Command{
	Use:     "list <client>",
	Short:   "List a client's targets",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		targets, err := store.GetTargets(rootCtx, args[0])
		if err != nil {
			return err
		}
		return outwriter.PrintTargets(args[0], targets, cfg)
	},
}

var targetsImportCmd = &cobra.Command{
	Use:   "import <targets.yaml>",
	Short: "Import targets of many clients from YAML",
	Long: `Set targets for many clients at once. Targets not named in the file are kept.

File format:
  clients:
    ana:
      water: 2500
      steps: 9000
    bob:
      sleep: 7.5`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := dataStore()
		if err != nil {
			return err
		}
		clients, err := core.LoadTargetsFile(args[0])
		if err != nil {
			return err
		}
		count := 0
		for clientID, targets := range clients {
			for metric, value := range targets {
				if err := store.SetTarget(rootCtx, clientID, metric, value); err != nil {
					return fmt.Errorf("failed to set %s for %s: %w", metric, clientID, err)
				}
				count++
			}
		}
		contract.LogInfo("Imported %d targets for %d clients", count, len(clients))
		return nil
	},
}
