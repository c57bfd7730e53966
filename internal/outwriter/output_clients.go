package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/huangsam/vitals/core/cachewriter"
	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// PrintClients outputs the client list, dispatching based on the output format configured.
func PrintClients(clients []schema.Client, cfg *contract.Config) error {
	header := []string{"client_id", "name", "timezone", "program_start", "active"}
	records := make([][]string, 0, len(clients))
	for _, c := range clients {
		records = append(records, []string{c.ClientID, c.Name, c.Timezone, formatDate(c.ProgramStart), strconv.FormatBool(c.Active)})
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, clients)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRecordsCSV(w, header, records)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := renderTable(w, []string{"Client", "Name", "Timezone", "Program Start", "Active"}, records); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "%d clients\n", len(clients))
			return err
		}, "Wrote table")
	}
}

// PrintVitaminLogs outputs a client's vitamin log, dispatching based on the output format configured.
func PrintVitaminLogs(entries []schema.VitaminLogEntry, cfg *contract.Config) error {
	header := []string{"date", "vitamin_d", "vitamin_c", "vitamin_b12", "omega3", "magnesium", "zinc", "iron", "other", "notes"}
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			schema.FormatDate(e.Date),
			cachewriter.FormatFloat(e.VitaminD),
			cachewriter.FormatFloat(e.VitaminC),
			cachewriter.FormatFloat(e.VitaminB12),
			cachewriter.FormatFloat(e.Omega3),
			cachewriter.FormatFloat(e.Magnesium),
			cachewriter.FormatFloat(e.Zinc),
			cachewriter.FormatFloat(e.Iron),
			e.Other,
			e.Notes,
		})
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, entries)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRecordsCSV(w, header, records)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			notesWidth := getMaxTextColumnWidth(cfg, 9, 9)
			for _, rec := range records {
				rec[9] = truncateText(rec[9], notesWidth)
			}
			return renderTable(w, []string{"Date", "D", "C", "B12", "Omega-3", "Mg", "Zn", "Fe", "Other", "Notes"}, records)
		}, "Wrote table")
	}
}

// PrintTargets outputs a client's targets sorted by metric.
func PrintTargets(clientID string, targets schema.Targets, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	metrics := slices.Sorted(maps.Keys(targets))

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, map[string]any{"client_id": clientID, "targets": targets})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"client_id", "metric", "target"}, func(cw *csv.Writer) error {
				for _, m := range metrics {
					if err := cw.Write([]string{clientID, m, cachewriter.FormatFloat(targets[m])}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			data := make([][]string, 0, len(metrics))
			for _, m := range metrics {
				data = append(data, []string{m, fmtFloat(targets[m])})
			}
			if err := renderTable(w, []string{"Metric", "Target"}, data); err != nil {
				return err
			}
			if len(metrics) == 0 {
				_, err := fmt.Fprintf(w, "No targets for %s. Deviations and composite scores stay undefined\n", clientID)
				return err
			}
			return nil
		}, "Wrote table")
	}
}

// writeRecordsCSV writes pre-rendered records under a header.
func writeRecordsCSV(w io.Writer, header []string, records [][]string) error {
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		return cw.WriteAll(records)
	})
}
