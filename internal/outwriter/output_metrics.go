package outwriter

import (
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/huangsam/vitals/schema"
)

// PrintMetrics displays the registered metrics and their composite weights.
// This is a static display that does not require an export.
func PrintMetrics(infos []schema.MetricInfo, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(2)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, infos)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			records := make([][]string, 0, len(infos))
			for _, info := range infos {
				records = append(records, []string{
					info.Name, string(info.Aggregation), info.Unit, string(info.Goal), fmtFloat(info.Weight), strings.Join(info.TypeIDs, "|"),
				})
			}
			return writeRecordsCSV(w, []string{"metric", "aggregation", "unit", "goal", "weight", "type_ids"}, records)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return printMetricsText(w, infos, cfg)
		}, "Wrote text")
	}
}

// printMetricsText renders the metric table followed by the composite formula.
func printMetricsText(w io.Writer, infos []schema.MetricInfo, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(2)
	typeWidth := getMaxTextColumnWidth(cfg, 5, 12)

	var data [][]string
	var terms []string
	for _, info := range infos {
		weight := "-"
		if info.Weight > 0 {
			weight = fmtFloat(info.Weight)
			terms = append(terms, fmt.Sprintf("%s*%s", weight, info.Name))
		}
		data = append(data, []string{
			info.Name,
			strings.ToUpper(string(info.Aggregation)),
			info.Unit,
			string(info.Goal),
			weight,
			truncateText(strings.Join(info.TypeIDs, ", "), typeWidth),
		})
	}
	if err := renderTable(w, []string{"Metric", "Policy", "Unit", "Goal", "Weight", "Type IDs"}, data); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Composite score = 100 * (%s) / sum(weights of scored metrics)\n", strings.Join(terms, " + ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "Each term uses (1 - relative error against the target). Metrics without a target or value that day are left out.")
	return err
}
