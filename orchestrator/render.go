package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// WriteReport renders a single pair. Intervals are included only when
// withIntervals is set.
func WriteReport(w io.Writer, f Format, r *Report, withIntervals bool) error {
	out := *r
	if !withIntervals {
		out.Intervals = nil
	}
	switch f {
	case FormatJSON:
		return encodeJSON(w, &out)
	case FormatYAML:
		return encodeYAML(w, &out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "pair\t%s\n", r.Name)
	if r.Reference != "" {
		fmt.Fprintf(tw, "reference\t%s\n", r.Reference)
		fmt.Fprintf(tw, "system\t%s\n", r.System)
	}
	fmt.Fprintf(tw, "collar\t%.3f s\n", r.Collar)
	fmt.Fprintf(tw, "scored\t%.3f s\n", r.Metrics.Scored)
	fmt.Fprintf(tw, "MS\t%6.2f %%\t%.3f s\n", r.Metrics.MS, r.Metrics.MissedTime)
	fmt.Fprintf(tw, "FA\t%6.2f %%\t%.3f s\n", r.Metrics.FA, r.Metrics.FalseAlarmTime)
	fmt.Fprintf(tw, "SER\t%6.2f %%\t%.3f s\n", r.Metrics.SER, r.Metrics.SpeakerErrorTime)
	fmt.Fprintf(tw, "DER\t%6.2f %%\n", r.Metrics.DER)
	for _, sys := range sortedKeys(r.Mapping) {
		fmt.Fprintf(tw, "map\t%s -> %s\n", sys, r.Mapping[sys])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if withIntervals {
		return writeIntervals(w, r)
	}
	return nil
}

func writeIntervals(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSTART\tEND\tTYPE\tREF\tSYS")
	for _, iv := range r.Intervals {
		fmt.Fprintf(tw, "%.3f\t%.3f\t%s\t%s\t%s\n", iv.Start, iv.End, iv.Type,
			strings.Join(iv.RefSpeakers, ","), strings.Join(iv.SysSpeakers, ","))
	}
	return tw.Flush()
}

func WriteBatch(w io.Writer, f Format, br *BatchReport) error {
	switch f {
	case FormatJSON:
		return encodeJSON(w, br)
	case FormatYAML:
		return encodeYAML(w, br)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PAIR\tSCORED\tMS\tFA\tSER\tDER\t")
	for _, r := range br.Reports {
		writeRow(tw, r.Name, r.Metrics.Scored, r.Metrics.MS, r.Metrics.FA, r.Metrics.SER, r.Metrics.DER)
	}
	t := br.Totals
	writeRow(tw, "TOTAL", t.Scored, t.MS, t.FA, t.SER, t.DER)
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, fl := range br.Failures {
		fmt.Fprintf(w, "failed %s: %s\n", fl.Name, fl.Error)
	}
	return nil
}

func writeRow(w io.Writer, name string, scored, ms, fa, ser, der float64) {
	fmt.Fprintf(w, "%s\t%.3f\t%.2f\t%.2f\t%.2f\t%.2f\t\n", name, scored, ms, fa, ser, der)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
