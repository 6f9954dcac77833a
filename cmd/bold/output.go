package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gedex/inflector"
	"gopkg.in/yaml.v3"

	"bold-client-go/internal/model"
	"bold-client-go/internal/utils"
)

// yamlResponse mirrors the JSON rendering of model.Response
type yamlResponse struct {
	Mode     model.QueryMode             `yaml:"query_mode"`
	Format   model.Format                `yaml:"format"`
	Degraded bool                        `yaml:"degraded,omitempty"`
	Total    int                         `yaml:"total"`
	Items    []model.Record              `yaml:"items,omitempty"`
	Warnings []model.MissingFieldWarning `yaml:"warnings,omitempty"`
}

// render writes resp to w as json, yaml or tsv
func render(w io.Writer, resp *model.Response, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(yamlResponse{
			Mode:     resp.Mode(),
			Format:   resp.Format(),
			Degraded: resp.Degraded(),
			Total:    resp.Len(),
			Items:    resp.Items(),
			Warnings: resp.Warnings(),
		})
	case "tsv":
		return writeTSV(w, resp)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

// writeTSV prints one row per record under a header of every key seen.
// Degraded responses already are tabular text and are written verbatim.
func writeTSV(w io.Writer, resp *model.Response) error {
	if text, ok := resp.Text(); ok {
		_, err := io.WriteString(w, strings.TrimRight(text, "\n")+"\n")
		return err
	}

	items := resp.Items()
	var columns []string
	for _, item := range items {
		for key := range item {
			if !slices.Contains(columns, key) {
				columns = append(columns, key)
			}
		}
	}
	slices.Sort(columns)
	if len(columns) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w, strings.Join(columns, "\t")); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, item := range items {
		for i, col := range columns {
			row[i] = cell(item, col)
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func cell(rec model.Record, key string) string {
	if s, ok := rec.String(key); ok {
		return s
	}
	switch v := rec[key].(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(v, "|")
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// summary describes the record count, e.g. "3 matches" or "1 sequence"
func summary(mode model.QueryMode, n int) string {
	noun := "record"
	switch mode {
	case model.ModeIdentify:
		noun = "match"
	case model.ModeSequenceData:
		noun = "sequence"
	}
	if n != 1 {
		noun = inflector.Pluralize(noun)
	}
	return fmt.Sprintf("%d %s", n, noun)
}

// splitList turns a comma separated flag value into a list
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolvedLine describes a ResolveTaxon hit, e.g.
// "best match Euptychia ordinata (species, tax_id 302603) scored 0.85"
func resolvedLine(rec model.Record, score float64) string {
	name, _ := rec.String("taxon")
	var details []string
	if rank, ok := rec.String("tax_rank"); ok && rank != "" {
		details = append(details, rank)
	}
	if id, ok := rec.String("tax_id"); ok {
		details = append(details, "tax_id "+id)
	}

	line := "best match " + utils.CanonicalTaxonName(name)
	if len(details) > 0 {
		line += " (" + strings.Join(details, ", ") + ")"
	}
	return fmt.Sprintf("%s scored %.2f", line, score)
}
