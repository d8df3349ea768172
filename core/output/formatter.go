// Package output renders quotes and tariff tables for humans and machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"motor-tariff/core/policy"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable aligned table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatMarkdown is a markdown table
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts cli, json, markdown and md
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cli", "text":
		return FormatCLI, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format %q (use cli, json or markdown)", s)
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// RenderQuote writes one quote
	RenderQuote(w io.Writer, q *quote.Quote) error

	// RenderTable writes a summary of a tariff table and, when rows is set, every row
	RenderTable(w io.Writer, t *tariff.Table, rows bool) error
}

// New returns the formatter for f
func New(f Format) Formatter {
	switch f {
	case FormatJSON:
		return jsonFormatter{}
	case FormatMarkdown:
		return markdownFormatter{}
	default:
		return cliFormatter{}
	}
}

// line is one labelled amount of a breakdown
type line struct {
	label  string
	amount int64
}

// breakdownLines lists the breakdown in receipt order. Zero add-ons are omitted.
func breakdownLines(b quote.Breakdown) []line {
	lines := []line{
		{"Net premium", b.NetPremium},
		{"Stamp fee", b.StampFee},
		{"War effort", b.WarEffort},
		{"Local administration", b.LocalAdministration},
		{"Reconstruction", b.Reconstruction},
		{"Martyr fund", b.MartyrFund},
	}
	for _, l := range []line{
		{"Electronic card", b.ElectronicCardFee},
		{"Premium service", b.PremiumServiceFee},
		{"Rescue service", b.RescueServiceFee},
	} {
		if l.amount != 0 {
			lines = append(lines, l)
		}
	}
	return lines
}

func describe(q *quote.Quote) string {
	switch {
	case q.Input.Internal != nil:
		in := q.Input.Internal
		return fmt.Sprintf("internal %s, %d months", tariff.InternalKeyString(in.Category, in.BaseType), in.Months)
	case q.Input.Border != nil:
		in := q.Input.Border
		return fmt.Sprintf("border %s, %d months", in.VehicleType, in.Months)
	}
	return string(q.Input.Kind)
}

type cliFormatter struct{}

func (cliFormatter) Format() Format { return FormatCLI }

func (cliFormatter) RenderQuote(w io.Writer, q *quote.Quote) error {
	fmt.Fprintf(w, "Quote %s (%s)\n", q.ID, describe(q))
	fmt.Fprintf(w, "Tariff table v%d %s\n\n", q.TableVersion, shortHash(q.TableHash))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, l := range breakdownLines(q.Breakdown) {
		fmt.Fprintf(tw, "%s\t%s\t\n", l.label, policy.FormatAmount(l.amount))
	}
	fmt.Fprintf(tw, "Subtotal\t%s\t\n", policy.FormatAmount(q.Breakdown.Subtotal))
	fmt.Fprintf(tw, "Total\t%s\t\n", policy.FormatAmount(q.Breakdown.Total))
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, warn := range q.Warnings {
		fmt.Fprintf(w, "\nwarning: %s\n", warn.Message)
	}
	return nil
}

func (cliFormatter) RenderTable(w io.Writer, t *tariff.Table, rows bool) error {
	cov := t.Coverage()
	fmt.Fprintf(w, "Tariff table %s\n", t.ID)
	fmt.Fprintf(w, "  version:      %d\n", t.Version)
	fmt.Fprintf(w, "  hash:         %s\n", t.ContentHash.Hex())
	fmt.Fprintf(w, "  source:       %s\n", t.Source)
	fmt.Fprintf(w, "  effective at: %s\n", t.EffectiveAt.Format("2006-01-02"))
	fmt.Fprintf(w, "  rows:         %d (%d/%d baseline keys)\n", t.Len(), cov.Present, cov.Required)
	fmt.Fprintf(w, "  inconsistent: %d\n", len(cov.Inconsistent))
	if !rows {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNET\tSTAMP\tWAR\tLOCAL\tRECON\tMARTYR\tTOTAL\t")
	for _, e := range t.Entries() {
		r := e.Row
		mark := ""
		if !r.Consistent() {
			mark = " !"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d%s\t\n", e.Key,
			r.NetPremium, r.StampFee, r.WarEffort, r.LocalAdministration, r.Reconstruction, r.MartyrFund, r.Total, mark)
	}
	return tw.Flush()
}

type markdownFormatter struct{}

func (markdownFormatter) Format() Format { return FormatMarkdown }

func (markdownFormatter) RenderQuote(w io.Writer, q *quote.Quote) error {
	fmt.Fprintf(w, "### Quote `%s`\n\n", q.ID)
	fmt.Fprintf(w, "%s, tariff table v%d\n\n", describe(q), q.TableVersion)
	fmt.Fprintln(w, "| Item | Amount |")
	fmt.Fprintln(w, "|---|---:|")
	for _, l := range breakdownLines(q.Breakdown) {
		fmt.Fprintf(w, "| %s | %s |\n", l.label, policy.FormatAmount(l.amount))
	}
	fmt.Fprintf(w, "| **Total** | **%s** |\n", policy.FormatAmount(q.Breakdown.Total))
	for _, warn := range q.Warnings {
		fmt.Fprintf(w, "\n> %s\n", warn.Message)
	}
	return nil
}

func (markdownFormatter) RenderTable(w io.Writer, t *tariff.Table, rows bool) error {
	cov := t.Coverage()
	fmt.Fprintf(w, "### Tariff table v%d\n\n", t.Version)
	fmt.Fprintf(w, "- id: `%s`\n- hash: `%s`\n- rows: %d (%d/%d baseline keys)\n",
		t.ID, t.ContentHash.Hex(), t.Len(), cov.Present, cov.Required)
	if !rows {
		return nil
	}
	fmt.Fprintln(w, "\n| Key | Net | Stamp | War | Local | Recon | Martyr | Total |")
	fmt.Fprintln(w, "|---|---:|---:|---:|---:|---:|---:|---:|")
	for _, e := range t.Entries() {
		r := e.Row
		fmt.Fprintf(w, "| %s | %d | %d | %d | %d | %d | %d | %d |\n", e.Key,
			r.NetPremium, r.StampFee, r.WarEffort, r.LocalAdministration, r.Reconstruction, r.MartyrFund, r.Total)
	}
	return nil
}

type jsonFormatter struct{}

func (jsonFormatter) Format() Format { return FormatJSON }

func (jsonFormatter) RenderQuote(w io.Writer, q *quote.Quote) error {
	return encode(w, q)
}

func (jsonFormatter) RenderTable(w io.Writer, t *tariff.Table, rows bool) error {
	cov := t.Coverage()
	doc := struct {
		ID           string         `json:"id"`
		Version      int            `json:"version"`
		ContentHash  string         `json:"contentHash"`
		Source       string         `json:"source"`
		EffectiveAt  string         `json:"effectiveAt"`
		Rows         int            `json:"rows"`
		Missing      []tariff.Key   `json:"missing,omitempty"`
		Inconsistent []tariff.Key   `json:"inconsistent,omitempty"`
		Entries      []tariff.Entry `json:"entries,omitempty"`
	}{
		ID:           string(t.ID),
		Version:      t.Version,
		ContentHash:  t.ContentHash.Hex(),
		Source:       t.Source.String(),
		EffectiveAt:  t.EffectiveAt.Format("2006-01-02T15:04:05Z07:00"),
		Rows:         t.Len(),
		Missing:      cov.Missing,
		Inconsistent: cov.Inconsistent,
	}
	if rows {
		doc.Entries = t.Entries()
	}
	return encode(w, doc)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
