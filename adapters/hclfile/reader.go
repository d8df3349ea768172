// Package hclfile reads and writes tariff tables in HCL.
//
//	version      = 3
//	effective_at = "2024-07-15T00:00:00Z"
//
//	row "internal" "1" {
//	  label                = "01- سياحية قوة محرك حتى 20"
//	  net_premium          = 10000
//	  stamp_fee            = 500
//	  war_effort           = 200
//	  local_administration = 100
//	  reconstruction       = 300
//	  martyr_fund          = 100
//	  total                = 11200
//	}
package hclfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"

	"motor-tariff/core/tariff"
)

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "version", Required: true},
		{Name: "effective_at"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "row", LabelNames: []string{"kind", "code"}},
	},
}

var rowSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "label"},
		{Name: "variant"},
		{Name: "net_premium", Required: true},
		{Name: "stamp_fee", Required: true},
		{Name: "war_effort", Required: true},
		{Name: "local_administration", Required: true},
		{Name: "reconstruction", Required: true},
		{Name: "martyr_fund", Required: true},
		{Name: "total", Required: true},
	},
}

// ParseError carries every diagnostic of a failed parse
type ParseError struct {
	File  string
	Diags hcl.Diagnostics
}

func (e *ParseError) Error() string {
	msgs := make([]string, 0, len(e.Diags))
	for _, d := range e.Diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if d.Subject != nil {
			line = d.Subject.Start.Line
		}
		msgs = append(msgs, fmt.Sprintf("%s:%d: %s: %s", e.File, line, d.Summary, d.Detail))
	}
	return strings.Join(msgs, "; ")
}

// Reader parses tariff files
type Reader struct {
	parser *hclparse.Parser
}

// NewReader creates a reader
func NewReader() *Reader {
	return &Reader{parser: hclparse.NewParser()}
}

// ReadFile parses a tariff file from disk
func (r *Reader) ReadFile(path string) (*tariff.Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tariff file: %w", err)
	}
	return r.Parse(src, path)
}

// Parse parses tariff source into a table snapshot
func (r *Reader) Parse(src []byte, filename string) (*tariff.Table, error) {
	file, diags := r.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &ParseError{File: filename, Diags: diags}
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, &ParseError{File: filename, Diags: diags}
	}

	version, d := intAttr(content.Attributes["version"])
	diags = append(diags, d...)

	b := tariff.NewBuilder(int(version)).WithSource(tariff.SourceFile)
	if attr, ok := content.Attributes["effective_at"]; ok {
		s, d := stringAttr(attr)
		diags = append(diags, d...)
		if s != "" {
			at, err := time.Parse(time.RFC3339, s)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid effective_at",
					Detail:   err.Error(),
					Subject:  attr.Expr.Range().Ptr(),
				})
			} else {
				b.WithEffectiveAt(at)
			}
		}
	}

	for _, block := range content.Blocks {
		key, row, d := decodeRow(block)
		diags = append(diags, d...)
		if !d.HasErrors() {
			b.AddRow(key, row)
		}
	}

	if diags.HasErrors() {
		return nil, &ParseError{File: filename, Diags: diags}
	}
	return b.Build()
}

func decodeRow(block *hcl.Block) (tariff.Key, tariff.Row, hcl.Diagnostics) {
	var key tariff.Key
	var row tariff.Row

	kind, ok := tariff.ParseKind(block.Labels[0])
	if !ok {
		return key, row, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown tariff kind",
			Detail:   fmt.Sprintf("row kind must be internal or border, got %q", block.Labels[0]),
			Subject:  block.LabelRanges[0].Ptr(),
		}}
	}
	code, err := strconv.Atoi(block.Labels[1])
	if err != nil || code <= 0 {
		return key, row, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid tariff code",
			Detail:   fmt.Sprintf("row code must be a positive integer, got %q", block.Labels[1]),
			Subject:  block.LabelRanges[1].Ptr(),
		}}
	}
	key = tariff.Key{Kind: kind, Code: code}

	content, diags := block.Body.Content(rowSchema)
	if diags.HasErrors() {
		return key, row, diags
	}

	amounts := []struct {
		name string
		dst  *int64
	}{
		{"net_premium", &row.NetPremium},
		{"stamp_fee", &row.StampFee},
		{"war_effort", &row.WarEffort},
		{"local_administration", &row.LocalAdministration},
		{"reconstruction", &row.Reconstruction},
		{"martyr_fund", &row.MartyrFund},
		{"total", &row.Total},
	}
	for _, a := range amounts {
		v, d := intAttr(content.Attributes[a.name])
		diags = append(diags, d...)
		*a.dst = v
	}

	if attr, ok := content.Attributes["label"]; ok {
		s, d := stringAttr(attr)
		diags = append(diags, d...)
		row.Label = s
	}
	if attr, ok := content.Attributes["variant"]; ok {
		s, d := stringAttr(attr)
		diags = append(diags, d...)
		key = key.WithVariant(s)
	}
	return key, row, diags
}

// intAttr evaluates a whole-number attribute. Fractional amounts are rejected
// rather than rounded.
func intAttr(attr *hcl.Attribute) (int64, hcl.Diagnostics) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() || !val.IsKnown() || val.Type() != cty.Number {
		return 0, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid amount",
			Detail:   fmt.Sprintf("%s must be a number", attr.Name),
			Subject:  attr.Expr.Range().Ptr(),
		}}
	}

	d, err := decimal.NewFromString(val.AsBigFloat().Text('f', -1))
	if err != nil || !d.IsInteger() {
		return 0, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid amount",
			Detail:   fmt.Sprintf("%s must be a whole number, got %s", attr.Name, val.AsBigFloat().Text('f', -1)),
			Subject:  attr.Expr.Range().Ptr(),
		}}
	}
	return d.IntPart(), nil
}

func stringAttr(attr *hcl.Attribute) (string, hcl.Diagnostics) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if val.IsNull() || !val.IsKnown() || val.Type() != cty.String {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid string",
			Detail:   fmt.Sprintf("%s must be a string", attr.Name),
			Subject:  attr.Expr.Range().Ptr(),
		}}
	}
	return val.AsString(), nil
}
