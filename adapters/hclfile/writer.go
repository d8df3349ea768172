package hclfile

import (
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"motor-tariff/core/tariff"
)

// Format renders a table in the format Parse reads
func Format(t *tariff.Table) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("version", cty.NumberIntVal(int64(t.Version)))
	body.SetAttributeValue("effective_at", cty.StringVal(t.EffectiveAt.UTC().Format(time.RFC3339)))

	for _, e := range t.Entries() {
		body.AppendNewline()
		block := body.AppendNewBlock("row", []string{string(e.Key.Kind), strconv.Itoa(e.Key.Code)})
		rb := block.Body()
		if e.Row.Label != "" {
			rb.SetAttributeValue("label", cty.StringVal(e.Row.Label))
		}
		if e.Key.Variant != "" {
			rb.SetAttributeValue("variant", cty.StringVal(e.Key.Variant))
		}
		rb.SetAttributeValue("net_premium", cty.NumberIntVal(e.Row.NetPremium))
		rb.SetAttributeValue("stamp_fee", cty.NumberIntVal(e.Row.StampFee))
		rb.SetAttributeValue("war_effort", cty.NumberIntVal(e.Row.WarEffort))
		rb.SetAttributeValue("local_administration", cty.NumberIntVal(e.Row.LocalAdministration))
		rb.SetAttributeValue("reconstruction", cty.NumberIntVal(e.Row.Reconstruction))
		rb.SetAttributeValue("martyr_fund", cty.NumberIntVal(e.Row.MartyrFund))
		rb.SetAttributeValue("total", cty.NumberIntVal(e.Row.Total))
	}

	return hclwrite.Format(f.Bytes())
}

// WriteFile writes a table to path
func WriteFile(path string, t *tariff.Table) error {
	return os.WriteFile(path, Format(t), 0644)
}
