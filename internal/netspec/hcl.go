package netspec

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// hclFile is the native-syntax layout:
//
//	name = "sprinkler"
//	variable "Rain" { domain = ["0", "1"] }
//	cpt "Rain" {
//	  rows = [{ values = ["0"], p = 0.8 }, { values = ["1"], p = 0.2 }]
//	}
type hclFile struct {
	Name      string        `hcl:"name,optional"`
	Variables []hclVariable `hcl:"variable,block"`
	CPTs      []hclCPT      `hcl:"cpt,block"`
}

type hclVariable struct {
	Name   string   `hcl:"name,label"`
	Domain []string `hcl:"domain"`
}

type hclCPT struct {
	Variable string   `hcl:"variable,label"`
	Parents  []string `hcl:"parents,optional"`
	Rows     []hclRow `hcl:"rows"`
}

type hclRow struct {
	Values []string `cty:"values"`
	P      float64  `cty:"p"`
}

func decodeHCL(data []byte, filename string) (Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return Definition{}, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var cfg hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return Definition{}, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	def := Definition{Name: cfg.Name}
	for _, v := range cfg.Variables {
		def.Variables = append(def.Variables, VariableSpec{Name: v.Name, Domain: v.Domain})
	}
	for _, c := range cfg.CPTs {
		spec := CPTSpec{Variable: c.Variable, Parents: c.Parents}
		for _, r := range c.Rows {
			spec.Rows = append(spec.Rows, RowSpec{Values: r.Values, P: r.P})
		}
		def.CPTs = append(def.CPTs, spec)
	}
	return def, nil
}

func encodeHCL(d Definition) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	if d.Name != "" {
		body.SetAttributeValue("name", cty.StringVal(d.Name))
	}
	for _, v := range d.Variables {
		body.AppendNewline()
		block := body.AppendNewBlock("variable", []string{v.Name})
		block.Body().SetAttributeValue("domain", stringList(v.Domain))
	}
	for _, c := range d.CPTs {
		body.AppendNewline()
		block := body.AppendNewBlock("cpt", []string{c.Variable})
		if len(c.Parents) > 0 {
			block.Body().SetAttributeValue("parents", stringList(c.Parents))
		}
		rows := make([]cty.Value, 0, len(c.Rows))
		for _, r := range c.Rows {
			rows = append(rows, cty.ObjectVal(map[string]cty.Value{
				"values": stringList(r.Values),
				"p":      cty.NumberFloatVal(r.P),
			}))
		}
		block.Body().SetAttributeValue("rows", cty.TupleVal(rows))
	}
	return f.Bytes()
}

func stringList(values []string) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.StringVal(v)
	}
	return cty.ListVal(out)
}
