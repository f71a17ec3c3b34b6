package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// LoadFile reads a stack file made of top-level attributes, e.g.
//
//	AWS_REGION       = "us-east-1"
//	NETWORK_AZ_COUNT = 3
//	NETWORK_CIDR     = env("STACK_CIDR")
func LoadFile(path string) (Map, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stack file %s: %w", path, err)
	}
	return Parse(src, path)
}

func Parse(src []byte, filename string) (Map, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse stack file %s: %w", filename, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode stack file %s: %w", filename, diags)
	}

	evalCtx := &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}

	out := make(Map, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluate %s in %s: %w", name, filename, diags)
		}
		if val.IsNull() {
			continue
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, fmt.Errorf("%s in %s must be a string, number or bool: %w", name, filename, err)
		}
		out[name] = str.AsString()
	}
	return out, nil
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v, ok := os.LookupEnv(args[0].AsString())
		if !ok {
			return cty.NullVal(cty.String), nil
		}
		return cty.StringVal(v), nil
	},
})
