package ml

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Transformer kinds understood by ColumnTransformer.
const (
	KindStandardScaler = "standard_scaler"
	KindOneHot         = "one_hot"
	KindPassthrough    = "passthrough"
)

// Unknown-category policies for one-hot transformers.
const (
	HandleUnknownIgnore = "ignore"
	HandleUnknownError  = "error"
)

// TransformerSpec is one fitted step of a ColumnTransformer artifact.
type TransformerSpec struct {
	Name          string     `yaml:"name" json:"name"`
	Kind          string     `yaml:"kind" json:"kind"`
	Columns       []string   `yaml:"columns" json:"columns"`
	Mean          []float64  `yaml:"mean,omitempty" json:"mean,omitempty"`
	Scale         []float64  `yaml:"scale,omitempty" json:"scale,omitempty"`
	Categories    [][]string `yaml:"categories,omitempty" json:"categories,omitempty"`
	HandleUnknown string     `yaml:"handle_unknown,omitempty" json:"handle_unknown,omitempty"`
}

// ColumnTransformerSpec is the serialized form of a fitted preprocessor.
type ColumnTransformerSpec struct {
	Version      string            `yaml:"version" json:"version"`
	Transformers []TransformerSpec `yaml:"transformers" json:"transformers"`
}

// ColumnTransformer applies scaling and one-hot encoding per column group and
// concatenates the outputs in transformer order.
type ColumnTransformer struct {
	spec  ColumnTransformerSpec
	index []map[string]int // per one-hot column: category -> offset
	width int
}

// LoadColumnTransformer reads a YAML (or JSON) artifact from path.
func LoadColumnTransformer(path string) (*ColumnTransformer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preprocessor %s: %w", path, err)
	}
	var spec ColumnTransformerSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse preprocessor %s: %w", path, err)
	}
	return NewColumnTransformer(spec)
}

// NewColumnTransformer validates spec and precomputes the category lookups.
func NewColumnTransformer(spec ColumnTransformerSpec) (*ColumnTransformer, error) {
	if len(spec.Transformers) == 0 {
		return nil, fmt.Errorf("preprocessor has no transformers")
	}

	ct := &ColumnTransformer{spec: spec}
	for i, t := range spec.Transformers {
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("transformer %d (%s) has no columns", i, t.Name)
		}
		switch t.Kind {
		case KindStandardScaler:
			if len(t.Mean) != len(t.Columns) || len(t.Scale) != len(t.Columns) {
				return nil, fmt.Errorf("transformer %s: mean/scale length must match %d columns", t.Name, len(t.Columns))
			}
			ct.width += len(t.Columns)
		case KindPassthrough:
			ct.width += len(t.Columns)
		case KindOneHot:
			if len(t.Categories) != len(t.Columns) {
				return nil, fmt.Errorf("transformer %s: categories length must match %d columns", t.Name, len(t.Columns))
			}
			switch t.HandleUnknown {
			case "", HandleUnknownIgnore, HandleUnknownError:
			default:
				return nil, fmt.Errorf("transformer %s: unknown handle_unknown %q", t.Name, t.HandleUnknown)
			}
			for _, cats := range t.Categories {
				lookup := make(map[string]int, len(cats))
				for j, c := range cats {
					lookup[c] = j
				}
				ct.index = append(ct.index, lookup)
				ct.width += len(cats)
			}
		default:
			return nil, fmt.Errorf("transformer %s: unsupported kind %q", t.Name, t.Kind)
		}
	}
	return ct, nil
}

// Width is the number of output features per row.
func (ct *ColumnTransformer) Width() int { return ct.width }

// Transform implements Preprocessor.
func (ct *ColumnTransformer) Transform(_ context.Context, frame Frame) (Matrix, error) {
	if len(frame.Rows) == 0 {
		return nil, fmt.Errorf("frame has no rows")
	}

	positions := make(map[string]int, len(frame.Columns))
	for i, c := range frame.Columns {
		positions[c] = i
	}

	out := make(Matrix, 0, len(frame.Rows))
	for r, row := range frame.Rows {
		if len(row) != len(frame.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", r, len(row), len(frame.Columns))
		}
		features := make([]float32, 0, ct.width)
		onehot := 0
		for _, t := range ct.spec.Transformers {
			for j, col := range t.Columns {
				pos, ok := positions[col]
				if !ok {
					return nil, fmt.Errorf("column %q missing from input", col)
				}
				cell := row[pos]

				switch t.Kind {
				case KindStandardScaler, KindPassthrough:
					v, err := toFloat(cell)
					if err != nil {
						return nil, fmt.Errorf("column %q: %w", col, err)
					}
					if t.Kind == KindStandardScaler {
						scale := t.Scale[j]
						if scale == 0 {
							scale = 1 // constant feature
						}
						v = (v - t.Mean[j]) / scale
					}
					features = append(features, float32(v))
				case KindOneHot:
					lookup := ct.index[onehot]
					onehot++
					encoded := make([]float32, len(t.Categories[j]))
					key := toCategory(cell)
					if idx, ok := lookup[key]; ok {
						encoded[idx] = 1
					} else if t.HandleUnknown == HandleUnknownError {
						return nil, fmt.Errorf("column %q: unknown category %q", col, key)
					}
					features = append(features, encoded...)
				}
			}
		}
		out = append(out, features)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported cell type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}

func toCategory(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
