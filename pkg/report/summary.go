package report

import (
	"fmt"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
)

// Summary describes a sketch independently of its item type.
type Summary struct {
	Name           string `json:"name,omitempty"   yaml:"name,omitempty"`
	K              int    `json:"k"                yaml:"k"`
	HRA            bool   `json:"hra"              yaml:"hra"`
	N              uint64 `json:"n"                yaml:"stream_length"`
	Retained       int    `json:"retained"         yaml:"retained"`
	Levels         int    `json:"levels"           yaml:"levels"`
	EstimationMode bool   `json:"estimation_mode"  yaml:"estimation_mode"`
	Min            string `json:"min,omitempty"    yaml:"min,omitempty"`
	Max            string `json:"max,omitempty"    yaml:"max,omitempty"`
	SerializedSize int    `json:"serialized_bytes" yaml:"serialized_bytes"`
}

// SummaryOf summarizes sk. size is the serialized size in bytes, zero when unknown.
func SummaryOf[T any](name string, sk *req.Sketch[T], size int) Summary {
	s := Summary{
		Name:           name,
		K:              sk.K(),
		HRA:            sk.IsHRA(),
		N:              sk.N(),
		Retained:       sk.NumRetained(),
		Levels:         sk.NumLevels(),
		EstimationMode: sk.IsEstimationMode(),
		SerializedSize: size,
	}

	if sk.IsEmpty() {
		return s
	}

	if minItem, err := sk.MinItem(); err == nil {
		s.Min = fmt.Sprint(minItem)
	}

	if maxItem, err := sk.MaxItem(); err == nil {
		s.Max = fmt.Sprint(maxItem)
	}

	return s
}

// Mode names the accuracy mode.
func (s Summary) Mode() string {
	if s.HRA {
		return "high-rank accuracy"
	}

	return "low-rank accuracy"
}
