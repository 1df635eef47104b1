package orchestrator

import (
	"time"

	"github.com/maastricht-university/edmo-der/der"
)

// Pair names one reference/system file couple to score.
type Pair struct {
	Name      string `yaml:"name" json:"name"`
	Reference string `yaml:"reference" json:"reference"`
	System    string `yaml:"system" json:"system"`
}

// Manifest lists the pairs of a batch run. Collar overrides the configured
// collar when set.
type Manifest struct {
	Collar *float64 `yaml:"collar,omitempty"`
	Pairs  []Pair   `yaml:"pairs"`
}

type Report struct {
	Name      string  `json:"name" yaml:"name"`
	Reference string  `json:"reference" yaml:"reference"`
	System    string  `json:"system" yaml:"system"`
	Collar    float64 `json:"collar" yaml:"collar"`
	TieBreak  string  `json:"tie_break" yaml:"tie_break"`

	Metrics der.Metrics       `json:"metrics" yaml:"metrics"`
	Mapping map[string]string `json:"mapping" yaml:"mapping"`

	// Aggregates, in seconds. RefOverlap is time with two or more
	// reference speakers talking.
	RefSpeakerTime map[string]float64 `json:"ref_speaker_time" yaml:"ref_speaker_time"`
	SysSpeakerTime map[string]float64 `json:"sys_speaker_time" yaml:"sys_speaker_time"`
	RefOverlap     float64            `json:"ref_overlap" yaml:"ref_overlap"`

	Intervals []der.ErrorInterval `json:"intervals,omitempty" yaml:"intervals,omitempty"`

	// set on persisted summaries, relative to the session dir
	IntervalsFile string `json:"intervals_file,omitempty" yaml:"intervals_file,omitempty"`
}

type Failure struct {
	Name  string `json:"name" yaml:"name"`
	Error string `json:"error" yaml:"error"`
}

type BatchReport struct {
	ID          string      `json:"id" yaml:"id"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	Collar      float64     `json:"collar" yaml:"collar"`
	Reports     []*Report   `json:"reports" yaml:"reports"`
	Failures    []Failure   `json:"failures,omitempty" yaml:"failures,omitempty"`
	Totals      der.Metrics `json:"totals" yaml:"totals"`
}
