package der

// Segment is one labeled speaker turn, in seconds.
type Segment struct {
	ID        string  `json:"id" yaml:"id"`
	SpeakerID string  `json:"speaker_id" yaml:"speaker_id"`
	Start     float64 `json:"start" yaml:"start"`
	End       float64 `json:"end" yaml:"end"`
}

// ErrorType labels an atomic interval.
type ErrorType string

const (
	OK  ErrorType = "OK"
	MS  ErrorType = "MS"  // missed speech
	FA  ErrorType = "FA"  // false alarm
	SER ErrorType = "SER" // speaker error
)

// ErrorInterval is a span between two consecutive timeline boundaries.
// Speaker sets are sorted and duplicate-free.
type ErrorInterval struct {
	Start       float64   `json:"start" yaml:"start"`
	End         float64   `json:"end" yaml:"end"`
	Type        ErrorType `json:"type" yaml:"type"`
	RefSpeakers []string  `json:"ref_speakers" yaml:"ref_speakers"`
	SysSpeakers []string  `json:"sys_speakers" yaml:"sys_speakers"`
}

// Duration never goes negative.
func (iv ErrorInterval) Duration() float64 {
	if d := iv.End - iv.Start; d > 0 {
		return d
	}
	return 0
}

// Metrics holds percentages of scored reference speech plus the raw times
// (seconds) they were derived from.
type Metrics struct {
	MS     float64 `json:"ms" yaml:"ms"`
	FA     float64 `json:"fa" yaml:"fa"`
	SER    float64 `json:"ser" yaml:"ser"`
	DER    float64 `json:"der" yaml:"der"`
	Scored float64 `json:"scored" yaml:"scored"`

	MissedTime       float64 `json:"missed_time" yaml:"missed_time"`
	FalseAlarmTime   float64 `json:"false_alarm_time" yaml:"false_alarm_time"`
	SpeakerErrorTime float64 `json:"speaker_error_time" yaml:"speaker_error_time"`
}

// Result is returned by Compute. The caller owns it.
type Result struct {
	Intervals []ErrorInterval `json:"intervals" yaml:"intervals"`
	Metrics   Metrics         `json:"metrics" yaml:"metrics"`
	// Mapping is system speaker -> reference speaker.
	Mapping map[string]string `json:"mapping" yaml:"mapping"`
}
