package model

import "fmt"

// SequenceState is a sequence close to exhausting its value range.
type SequenceState struct {
	Name                string  `json:"sequenceName" yaml:"sequenceName"`
	DataType            string  `json:"dataType" yaml:"dataType"`
	RemainingPercentage float64 `json:"remainingPercentage" yaml:"remainingPercentage"`
}

func (s SequenceState) ObjectName() string     { return s.Name }
func (s SequenceState) ObjectType() ObjectType { return ObjectSequence }
func (s SequenceState) Identity() string       { return identity(ObjectSequence, s.Name) }

func (s SequenceState) String() string {
	return fmt.Sprintf("SequenceState{sequenceName=%s, dataType=%s, remainingPercentage=%g}",
		s.Name, s.DataType, s.RemainingPercentage)
}
