package types

import "fmt"

const (
	// MinSectionLength and MaxSectionLength bound intro/outro lengths, in steps of SectionStep.
	MinSectionLength = 8
	MaxSectionLength = 64
	SectionStep      = 8
)

// BeatDetection algorithms accepted by the worker
const (
	BeatDetectionAuto  = "auto"
	BeatDetectionOnset = "onset"
	BeatDetectionTempo = "tempo"
)

// ExtensionSettings is the parameter set for one extension job
type ExtensionSettings struct {
	IntroLength    int    `json:"introLength"`
	OutroLength    int    `json:"outroLength"`
	PreserveVocals bool   `json:"preserveVocals"`
	BeatDetection  string `json:"beatDetection"`
}

// Validate checks the settings against the accepted bounds
func (s ExtensionSettings) Validate() error {
	if err := validateSectionLength("introLength", s.IntroLength); err != nil {
		return err
	}
	if err := validateSectionLength("outroLength", s.OutroLength); err != nil {
		return err
	}
	switch s.BeatDetection {
	case BeatDetectionAuto, BeatDetectionOnset, BeatDetectionTempo:
	default:
		return fmt.Errorf("beatDetection must be one of %q, %q, %q",
			BeatDetectionAuto, BeatDetectionOnset, BeatDetectionTempo)
	}
	return nil
}

func validateSectionLength(field string, value int) error {
	if value < MinSectionLength || value > MaxSectionLength {
		return fmt.Errorf("%s must be between %d and %d", field, MinSectionLength, MaxSectionLength)
	}
	if value%SectionStep != 0 {
		return fmt.Errorf("%s must be a multiple of %d", field, SectionStep)
	}
	return nil
}
