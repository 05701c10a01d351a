package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      ExtensionSettings
		wantErr bool
	}{
		{
			name: "valid auto",
			in:   ExtensionSettings{IntroLength: 16, OutroLength: 16, PreserveVocals: true, BeatDetection: BeatDetectionAuto},
		},
		{
			name: "valid bounds",
			in:   ExtensionSettings{IntroLength: 8, OutroLength: 64, BeatDetection: BeatDetectionOnset},
		},
		{
			name:    "intro too small",
			in:      ExtensionSettings{IntroLength: 0, OutroLength: 16, BeatDetection: BeatDetectionAuto},
			wantErr: true,
		},
		{
			name:    "outro too large",
			in:      ExtensionSettings{IntroLength: 16, OutroLength: 72, BeatDetection: BeatDetectionAuto},
			wantErr: true,
		},
		{
			name:    "intro not a step of 8",
			in:      ExtensionSettings{IntroLength: 12, OutroLength: 16, BeatDetection: BeatDetectionAuto},
			wantErr: true,
		},
		{
			name:    "unknown beat detection",
			in:      ExtensionSettings{IntroLength: 16, OutroLength: 16, BeatDetection: "psychic"},
			wantErr: true,
		},
		{
			name:    "empty beat detection",
			in:      ExtensionSettings{IntroLength: 16, OutroLength: 16},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
