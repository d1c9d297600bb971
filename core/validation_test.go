package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateTranscript(t *testing.T) {
	published := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		transcript *Transcript
		wantErr    error
	}{
		{
			name: "valid transcript",
			transcript: &Transcript{
				DocID:       "2025-03-04-mananera",
				Title:       "Versión estenográfica",
				PublishedAt: published,
			},
			wantErr: nil,
		},
		{
			name: "valid transcript without href",
			transcript: &Transcript{
				DocID:       "doc",
				PublishedAt: published,
			},
			wantErr: nil,
		},
		{
			name:       "nil transcript",
			transcript: nil,
			wantErr:    ErrInvalidTranscript,
		},
		{
			name: "blank doc id",
			transcript: &Transcript{
				DocID:       "   ",
				PublishedAt: published,
			},
			wantErr: ErrEmptyDocID,
		},
		{
			name: "missing published date",
			transcript: &Transcript{
				DocID: "doc",
			},
			wantErr: ErrMissingPublishedAt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTranscript(tt.transcript)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTranscript() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTranscript() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidTranscript) {
				t.Errorf("ValidateTranscript() error = %v, want wrapped %v", err, ErrInvalidTranscript)
			}
		})
	}
}

func TestValidateSpeechTurn(t *testing.T) {
	tests := []struct {
		name    string
		turn    *SpeechTurn
		wantErr error
	}{
		{
			name:    "valid turn",
			turn:    &SpeechTurn{DocID: "doc", Sequence: 3, SpeakerRaw: "INTERLOCUTOR", Text: "Buenos días."},
			wantErr: nil,
		},
		{
			name:    "valid turn without vector or speaker",
			turn:    &SpeechTurn{DocID: "doc", Text: "Gracias."},
			wantErr: nil,
		},
		{
			name:    "nil turn",
			turn:    nil,
			wantErr: ErrInvalidSpeechTurn,
		},
		{
			name:    "blank doc id",
			turn:    &SpeechTurn{Text: "hola"},
			wantErr: ErrEmptyDocID,
		},
		{
			name:    "negative sequence",
			turn:    &SpeechTurn{DocID: "doc", Sequence: -1, Text: "hola"},
			wantErr: ErrNegativeSequence,
		},
		{
			name:    "empty text",
			turn:    &SpeechTurn{DocID: "doc", Text: " \n\t"},
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpeechTurn(tt.turn)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSpeechTurn() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Errorf("ValidateSpeechTurn() error = nil, want %v", tt.wantErr)
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSpeechTurn() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
