// Copyright 2025 The vozpublica Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/Perruchok/vozpublica/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalSpeechTurn serializes a SpeechTurn to bytes.
func MarshalSpeechTurn(turn *core.SpeechTurn) []byte {
	buf := make([]byte, core.SpeechTurnMUS.Size(*turn))
	core.SpeechTurnMUS.Marshal(*turn, buf)
	return buf
}

// UnmarshalSpeechTurn deserializes a SpeechTurn from bytes.
func UnmarshalSpeechTurn(data []byte) (*core.SpeechTurn, error) {
	turn, _, err := core.SpeechTurnMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &turn, nil
}

// MarshalTranscript serializes a Transcript to bytes.
func MarshalTranscript(t *core.Transcript) []byte {
	buf := make([]byte, core.TranscriptMUS.Size(*t))
	core.TranscriptMUS.Marshal(*t, buf)
	return buf
}

// UnmarshalTranscript deserializes a Transcript from bytes.
func UnmarshalTranscript(data []byte) (*core.Transcript, error) {
	t, _, err := core.TranscriptMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &t, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &checkpoint, nil
}
