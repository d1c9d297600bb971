package analysis

import (
	"sort"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/vecmath"
)

// DefaultMinEvidence is the number of samples a speaker needs in each period.
const DefaultMinEvidence = 2

// SpeakerSample is one embedding attributed to a speaker identity.
type SpeakerSample struct {
	Speaker string
	Vector  []float32
}

// SpeakerDrift is how far one speaker's mean embedding moved between periods.
type SpeakerDrift struct {
	Speaker   string  `json:"speaker" yaml:"speaker"`
	Drift     float64 `json:"drift" yaml:"drift"`
	PreCount  int     `json:"pre_count" yaml:"pre_count"`
	PostCount int     `json:"post_count" yaml:"post_count"`
}

// SamplesFromRecords converts records into speaker samples. The identity is
// the normalized speaker, else the raw label. Records without an identity or
// without a usable embedding are skipped.
func SamplesFromRecords(records []core.SpeechTurnRecord) []SpeakerSample {
	samples := make([]SpeakerSample, 0, len(records))
	for i := range records {
		r := &records[i]
		identity := r.SpeakerNormalized
		if identity == "" {
			identity = r.SpeakerRaw
		}
		if identity == "" {
			continue
		}
		vec, err := r.Embedding.Resolve()
		if err != nil {
			continue
		}
		samples = append(samples, SpeakerSample{Speaker: identity, Vector: vec})
	}
	return samples
}

type speakerGroup struct {
	mean  []float32
	count int
}

// groupBySpeaker computes the mean embedding per identity, keeping only
// identities with at least minEvidence samples.
func groupBySpeaker(samples []SpeakerSample, minEvidence int) map[string]speakerGroup {
	byName := make(map[string][][]float32)
	for _, s := range samples {
		if s.Speaker == "" {
			continue
		}
		byName[s.Speaker] = append(byName[s.Speaker], s.Vector)
	}

	groups := make(map[string]speakerGroup, len(byName))
	for name, vecs := range byName {
		if len(vecs) < minEvidence {
			continue
		}
		mean, err := vecmath.Mean(vecs)
		if err != nil {
			continue
		}
		groups[name] = speakerGroup{mean: mean, count: len(vecs)}
	}
	return groups
}

// AnalyzeSpeakerDrift ranks speakers present with sufficient evidence in both
// periods by the cosine distance between their pre and post mean embeddings.
// Results are sorted by drift descending, ties by speaker name ascending.
// A non-positive minEvidence means DefaultMinEvidence.
func AnalyzeSpeakerDrift(pre, post []SpeakerSample, minEvidence int) []SpeakerDrift {
	if minEvidence <= 0 {
		minEvidence = DefaultMinEvidence
	}

	preGroups := groupBySpeaker(pre, minEvidence)
	postGroups := groupBySpeaker(post, minEvidence)

	drifts := make([]SpeakerDrift, 0)
	for name, p := range preGroups {
		q, ok := postGroups[name]
		if !ok {
			continue
		}
		drifts = append(drifts, SpeakerDrift{
			Speaker:   name,
			Drift:     vecmath.CosineDistance(p.mean, q.mean),
			PreCount:  p.count,
			PostCount: q.count,
		})
	}

	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].Drift != drifts[j].Drift {
			return drifts[i].Drift > drifts[j].Drift
		}
		return drifts[i].Speaker < drifts[j].Speaker
	})
	return drifts
}
