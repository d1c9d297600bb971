package search

import "github.com/Perruchok/vozpublica/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(query string)
	AfterRetrieval(records []core.SpeechTurnRecord)
	// Rejected is called for each retrieved turn dropped by the quality filter.
	Rejected(record *core.SpeechTurnRecord)
	// BeforeAnswer receives the context block handed to the answerer.
	BeforeAnswer(contextBlock string)
	Finish(results []Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                           {}
func (n *noopMonitor) AfterRetrieval(_ []core.SpeechTurnRecord) {}
func (n *noopMonitor) Rejected(_ *core.SpeechTurnRecord)        {}
func (n *noopMonitor) BeforeAnswer(_ string)                    {}
func (n *noopMonitor) Finish(_ []Result)                        {}
