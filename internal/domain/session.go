package domain

import "time"

// StepType names one stage of the analysis pipeline.
type StepType string

const (
	StepListening StepType = "listening"
	StepReceiving StepType = "receiving"
	StepFiltering StepType = "filtering"
	StepAnalyzing StepType = "analyzing"
	StepDeciding  StepType = "deciding"
	StepExecuting StepType = "executing"
	StepComplete  StepType = "complete"
)

// StepStatus is the progress state of one step. A step may move
// pending → processing → complete|error; it is never removed or reordered
// once appended.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusComplete   StepStatus = "complete"
	StepStatusError      StepStatus = "error"
)

// AnalysisStep is one stage's progress marker within a session. Steps form an
// append-only sequence ordered by stage execution.
type AnalysisStep struct {
	ID          string         `json:"id"`
	Type        StepType       `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      StepStatus     `json:"status"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// SessionStatus is the lifecycle state of an analysis session.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionComplete SessionStatus = "complete"
	SessionError    SessionStatus = "error"
)

// AnalysisSession is the full record of one event's pipeline run: every step,
// the filter result, all per-market impact judgments (insertion order follows
// the filter's relevant-market order), and the at-most-one executed trade.
// A session is mutated only by the single pipeline execution that owns it and
// becomes immutable once sealed (status complete or error, EndTime set).
type AnalysisSession struct {
	ID            string           `json:"id"`
	Event         Event            `json:"event"`
	Steps         []AnalysisStep   `json:"steps"`
	FilterResult  *FilterResult    `json:"filterResult,omitempty"`
	MarketImpacts []ImpactJudgment `json:"marketImpacts"`
	Trades        []TradeExecution `json:"trades"`
	Status        SessionStatus    `json:"status"`
	StartTime     time.Time        `json:"startTime"`
	EndTime       *time.Time       `json:"endTime,omitempty"`
}

// Sealed reports whether the session reached a terminal status.
func (s *AnalysisSession) Sealed() bool {
	return s.Status == SessionComplete || s.Status == SessionError
}

// MaxConfidence returns the highest confidence across the session's impact
// judgments, or 0 when there are none.
func (s *AnalysisSession) MaxConfidence() float64 {
	var max float64
	for _, imp := range s.MarketImpacts {
		if imp.Confidence > max {
			max = imp.Confidence
		}
	}
	return max
}

// Clone returns a deep copy of the session. The store hands out clones so
// readers can never observe a session mid-mutation.
func (s *AnalysisSession) Clone() AnalysisSession {
	out := *s

	out.Steps = make([]AnalysisStep, len(s.Steps))
	for i, st := range s.Steps {
		out.Steps[i] = st
		if st.Data != nil {
			data := make(map[string]any, len(st.Data))
			for k, v := range st.Data {
				data[k] = v
			}
			out.Steps[i].Data = data
		}
	}

	if s.FilterResult != nil {
		fr := *s.FilterResult
		fr.RelevantMarketIDs = append([]string(nil), s.FilterResult.RelevantMarketIDs...)
		out.FilterResult = &fr
	}

	out.MarketImpacts = make([]ImpactJudgment, len(s.MarketImpacts))
	for i, imp := range s.MarketImpacts {
		out.MarketImpacts[i] = imp
		out.MarketImpacts[i].ReasoningSteps = append([]string(nil), imp.ReasoningSteps...)
		if imp.Market.Tokens != nil {
			tokens := *imp.Market.Tokens
			out.MarketImpacts[i].Market.Tokens = &tokens
		}
	}

	out.Trades = append([]TradeExecution(nil), s.Trades...)

	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}

	return out
}
