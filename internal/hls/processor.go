package hls

import (
	"fmt"
	"strings"
)

// StreamProcessor drives the playlist rewrite: classify each input
// line, apply any state update the line type implies, hand the line to
// the first matching rule in the chain, then advance the segment
// bookkeeping when a URI was just emitted. The processor itself holds
// only the rule chain; Process keeps the whole input body and the whole
// rewritten output in memory, while each line's handling consults only
// the current ProcessorState.
type StreamProcessor struct {
	rules []TransformRule
}

// NewStreamProcessor returns a processor driven by the given rule
// chain. Pass DefaultRules() for the standard five-rule chain.
func NewStreamProcessor(rules []TransformRule) *StreamProcessor {
	return &StreamProcessor{rules: rules}
}

// Process rewrites an entire playlist body and returns the rewritten
// text. Lines are split on LF; a trailing CR on each line is trimmed
// for classification and dropped from the output (CRLF playlists are
// normalized to LF).
func (p *StreamProcessor) Process(body string, ctx *TransformContext) string {
	state := NewProcessorState()
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		lt := Classify(line)

		p.preTransform(line, lt, state)

		emitted, matched := p.dispatch(line, lt, state, ctx)
		if !matched {
			emitted = []string{line}
		}
		out = append(out, emitted...)

		p.postTransform(lt, state)
	}

	return strings.Join(out, "\n")
}

// preTransform applies the state update a line type implies, before
// rule dispatch sees it.
func (p *StreamProcessor) preTransform(line string, lt LineType, state *ProcessorState) {
	switch lt {
	case LineStreamInf:
		state.SetPendingVariant(ParseStreamInfo(TagValue(line, lt)))
	case LineMediaSequence:
		state.UpdateMediaSequence(parseUint64Tag(TagValue(line, lt)))
	case LineKey:
		state.UpdateKey(ParseKeyInfo(TagValue(line, lt)))
	case LineMap:
		state.UpdateMap(ParseMapInfo(TagValue(line, lt)))
	case LineInf:
		state.SetPendingSegment()
	case LineByteRange:
		if br, err := ParseByteRange(TagValue(line, lt)); err == nil {
			state.SetByteRange(br)
		}
	}
}

// dispatch walks the rule chain and returns the first match's output.
func (p *StreamProcessor) dispatch(line string, lt LineType, state *ProcessorState, ctx *TransformContext) ([]string, bool) {
	for _, rule := range p.rules {
		if rule.Matches(lt, state, ctx) {
			if ctx.Logger != nil {
				ctx.Logger.Debug().
					Str("rule", fmt.Sprintf("%T", rule)).
					Bool("intercepting", ctx.ShouldIntercept(state.CurrentKey)).
					Msg("transform rule matched")
			}
			return rule.Transform(line, lt, state, ctx), true
		}
	}
	return nil, false
}

// postTransform advances per-segment bookkeeping once a URI line has
// been classified and (possibly) rewritten: a segment URI advances the
// counters, a variant URI only clears the pending marker.
func (p *StreamProcessor) postTransform(lt LineType, state *ProcessorState) {
	if lt != LineURI {
		return
	}
	switch state.Pending {
	case PendingSegment, PendingNone:
		state.AdvanceSegment()
	case PendingVariant:
		state.ClearPending()
	}
}
