package render

import (
	"reflect"
	"testing"

	"clip-forge/app/model"
)

func planInput() SwitchPlanInput {
	return SwitchPlanInput{
		ClipStart: 10,
		ClipEnd:   30,
		Sources: []SwitchSource{
			{ID: 1, PersonID: "spk-a", PersonLabel: "Alice"},
			{ID: 2, PersonID: "spk-b", PersonLabel: "Bob"},
		},
		DefaultSourceID: 1,
	}
}

func checkGapless(t *testing.T, spans []SwitchSpan, start, end float64) {
	t.Helper()
	if len(spans) == 0 {
		t.Fatal("no spans produced")
	}
	if spans[0].Start != start {
		t.Errorf("first span starts at %v, want %v", spans[0].Start, start)
	}
	if spans[len(spans)-1].End != end {
		t.Errorf("last span ends at %v, want %v", spans[len(spans)-1].End, end)
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].Start != spans[i-1].End {
			t.Errorf("gap between span %d and %d: %v != %v", i-1, i, spans[i-1].End, spans[i].Start)
		}
	}
	for i, s := range spans {
		if s.End <= s.Start {
			t.Errorf("span %d is empty: [%v,%v)", i, s.Start, s.End)
		}
	}
}

func TestPlanSwitchingCoversClip(t *testing.T) {
	in := planInput()
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 18},
		{PersonID: "spk-b", Start: 19, End: 27},
	}
	in.MinShotMs = 1500
	in.HoldPreviousMs = 1000

	spans := PlanSwitching(in)
	checkGapless(t, spans, 10, 30)
}

func TestPlanSwitchingNoSegmentsFallsToDefault(t *testing.T) {
	in := planInput()

	spans := PlanSwitching(in)
	want := []SwitchSpan{{Start: 10, End: 30, SourceID: 1}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingMapsSpeakers(t *testing.T) {
	in := planInput()
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 20},
		{PersonID: "spk-b", Start: 20, End: 30},
	}

	spans := PlanSwitching(in)
	want := []SwitchSpan{
		{Start: 10, End: 20, SourceID: 1},
		{Start: 20, End: 30, SourceID: 2},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingMatchesBySpeakerLabel(t *testing.T) {
	in := planInput()
	in.Segments = []model.SpeakerSegment{
		{Speaker: "alice", Start: 10, End: 20},
		{Speaker: "BOB", Start: 20, End: 30},
	}

	spans := PlanSwitching(in)
	if spans[0].SourceID != 1 || spans[1].SourceID != 2 {
		t.Errorf("label matching failed: %v", spans)
	}
}

func TestPlanSwitchingHoldPrevious(t *testing.T) {
	// 同一说话人两段发言之间 0.5s 的停顿不切回默认机位
	in := planInput()
	in.DefaultSourceID = 1
	in.HoldPreviousMs = 1000
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-b", Start: 10, End: 20},
		{PersonID: "spk-b", Start: 20.5, End: 30},
	}

	spans := PlanSwitching(in)
	want := []SwitchSpan{{Start: 10, End: 30, SourceID: 2}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingLongSilenceSwitchesToDefault(t *testing.T) {
	in := planInput()
	in.HoldPreviousMs = 1000
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-b", Start: 10, End: 15},
		{PersonID: "spk-b", Start: 20, End: 30},
	}

	spans := PlanSwitching(in)
	want := []SwitchSpan{
		{Start: 10, End: 15, SourceID: 2},
		{Start: 15, End: 20, SourceID: 1},
		{Start: 20, End: 30, SourceID: 2},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingMinShotAbsorbsMicroSegments(t *testing.T) {
	// 0.4s 的插话并入前一个镜头
	in := planInput()
	in.MinShotMs = 1500
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 20},
		{PersonID: "spk-b", Start: 20, End: 20.4},
		{PersonID: "spk-a", Start: 20.4, End: 30},
	}

	spans := PlanSwitching(in)
	want := []SwitchSpan{{Start: 10, End: 30, SourceID: 1}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingMinShotKeepsLongShots(t *testing.T) {
	in := planInput()
	in.MinShotMs = 1500
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 20},
		{PersonID: "spk-b", Start: 20, End: 30},
	}

	spans := PlanSwitching(in)
	if len(spans) != 2 {
		t.Fatalf("long shots should survive min-shot pass: %v", spans)
	}
}

func TestPlanSwitchingShortLeadingShotKept(t *testing.T) {
	// 第一个区间没有前驱，短于阈值也保留
	in := planInput()
	in.MinShotMs = 1500
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-b", Start: 10, End: 10.5},
		{PersonID: "spk-a", Start: 10.5, End: 30},
	}

	spans := PlanSwitching(in)
	checkGapless(t, spans, 10, 30)
	if spans[0].SourceID != 2 {
		t.Errorf("leading short span dropped: %v", spans)
	}
}

func TestPlanSwitchingManualOverride(t *testing.T) {
	in := planInput()
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 30},
	}
	in.Overrides = []SwitchOverride{{Start: 15, End: 20, SourceID: 2}}

	spans := PlanSwitching(in)
	want := []SwitchSpan{
		{Start: 10, End: 15, SourceID: 1},
		{Start: 15, End: 20, SourceID: 2},
		{Start: 20, End: 30, SourceID: 1},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingOverrideClampedToClip(t *testing.T) {
	in := planInput()
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 30},
	}
	in.Overrides = []SwitchOverride{{Start: 5, End: 50, SourceID: 2}}

	spans := PlanSwitching(in)
	want := []SwitchSpan{{Start: 10, End: 30, SourceID: 2}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingPreRoll(t *testing.T) {
	// 切点整体提前 200ms
	in := planInput()
	in.PreRollMs = 200
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 20},
		{PersonID: "spk-b", Start: 20, End: 30},
	}

	spans := PlanSwitching(in)
	want := []SwitchSpan{
		{Start: 10, End: 19.8, SourceID: 1},
		{Start: 19.8, End: 30, SourceID: 2},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingPreRollClampedToPreviousCut(t *testing.T) {
	in := planInput()
	in.PreRollMs = 500
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 10.3},
		{PersonID: "spk-b", Start: 10.3, End: 30},
	}

	spans := PlanSwitching(in)
	checkGapless(t, spans, 10, 30)
	for _, s := range spans {
		if s.Start < 10 {
			t.Errorf("pre-roll moved a cut before the clip start: %v", spans)
		}
	}
}

func TestPlanSwitchingSegmentsOutsideClip(t *testing.T) {
	in := planInput()
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-b", Start: 0, End: 5},
		{PersonID: "spk-b", Start: 12, End: 18},
		{PersonID: "spk-b", Start: 40, End: 50},
	}

	spans := PlanSwitching(in)
	checkGapless(t, spans, 10, 30)
}

func TestPlanSwitchingOverlappingSegments(t *testing.T) {
	in := planInput()
	in.Segments = []model.SpeakerSegment{
		{PersonID: "spk-a", Start: 10, End: 22},
		{PersonID: "spk-b", Start: 18, End: 30},
	}

	spans := PlanSwitching(in)
	checkGapless(t, spans, 10, 30)
	want := []SwitchSpan{
		{Start: 10, End: 22, SourceID: 1},
		{Start: 22, End: 30, SourceID: 2},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("got %v, want %v", spans, want)
	}
}

func TestPlanSwitchingEmptyClip(t *testing.T) {
	in := planInput()
	in.ClipEnd = in.ClipStart

	if spans := PlanSwitching(in); spans != nil {
		t.Errorf("empty clip should produce no spans, got %v", spans)
	}
}

func TestToFrameSpans(t *testing.T) {
	spans := []SwitchSpan{
		{Start: 10, End: 19.8, SourceID: 1},
		{Start: 19.8, End: 30, SourceID: 2},
	}

	frames := ToFrameSpans(spans, 10, 30)
	want := []FrameSpan{
		{StartFrame: 0, EndFrame: 294, SourceID: 1},
		{StartFrame: 294, EndFrame: 600, SourceID: 2},
	}
	if !reflect.DeepEqual(frames, want) {
		t.Errorf("got %v, want %v", frames, want)
	}
}

func TestToFrameSpansDropsCollapsed(t *testing.T) {
	// 帧精度下坍缩为零帧的区间被移除，且不产生缝隙
	spans := []SwitchSpan{
		{Start: 0, End: 0.01, SourceID: 1},
		{Start: 0.01, End: 5, SourceID: 2},
	}

	frames := ToFrameSpans(spans, 0, 30)
	want := []FrameSpan{{StartFrame: 0, EndFrame: 150, SourceID: 2}}
	if !reflect.DeepEqual(frames, want) {
		t.Errorf("got %v, want %v", frames, want)
	}
}

func TestToFrameSpansEmpty(t *testing.T) {
	if f := ToFrameSpans(nil, 0, 30); f != nil {
		t.Errorf("expected nil, got %v", f)
	}
	if f := ToFrameSpans([]SwitchSpan{{Start: 0, End: 1, SourceID: 1}}, 0, 0); f != nil {
		t.Errorf("expected nil for zero fps, got %v", f)
	}
}
