package render

import (
	"reflect"
	"testing"

	"clip-forge/app/model"
)

func TestGroupWordsCoversAllWords(t *testing.T) {
	cases := []struct {
		name          string
		wordCount     int
		wordsPerGroup int
		breaks        []int
	}{
		{"no breaks even", 12, 4, nil},
		{"no breaks remainder", 10, 4, nil},
		{"single break", 10, 4, []int{6}},
		{"break at group boundary", 12, 4, []int{4}},
		{"many breaks", 20, 3, []int{5, 7, 13}},
		{"group size one", 5, 1, []int{2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups := GroupWords(tc.wordCount, tc.wordsPerGroup, tc.breaks)

			cursor := 0
			for _, g := range groups {
				if g.Start != cursor {
					t.Fatalf("group starts at %d, want %d (gap or overlap)", g.Start, cursor)
				}
				if g.End <= g.Start {
					t.Fatalf("empty group [%d,%d)", g.Start, g.End)
				}
				if g.End-g.Start > tc.wordsPerGroup {
					t.Errorf("group [%d,%d) exceeds size %d", g.Start, g.End, tc.wordsPerGroup)
				}
				cursor = g.End
			}
			if cursor != tc.wordCount {
				t.Errorf("groups cover [0,%d), want [0,%d)", cursor, tc.wordCount)
			}
		})
	}
}

func TestGroupWordsBreaksStartNewGroup(t *testing.T) {
	groups := GroupWords(10, 4, []int{6})

	want := []WordGroup{{0, 4}, {4, 6}, {6, 10}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("got %v, want %v", groups, want)
	}
}

func TestGroupWordsNoGroupCrossesBreak(t *testing.T) {
	breaks := []int{3, 9, 15}
	groups := GroupWords(20, 4, breaks)

	for _, b := range breaks {
		for _, g := range groups {
			if g.Start < b && b < g.End {
				t.Errorf("group [%d,%d) crosses break %d", g.Start, g.End, b)
			}
		}
	}
}

func TestGroupWordsIgnoresInvalidBreaks(t *testing.T) {
	// 越界、零、重复的断点都不产生影响
	plain := GroupWords(8, 4, nil)
	noisy := GroupWords(8, 4, []int{0, -3, 8, 12, 4, 4})

	want := []WordGroup{{0, 4}, {4, 8}}
	if !reflect.DeepEqual(noisy, want) {
		t.Errorf("got %v, want %v", noisy, want)
	}
	if len(plain) != 2 {
		t.Errorf("baseline groups = %v", plain)
	}
}

func TestGroupWordsEmptyInput(t *testing.T) {
	if groups := GroupWords(0, 4, nil); groups != nil {
		t.Errorf("expected nil for zero words, got %v", groups)
	}
	if groups := GroupWords(-1, 4, nil); groups != nil {
		t.Errorf("expected nil for negative count, got %v", groups)
	}
}

func TestGroupWordsClampsGroupSize(t *testing.T) {
	groups := GroupWords(3, 0, nil)
	want := []WordGroup{{0, 1}, {1, 2}, {2, 3}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("got %v, want %v", groups, want)
	}
}

func TestFindGroup(t *testing.T) {
	groups := GroupWords(10, 4, []int{6})

	for idx := 0; idx < 10; idx++ {
		g, ok := FindGroup(groups, idx)
		if !ok {
			t.Fatalf("word %d not found in any group", idx)
		}
		if idx < g.Start || idx >= g.End {
			t.Errorf("word %d resolved to group [%d,%d)", idx, g.Start, g.End)
		}
	}

	if _, ok := FindGroup(groups, 10); ok {
		t.Error("index past the end should not resolve")
	}
	if _, ok := FindGroup(groups, -1); ok {
		t.Error("negative index should not resolve")
	}
	if _, ok := FindGroup(nil, 0); ok {
		t.Error("empty group list should not resolve")
	}
}

func TestDeriveBreakIndices(t *testing.T) {
	clipStart := 100.0
	words := []model.WordTiming{
		{Word: "a", Start: 0.0, End: 0.5},
		{Word: "b", Start: 0.5, End: 1.0},
		{Word: "c", Start: 1.0, End: 1.5},
		{Word: "d", Start: 2.0, End: 2.5},
		{Word: "e", Start: 2.5, End: 3.0},
	}
	segments := []model.SpeakerSegment{
		{Speaker: "host", Start: 100.0, End: 102.0},
		{Speaker: "guest", Start: 102.0, End: 103.0},
	}

	breaks := DeriveBreakIndices(segments, words, clipStart)
	want := []int{3}
	if !reflect.DeepEqual(breaks, want) {
		t.Errorf("got %v, want %v", breaks, want)
	}
}

func TestDeriveBreakIndicesTolerance(t *testing.T) {
	// 词开始时间比分段边界早不到 10ms 时仍算作边界词
	words := []model.WordTiming{
		{Word: "a", Start: 0.0, End: 0.5},
		{Word: "b", Start: 1.995, End: 2.4},
		{Word: "c", Start: 2.5, End: 3.0},
	}
	segments := []model.SpeakerSegment{
		{Speaker: "host", Start: 0, End: 2.0},
		{Speaker: "guest", Start: 2.0, End: 3.0},
	}

	breaks := DeriveBreakIndices(segments, words, 0)
	want := []int{1}
	if !reflect.DeepEqual(breaks, want) {
		t.Errorf("got %v, want %v", breaks, want)
	}
}

func TestDeriveBreakIndicesDegenerate(t *testing.T) {
	words := []model.WordTiming{{Word: "a", Start: 0, End: 1}}

	if b := DeriveBreakIndices(nil, words, 0); b != nil {
		t.Errorf("no segments should yield no breaks, got %v", b)
	}
	single := []model.SpeakerSegment{{Speaker: "host", Start: 0, End: 10}}
	if b := DeriveBreakIndices(single, words, 0); b != nil {
		t.Errorf("single segment should yield no breaks, got %v", b)
	}
	two := []model.SpeakerSegment{
		{Speaker: "host", Start: 0, End: 5},
		{Speaker: "guest", Start: 5, End: 10},
	}
	if b := DeriveBreakIndices(two, nil, 0); b != nil {
		t.Errorf("no words should yield no breaks, got %v", b)
	}
	// 边界落在全部词之前或之后时索引无效，不产生断点
	early := []model.SpeakerSegment{
		{Speaker: "host", Start: 0, End: 0},
		{Speaker: "guest", Start: 0, End: 1},
	}
	if b := DeriveBreakIndices(early, words, 0); b != nil {
		t.Errorf("boundary before all words should yield no breaks, got %v", b)
	}
}
