package service

import (
	"errors"
	"testing"

	"clip-forge/app/model"
)

func newTimelineService(t *testing.T) *TimelineService {
	t.Helper()
	return NewTimelineService(newTestDB(t), newTestLogger())
}

func TestTimelineGetMissing(t *testing.T) {
	svc := newTimelineService(t)

	tl, err := svc.Get(999)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tl != nil {
		t.Errorf("expected nil for missing timeline, got %+v", tl)
	}
}

func TestTimelineUpsertRequiresTracks(t *testing.T) {
	svc := newTimelineService(t)

	_, err := svc.Upsert(1, &TimelineInput{}, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	_, err = svc.Upsert(1, nil, nil)
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for nil input, got %v", err)
	}
}

func TestTimelineUpsertCreatesWithDefaults(t *testing.T) {
	svc := newTimelineService(t)

	tl, err := svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}}, nil)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if tl.FPS != 30 {
		t.Errorf("fps = %d, want 30", tl.FPS)
	}
	if tl.Format != model.FormatLandscape {
		t.Errorf("format = %q, want %q", tl.Format, model.FormatLandscape)
	}
	if tl.Version != 1 {
		t.Errorf("version = %d, want 1", tl.Version)
	}
	if tl.Background == nil || tl.Background.Type != "gradient" {
		t.Errorf("background = %+v, want default gradient", tl.Background)
	}
}

func TestTimelineUpsertConflict(t *testing.T) {
	svc := newTimelineService(t)

	tl, err := svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}}, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// 过期的客户端时间戳被拒绝
	stale := tl.UpdatedAt.UnixMilli() - 1
	_, err = svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}}, &stale)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.ServerUpdatedAt.UnixMilli() != tl.UpdatedAt.UnixMilli() {
		t.Errorf("conflict carries %v, want %v", ce.ServerUpdatedAt, tl.UpdatedAt)
	}

	// 一致的时间戳允许写入
	current := tl.UpdatedAt.UnixMilli()
	updated, err := svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}}, &current)
	if err != nil {
		t.Fatalf("matching timestamp rejected: %v", err)
	}
	if updated.Version != tl.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, tl.Version+1)
	}
}

func TestTimelineUpsertWithoutTimestampAlwaysWrites(t *testing.T) {
	svc := newTimelineService(t)

	if _, err := svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}}, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	duration := 42.0
	tl, err := svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}, Duration: &duration}, nil)
	if err != nil {
		t.Fatalf("unconditional write failed: %v", err)
	}
	if tl.Duration != 42.0 {
		t.Errorf("duration = %v, want 42", tl.Duration)
	}
}

func TestTimelineUpdatedAtStrictlyIncreases(t *testing.T) {
	svc := newTimelineService(t)

	tl, err := svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}}, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	prev := tl.UpdatedAt
	for i := 0; i < 5; i++ {
		ms := prev.UnixMilli()
		tl, err = svc.Upsert(1, &TimelineInput{Tracks: model.TrackList{}}, &ms)
		if err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
		if !tl.UpdatedAt.After(prev) {
			t.Fatalf("updated_at did not advance: %v -> %v", prev, tl.UpdatedAt)
		}
		prev = tl.UpdatedAt
	}
}

func TestInitializeFromMedia(t *testing.T) {
	db := newTestDB(t)
	svc := NewTimelineService(db, newTestLogger())
	episodeID, _ := seedEpisode(t, db)

	tl, wasCreated, err := svc.InitializeFromMedia(episodeID)
	if err != nil {
		t.Fatalf("InitializeFromMedia failed: %v", err)
	}
	if !wasCreated {
		t.Error("first call should create the timeline")
	}
	if tl.Duration != 1800 {
		t.Errorf("duration = %v, want 1800", tl.Duration)
	}

	var video, audio, captions *model.Track
	for i := range tl.Tracks {
		switch tl.Tracks[i].Type {
		case model.TrackTypeVideoMain:
			video = &tl.Tracks[i]
		case model.TrackTypeAudioMain:
			audio = &tl.Tracks[i]
		case model.TrackTypeCaptions:
			captions = &tl.Tracks[i]
		}
	}
	if video == nil || audio == nil || captions == nil {
		t.Fatalf("missing default tracks: %+v", tl.Tracks)
	}
	if len(video.Items) != 2 {
		t.Errorf("video items = %d, want one per speaker source", len(video.Items))
	}
	if video.Items[0].Opacity != 1 || video.Items[1].Opacity != 0 {
		t.Errorf("only the first source should be visible: %+v", video.Items)
	}
	if len(audio.Items) != 1 {
		t.Errorf("audio items = %d, want 1", len(audio.Items))
	}

	// 2 机位时播种多机位配置
	if tl.MulticamConfig == nil {
		t.Fatal("multicam config not seeded for 2 speakers")
	}
	if len(tl.MulticamConfig.SwitchingIntervals) != 1 {
		t.Errorf("seeded intervals = %v", tl.MulticamConfig.SwitchingIntervals)
	}
	if tl.MulticamConfig.SwitchingIntervals[0].EndTime != 1800 {
		t.Errorf("seeded interval should span the whole timeline: %+v", tl.MulticamConfig.SwitchingIntervals[0])
	}
}

func TestInitializeFromMediaIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewTimelineService(db, newTestLogger())
	episodeID, _ := seedEpisode(t, db)

	first, _, err := svc.InitializeFromMedia(episodeID)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, wasCreated, err := svc.InitializeFromMedia(episodeID)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if wasCreated {
		t.Error("second call must not create")
	}
	if second.ID != first.ID {
		t.Errorf("second call returned a different timeline: %d != %d", second.ID, first.ID)
	}
}

func TestInitializeFromMediaErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewTimelineService(db, newTestLogger())

	if _, _, err := svc.InitializeFromMedia(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing episode: got %v, want ErrNotFound", err)
	}

	empty := model.Episode{Title: "空节目"}
	if err := db.Create(&empty).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := svc.InitializeFromMedia(empty.ID); !errors.Is(err, ErrNoMedia) {
		t.Errorf("episode without media: got %v, want ErrNoMedia", err)
	}
}
