package formresponse

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ------------------------------------------------------------
// Fakes
// ------------------------------------------------------------

type fakeSchemaSvc struct {
	mu     sync.Mutex
	fields []FieldDefinition
	err    error
	fn     func(call int) ([]FieldDefinition, error)
	calls  int
}

func (f *fakeSchemaSvc) FieldDefinitions(ctx context.Context, formID string) ([]FieldDefinition, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	fields, err := f.fields, f.err
	f.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	return fields, err
}

type fakeResponseSvc struct {
	mu          sync.Mutex
	fetchFn     func(id string) (*ResponseRecord, error)
	createFn    func(p SubmitPayload) (*ResponseRecord, error)
	updateFn    func(id string, p SubmitPayload) (*ResponseRecord, error)
	deleteFn    func(id string) error
	createCalls int
	updateCalls int
	lastPayload SubmitPayload
}

func (f *fakeResponseSvc) Fetch(ctx context.Context, id string) (*ResponseRecord, error) {
	if f.fetchFn != nil {
		return f.fetchFn(id)
	}
	return nil, nil
}

func (f *fakeResponseSvc) Create(ctx context.Context, p SubmitPayload) (*ResponseRecord, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastPayload = p
	fn := f.createFn
	f.mu.Unlock()

	if fn != nil {
		return fn(p)
	}
	return &ResponseRecord{ID: "resp-1", FormID: p.FormID, UserID: p.UserID, Values: p.Values}, nil
}

func (f *fakeResponseSvc) Update(ctx context.Context, id string, p SubmitPayload) (*ResponseRecord, error) {
	f.mu.Lock()
	f.updateCalls++
	f.lastPayload = p
	fn := f.updateFn
	f.mu.Unlock()

	if fn != nil {
		return fn(id, p)
	}
	return &ResponseRecord{ID: id, FormID: p.FormID, UserID: p.UserID, Values: p.Values}, nil
}

func (f *fakeResponseSvc) DeletePermanently(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

func (f *fakeResponseSvc) payload() SubmitPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPayload
}

func (f *fakeResponseSvc) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

type fakeUploadSvc struct {
	mu       sync.Mutex
	fn       func(file UploadFile, snapshot map[string]interface{}) (*AssetUploadResult, error)
	lastSnap map[string]interface{}
}

func (f *fakeUploadSvc) Upload(ctx context.Context, file UploadFile, snapshot map[string]interface{}) (*AssetUploadResult, error) {
	f.mu.Lock()
	f.lastSnap = snapshot
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		return fn(file, snapshot)
	}
	return &AssetUploadResult{SecureURL: "https://cdn/obj", ID: 1, OriginalFilename: file.Filename}, nil
}

// ------------------------------------------------------------
// Helpers
// ------------------------------------------------------------

func testSchema() []FieldDefinition {
	return []FieldDefinition{
		{Label: "Name", Kind: KindText, Required: true},
		{Label: "Visited", Kind: KindDate},
		{Label: "Tags", Kind: KindCheckbox, Choices: []string{"red", "green", "blue"}},
		{Label: "Photo", Kind: KindImageUpload},
	}
}

func newTestController(t *testing.T, schemaSvc *fakeSchemaSvc, respSvc *fakeResponseSvc, uploadSvc *fakeUploadSvc) *Controller {
	t.Helper()
	if schemaSvc == nil {
		schemaSvc = &fakeSchemaSvc{fields: testSchema()}
	}
	if respSvc == nil {
		respSvc = &fakeResponseSvc{}
	}
	if uploadSvc == nil {
		uploadSvc = &fakeUploadSvc{}
	}
	return New("form-1", "user-1", Deps{
		Schema:   schemaSvc,
		Response: respSvc,
		Upload:   uploadSvc,
		Logger:   zap.NewNop(),
	})
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}

// ------------------------------------------------------------
// Schema loading
// ------------------------------------------------------------

func TestLoadSchemaInitializesValues(t *testing.T) {
	c := newTestController(t, nil, nil, nil)
	c.LoadSchema(context.Background())

	st := c.State()
	if st.SchemaLoading {
		t.Error("schema loading flag should be cleared")
	}
	if len(st.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(st.Fields))
	}
	if v, ok := st.Values["Name"]; !ok || v != "" {
		t.Errorf("text field should initialize to empty string, got %v", v)
	}
	if tags := stringSlice(st.Values["Tags"]); tags == nil || len(tags) != 0 {
		t.Errorf("checkbox field should initialize to empty slice, got %v", st.Values["Tags"])
	}
	if v, ok := st.Values["Photo"]; !ok || v != nil {
		t.Errorf("upload field should initialize to nil, got %v", v)
	}
	if v, ok := st.Values["PhotoDbId"]; !ok || v != nil {
		t.Errorf("DbId shadow key should initialize to nil, got %v", v)
	}
	if v, ok := st.Values["PhotoOriginalFilename"]; !ok || v != nil {
		t.Errorf("filename shadow key should initialize to nil, got %v", v)
	}
}

func TestLoadSchemaError(t *testing.T) {
	schemaSvc := &fakeSchemaSvc{err: errors.New("boom")}
	c := newTestController(t, schemaSvc, nil, nil)
	c.LoadSchema(context.Background())

	st := c.State()
	if st.SchemaError == "" {
		t.Error("expected schema error to be recorded")
	}
	if !st.Invalid {
		t.Error("controller without schema must be invalid")
	}
}

func TestLoadSchemaStaleResultDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	schemaSvc := &fakeSchemaSvc{
		fn: func(call int) ([]FieldDefinition, error) {
			if call == 1 {
				close(entered)
				<-release
				return []FieldDefinition{{Label: "Old", Kind: KindText}}, nil
			}
			return []FieldDefinition{{Label: "New", Kind: KindText}}, nil
		},
	}
	c := newTestController(t, schemaSvc, nil, nil)

	done := make(chan struct{})
	go func() {
		c.LoadSchema(context.Background())
		close(done)
	}()
	<-entered

	// A newer load finishes first; the older in-flight result must be dropped
	c.LoadSchema(context.Background())
	close(release)
	<-done

	schema := c.Schema()
	if len(schema) != 1 || schema[0].Label != "New" {
		t.Errorf("stale schema result overwrote newer load: %+v", schema)
	}
}

// ------------------------------------------------------------
// Value store
// ------------------------------------------------------------

func TestSetAndToggle(t *testing.T) {
	c := newTestController(t, nil, nil, nil)
	c.LoadSchema(context.Background())

	c.Set("Name", "Alice")
	c.Toggle("Tags", "red")
	c.Toggle("Tags", "blue")
	c.Toggle("Tags", "red")

	st := c.State()
	if st.Values["Name"] != "Alice" {
		t.Errorf("Name = %v, want Alice", st.Values["Name"])
	}
	tags := stringSlice(st.Values["Tags"])
	if len(tags) != 1 || tags[0] != "blue" {
		t.Errorf("Tags = %v, want [blue]", tags)
	}
}

func TestToggleAfterEditLoadDecodedSlice(t *testing.T) {
	c := newTestController(t, nil, nil, nil)
	c.LoadSchema(context.Background())

	// JSON decoding of a stored response yields []interface{}
	c.Set("Tags", []interface{}{"red", "green"})
	c.Toggle("Tags", "green")

	tags := stringSlice(c.State().Values["Tags"])
	if len(tags) != 1 || tags[0] != "red" {
		t.Errorf("Tags = %v, want [red]", tags)
	}
}

func TestResetIdempotent(t *testing.T) {
	c := newTestController(t, nil, nil, nil)
	c.LoadSchema(context.Background())

	c.Set("Name", "Alice")
	c.Toggle("Tags", "red")

	c.Reset()
	first := c.State().Values
	c.Reset()
	second := c.State().Values

	if len(first) != len(second) {
		t.Fatalf("reset not idempotent: %d vs %d keys", len(first), len(second))
	}
	if first["Name"] != "" || second["Name"] != "" {
		t.Error("reset should blank out text values")
	}
	if len(stringSlice(second["Tags"])) != 0 {
		t.Error("reset should empty checkbox values")
	}
}

// ------------------------------------------------------------
// Uploads
// ------------------------------------------------------------

func TestUploadSuccessSetsShadowKeys(t *testing.T) {
	taken := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	uploadSvc := &fakeUploadSvc{
		fn: func(file UploadFile, _ map[string]interface{}) (*AssetUploadResult, error) {
			return &AssetUploadResult{
				SecureURL:        "https://cdn/photo.jpg",
				ID:               42,
				OriginalFilename: file.Filename,
				TakenAt:          &taken,
			}, nil
		},
	}
	c := newTestController(t, nil, nil, uploadSvc)
	c.LoadSchema(context.Background())

	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("img"), Filename: "photo.jpg"})

	waitFor(t, func() bool { return !c.State().Uploading["Photo"] }, "upload to settle")

	st := c.State()
	if st.Values["Photo"] != "https://cdn/photo.jpg" {
		t.Errorf("Photo = %v", st.Values["Photo"])
	}
	if id, ok := asInt64(st.Values["PhotoDbId"]); !ok || id != 42 {
		t.Errorf("PhotoDbId = %v, want 42", st.Values["PhotoDbId"])
	}
	if st.Values["PhotoOriginalFilename"] != "photo.jpg" {
		t.Errorf("PhotoOriginalFilename = %v", st.Values["PhotoOriginalFilename"])
	}
	if got := c.GetTakenAt("Photo"); got == nil || *got != taken.Local().Format("2006-01-02 15:04:05") {
		t.Errorf("GetTakenAt = %v", got)
	}
}

func TestUploadFailurePreservesValue(t *testing.T) {
	taken := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	var fail atomic.Bool
	uploadSvc := &fakeUploadSvc{
		fn: func(file UploadFile, _ map[string]interface{}) (*AssetUploadResult, error) {
			if fail.Load() {
				return nil, errors.New("network down")
			}
			return &AssetUploadResult{SecureURL: "https://cdn/ok.jpg", ID: 7, OriginalFilename: file.Filename, TakenAt: &taken}, nil
		},
	}
	c := newTestController(t, nil, nil, uploadSvc)
	c.LoadSchema(context.Background())

	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("a"), Filename: "ok.jpg"})
	waitFor(t, func() bool { return c.State().Values["Photo"] == "https://cdn/ok.jpg" }, "first upload")

	fail.Store(true)
	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("b"), Filename: "bad.jpg"})
	waitFor(t, func() bool { return c.State().FieldErrors["Photo"] != "" }, "upload error")

	st := c.State()
	if st.Values["Photo"] != "https://cdn/ok.jpg" {
		t.Errorf("failed upload must not wipe previous value, got %v", st.Values["Photo"])
	}
	if id, _ := asInt64(st.Values["PhotoDbId"]); id != 7 {
		t.Errorf("failed upload must not wipe DbId, got %v", st.Values["PhotoDbId"])
	}
	if st.Uploading["Photo"] {
		t.Error("uploading flag must clear after failure")
	}
}

func TestClearFileWipesAssetKeys(t *testing.T) {
	taken := time.Now()
	uploadSvc := &fakeUploadSvc{
		fn: func(file UploadFile, _ map[string]interface{}) (*AssetUploadResult, error) {
			return &AssetUploadResult{SecureURL: "https://cdn/p.jpg", ID: 9, OriginalFilename: file.Filename, TakenAt: &taken}, nil
		},
	}
	c := newTestController(t, nil, nil, uploadSvc)
	c.LoadSchema(context.Background())

	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("x"), Filename: "p.jpg"})
	waitFor(t, func() bool { return c.State().Values["Photo"] == "https://cdn/p.jpg" }, "upload")

	c.OnFileChange("Photo", nil)

	st := c.State()
	if st.Values["Photo"] != nil || st.Values["PhotoDbId"] != nil || st.Values["PhotoOriginalFilename"] != nil {
		t.Errorf("clear must nil out value and both shadow keys: %v %v %v",
			st.Values["Photo"], st.Values["PhotoDbId"], st.Values["PhotoOriginalFilename"])
	}
	if c.GetTakenAt("Photo") != nil {
		t.Error("clear must drop capture time")
	}
	if st.Uploading["Photo"] {
		t.Error("clear must settle the uploading flag")
	}
}

func TestClearSupersedesInFlightUpload(t *testing.T) {
	release := make(chan struct{})
	uploadSvc := &fakeUploadSvc{
		fn: func(file UploadFile, _ map[string]interface{}) (*AssetUploadResult, error) {
			<-release
			return &AssetUploadResult{SecureURL: "https://cdn/late.jpg", ID: 3, OriginalFilename: file.Filename}, nil
		},
	}
	c := newTestController(t, nil, nil, uploadSvc)
	c.LoadSchema(context.Background())

	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("x"), Filename: "late.jpg"})
	c.OnFileChange("Photo", nil)
	close(release)

	// Give the stale goroutine a chance to settle and (wrongly) write back
	time.Sleep(50 * time.Millisecond)
	st := c.State()
	if st.Values["Photo"] != nil {
		t.Errorf("cleared field overwritten by superseded upload: %v", st.Values["Photo"])
	}
	if st.Uploading["Photo"] {
		t.Error("uploading flag must stay settled after clear")
	}
}

func TestLatestUploadWins(t *testing.T) {
	releaseFirst := make(chan struct{})
	uploadSvc := &fakeUploadSvc{
		fn: func(file UploadFile, _ map[string]interface{}) (*AssetUploadResult, error) {
			// Keyed by filename: goroutine scheduling does not follow issue order
			if file.Filename == "first.jpg" {
				<-releaseFirst
				return &AssetUploadResult{SecureURL: "https://cdn/first.jpg", ID: 1, OriginalFilename: file.Filename}, nil
			}
			return &AssetUploadResult{SecureURL: "https://cdn/second.jpg", ID: 2, OriginalFilename: file.Filename}, nil
		},
	}
	c := newTestController(t, nil, nil, uploadSvc)
	c.LoadSchema(context.Background())

	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("1"), Filename: "first.jpg"})
	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("2"), Filename: "second.jpg"})

	waitFor(t, func() bool { return c.State().Values["Photo"] == "https://cdn/second.jpg" }, "second upload")

	// The slower, superseded upload settles afterwards and must be discarded
	close(releaseFirst)
	time.Sleep(50 * time.Millisecond)

	st := c.State()
	if st.Values["Photo"] != "https://cdn/second.jpg" {
		t.Errorf("Photo = %v, want second upload to win", st.Values["Photo"])
	}
	if id, _ := asInt64(st.Values["PhotoDbId"]); id != 2 {
		t.Errorf("PhotoDbId = %v, want 2", st.Values["PhotoDbId"])
	}
}

func TestUploadReceivesValuesSnapshot(t *testing.T) {
	uploadSvc := &fakeUploadSvc{}
	c := newTestController(t, nil, nil, uploadSvc)
	c.LoadSchema(context.Background())

	c.Set("Name", "Carol")
	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("x"), Filename: "p.jpg"})
	waitFor(t, func() bool { return !c.State().Uploading["Photo"] }, "upload")

	uploadSvc.mu.Lock()
	snap := uploadSvc.lastSnap
	uploadSvc.mu.Unlock()
	if snap == nil || snap["Name"] != "Carol" {
		t.Errorf("upload service should receive current values snapshot, got %v", snap)
	}
}

// ------------------------------------------------------------
// Submission
// ------------------------------------------------------------

func TestSubmitInvalidMakesNoNetworkCall(t *testing.T) {
	respSvc := &fakeResponseSvc{}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())

	// Required Name left empty
	_, err := c.Submit(context.Background(), "")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if respSvc.creates() != 0 {
		t.Error("invalid submit must not reach the persistence service")
	}
	if c.State().SubmitError == "" {
		t.Error("submit error must be surfaced in state")
	}
}

func TestSubmitWhileUploadingRejected(t *testing.T) {
	release := make(chan struct{})
	uploadSvc := &fakeUploadSvc{
		fn: func(file UploadFile, _ map[string]interface{}) (*AssetUploadResult, error) {
			<-release
			return &AssetUploadResult{SecureURL: "u", ID: 1}, nil
		},
	}
	respSvc := &fakeResponseSvc{}
	c := newTestController(t, nil, respSvc, uploadSvc)
	c.LoadSchema(context.Background())

	c.Set("Name", "Alice")
	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("x"), Filename: "p.jpg"})

	_, err := c.Submit(context.Background(), "")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid while upload pending", err)
	}
	if respSvc.creates() != 0 {
		t.Error("pending upload must gate submission")
	}

	close(release)
	waitFor(t, func() bool { return !c.State().Uploading["Photo"] }, "upload")
	if _, err := c.Submit(context.Background(), ""); err != nil {
		t.Errorf("submit after upload settled: %v", err)
	}
}

func TestSubmitCreatePayloadIncludesDbId(t *testing.T) {
	respSvc := &fakeResponseSvc{}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())

	c.Set("Name", "Alice")
	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("x"), Filename: "p.jpg"})
	waitFor(t, func() bool { return !c.State().Uploading["Photo"] }, "upload")

	if _, err := c.Submit(context.Background(), ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	p := respSvc.payload()
	if p.FormID != "form-1" || p.UserID != "user-1" {
		t.Errorf("payload identity = %s/%s", p.FormID, p.UserID)
	}
	if p.Values["Name"] != "Alice" {
		t.Errorf("payload Name = %v", p.Values["Name"])
	}
	if id, ok := asInt64(p.Values["PhotoDbId"]); !ok || id != 1 {
		t.Errorf("payload must carry DbId shadow key, got %v", p.Values["PhotoDbId"])
	}
	if p.Values["PhotoOriginalFilename"] != "p.jpg" {
		t.Errorf("payload must carry filename shadow key, got %v", p.Values["PhotoOriginalFilename"])
	}
}

func TestSubmitUpdateUsesResponseID(t *testing.T) {
	respSvc := &fakeResponseSvc{}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())
	c.Set("Name", "Alice")

	record, err := c.Submit(context.Background(), "resp-77")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.ID != "resp-77" {
		t.Errorf("record.ID = %s, want resp-77", record.ID)
	}
	if respSvc.updateCalls != 1 || respSvc.createCalls != 0 {
		t.Errorf("update/create calls = %d/%d, want 1/0", respSvc.updateCalls, respSvc.createCalls)
	}
}

func TestSubmitFailurePreservesValues(t *testing.T) {
	respSvc := &fakeResponseSvc{
		createFn: func(p SubmitPayload) (*ResponseRecord, error) {
			return nil, errors.New("db down")
		},
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())
	c.Set("Name", "Alice")

	if _, err := c.Submit(context.Background(), ""); err == nil {
		t.Fatal("expected submit error")
	}

	st := c.State()
	if st.Values["Name"] != "Alice" {
		t.Error("failed submit must keep entered values for retry")
	}
	if st.SubmitError == "" {
		t.Error("submit error must be recorded")
	}
	if st.Submitting {
		t.Error("submitting flag must clear after failure")
	}
}

func TestSubmitSuccessResetsAndNotifies(t *testing.T) {
	var notified atomic.Bool
	schemaSvc := &fakeSchemaSvc{fields: testSchema()}
	respSvc := &fakeResponseSvc{}
	c := New("form-1", "user-1", Deps{
		Schema:          schemaSvc,
		Response:        respSvc,
		Upload:          &fakeUploadSvc{},
		Logger:          zap.NewNop(),
		OnSubmitSuccess: func() { notified.Store(true) },
	})
	c.LoadSchema(context.Background())
	c.Set("Name", "Alice")

	if _, err := c.Submit(context.Background(), ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	st := c.State()
	if st.Values["Name"] != "" {
		t.Error("successful submit must reset the value store")
	}
	if st.SubmitError != "" {
		t.Errorf("submit error should be empty, got %q", st.SubmitError)
	}
	if !notified.Load() {
		t.Error("success callback not invoked")
	}
}

func TestConcurrentSubmitRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	respSvc := &fakeResponseSvc{
		createFn: func(p SubmitPayload) (*ResponseRecord, error) {
			close(entered)
			<-release
			return &ResponseRecord{ID: "resp-1", Values: p.Values}, nil
		},
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())
	c.Set("Name", "Alice")

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "")
		done <- err
	}()
	<-entered

	if _, err := c.Submit(context.Background(), ""); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("second submit err = %v, want ErrSubmitInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first submit: %v", err)
	}
}

// ------------------------------------------------------------
// Edit loading
// ------------------------------------------------------------

func TestLoadForEditRequiresSchema(t *testing.T) {
	c := newTestController(t, nil, nil, nil)
	c.LoadForEdit(context.Background(), "resp-1")
	if c.State().LoadError == "" {
		t.Error("edit load before schema must record an error")
	}
}

func TestLoadForEditRehydratesValues(t *testing.T) {
	taken := time.Date(2023, 11, 5, 9, 0, 0, 0, time.UTC)
	respSvc := &fakeResponseSvc{
		fetchFn: func(id string) (*ResponseRecord, error) {
			return &ResponseRecord{
				ID:     id,
				FormID: "form-1",
				Values: map[string]interface{}{
					"Name":      "Bob",
					"Tags":      []interface{}{"red"},
					"Photo":     "https://cdn/old.jpg",
					"PhotoDbId": float64(7),
				},
				ImageUpload: &LinkedAsset{
					ID:               7,
					SecureURL:        "https://cdn/asset-7.jpg",
					OriginalFilename: "holiday.jpg",
					TakenAt:          &taken,
				},
			}, nil
		},
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())

	c.LoadForEdit(context.Background(), "resp-7")

	st := c.State()
	if st.LoadError != "" {
		t.Fatalf("load error: %s", st.LoadError)
	}
	if st.Values["Name"] != "Bob" {
		t.Errorf("Name = %v", st.Values["Name"])
	}
	if tags := stringSlice(st.Values["Tags"]); len(tags) != 1 || tags[0] != "red" {
		t.Errorf("Tags = %v", st.Values["Tags"])
	}
	// Linked asset snapshot wins over the raw stored URL
	if st.Values["Photo"] != "https://cdn/asset-7.jpg" {
		t.Errorf("Photo = %v", st.Values["Photo"])
	}
	if id, _ := asInt64(st.Values["PhotoDbId"]); id != 7 {
		t.Errorf("PhotoDbId = %v", st.Values["PhotoDbId"])
	}
	if st.Values["PhotoOriginalFilename"] != "holiday.jpg" {
		t.Errorf("PhotoOriginalFilename = %v", st.Values["PhotoOriginalFilename"])
	}
	if got := c.GetTakenAt("Photo"); got == nil {
		t.Error("capture time should be rehydrated from linked asset")
	}
}

func TestLoadForEditRoundTrip(t *testing.T) {
	var stored *ResponseRecord
	respSvc := &fakeResponseSvc{}
	respSvc.createFn = func(p SubmitPayload) (*ResponseRecord, error) {
		stored = &ResponseRecord{ID: "resp-1", FormID: p.FormID, UserID: p.UserID, Values: p.Values}
		return stored, nil
	}
	respSvc.fetchFn = func(id string) (*ResponseRecord, error) {
		return stored, nil
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())

	c.Set("Name", "Dana")
	c.Set("Visited", "2024-03-01")
	c.Toggle("Tags", "green")
	if _, err := c.Submit(context.Background(), ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	c.LoadForEdit(context.Background(), "resp-1")
	st := c.State()
	if st.Values["Name"] != "Dana" || st.Values["Visited"] != "2024-03-01" {
		t.Errorf("round trip lost plain values: %v", st.Values)
	}
	if tags := stringSlice(st.Values["Tags"]); len(tags) != 1 || tags[0] != "green" {
		t.Errorf("round trip lost checkbox values: %v", st.Values["Tags"])
	}
}

func TestLoadForEditFailureKeepsState(t *testing.T) {
	respSvc := &fakeResponseSvc{
		fetchFn: func(id string) (*ResponseRecord, error) {
			return nil, errors.New("timeout")
		},
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())
	c.Set("Name", "Eve")

	c.LoadForEdit(context.Background(), "resp-1")

	st := c.State()
	if st.LoadError == "" {
		t.Error("expected load error")
	}
	if st.Values["Name"] != "Eve" {
		t.Error("failed edit load must not touch current values")
	}
	if st.LoadingResponse {
		t.Error("loading flag must clear")
	}
}

func TestLoadForEditNotFound(t *testing.T) {
	c := newTestController(t, nil, &fakeResponseSvc{}, nil)
	c.LoadSchema(context.Background())
	c.LoadForEdit(context.Background(), "missing")
	if c.State().LoadError == "" {
		t.Error("missing record must record a load error")
	}
}

// ------------------------------------------------------------
// Permanent deletion
// ------------------------------------------------------------

func TestDeletePermanently(t *testing.T) {
	var deleted string
	respSvc := &fakeResponseSvc{
		deleteFn: func(id string) error {
			deleted = id
			return nil
		},
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())

	if err := c.DeletePermanently(context.Background(), "resp-9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != "resp-9" {
		t.Errorf("deleted id = %s", deleted)
	}
	if st := c.State(); st.Deleting || st.DeleteError != "" {
		t.Errorf("state after delete: deleting=%v err=%q", st.Deleting, st.DeleteError)
	}
}

func TestDeletePermanentlyFailure(t *testing.T) {
	respSvc := &fakeResponseSvc{
		deleteFn: func(id string) error { return errors.New("fk violation") },
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())

	if err := c.DeletePermanently(context.Background(), "resp-9"); err == nil {
		t.Fatal("delete should fail")
	}
	if c.State().DeleteError == "" {
		t.Error("delete error must be surfaced in state")
	}
}

func TestDeletePermanentlyNotFound(t *testing.T) {
	respSvc := &fakeResponseSvc{
		deleteFn: func(id string) error { return ErrResponseNotFound },
	}
	c := newTestController(t, nil, respSvc, nil)
	c.LoadSchema(context.Background())

	err := c.DeletePermanently(context.Background(), "missing")
	if !errors.Is(err, ErrResponseNotFound) {
		t.Fatalf("err = %v, want ErrResponseNotFound", err)
	}
	if c.State().Deleting {
		t.Error("deleting flag must settle")
	}
}

// ------------------------------------------------------------
// End to end scenario
// ------------------------------------------------------------

func TestFillUploadSubmitScenario(t *testing.T) {
	taken := time.Date(2024, 1, 15, 8, 45, 0, 0, time.UTC)
	uploadSvc := &fakeUploadSvc{
		fn: func(file UploadFile, _ map[string]interface{}) (*AssetUploadResult, error) {
			return &AssetUploadResult{
				SecureURL:        "https://cdn/scene.jpg",
				ID:               42,
				OriginalFilename: file.Filename,
				TakenAt:          &taken,
			}, nil
		},
	}
	respSvc := &fakeResponseSvc{}
	c := newTestController(t, nil, respSvc, uploadSvc)

	c.LoadSchema(context.Background())
	if !c.State().Invalid {
		t.Fatal("fresh form with required field must be invalid")
	}

	c.Set("Name", "Frank")
	c.OnFileChange("Photo", &UploadFile{Reader: strings.NewReader("jpeg"), Filename: "scene.jpg"})
	waitFor(t, func() bool { return !c.State().Uploading["Photo"] }, "upload")

	if c.State().Invalid {
		t.Fatal("form should be valid once required field filled and upload settled")
	}

	record, err := c.Submit(context.Background(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record == nil || record.ID == "" {
		t.Fatal("submit should return the stored record")
	}

	p := respSvc.payload()
	if id, _ := asInt64(p.Values["PhotoDbId"]); id != 42 {
		t.Errorf("persisted DbId = %v, want 42", p.Values["PhotoDbId"])
	}
	if p.Values["Photo"] != "https://cdn/scene.jpg" {
		t.Errorf("persisted Photo = %v", p.Values["Photo"])
	}

	// Submission resets the draft for the next entry
	st := c.State()
	if st.Values["Name"] != "" || st.Values["Photo"] != nil {
		t.Errorf("state not reset after submit: %v", st.Values)
	}
}
