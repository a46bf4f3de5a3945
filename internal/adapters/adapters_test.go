package adapters

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"loan_pipeline_backend/internal/adapters/storage"
	"loan_pipeline_backend/internal/conditions/domain"
	"loan_pipeline_backend/internal/events"
	"loan_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStorage struct {
	objects   map[string]bool
	uploads   []string
	rejectAll bool
}

func (f *fakeStorage) GenerateDownloadURL(context.Context, string, string) (*storage.PresignedURL, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) Exists(_ context.Context, bucket, fileKey string) (bool, error) {
	return f.objects[bucket+"/"+fileKey], nil
}

func (f *fakeStorage) DeleteObject(context.Context, string, string) error { return nil }

func (f *fakeStorage) UploadFile(_ context.Context, bucket, folder, fileName, _ string, reader io.Reader, _ int64) (string, error) {
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	key := folder + "/" + fileName
	f.uploads = append(f.uploads, bucket+"/"+key)
	return key, nil
}

func (f *fakeStorage) EnsureBucketExists(context.Context, string) error { return nil }

func (f *fakeStorage) ValidateContentType(contentType string) error {
	if f.rejectAll {
		return errors.New("content type " + contentType + " is not allowed")
	}
	return nil
}

func (f *fakeStorage) ValidateFileSize(int64) error { return nil }

func (f *fakeStorage) GetMaxFileSize() int64 { return 0 }

func TestLoanDocumentStoreScopesUploadsPerLead(t *testing.T) {
	store := &fakeStorage{}
	docs := NewLoanDocumentStore(store, "loan-documents")
	leadID, conditionID := uuid.New(), uuid.New()

	key, err := docs.UploadConditionDocument(context.Background(), leadID, conditionID, "w2.pdf", "application/pdf", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "leads/" + leadID.String() + "/conditions/" + conditionID.String() + "/w2.pdf"
	if key != want {
		t.Fatalf("expected key %q, got %q", want, key)
	}

	key, err = docs.UploadContractFile(context.Background(), leadID, "contract.pdf", "application/pdf", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "leads/"+leadID.String()+"/contract/contract.pdf" {
		t.Fatalf("unexpected contract key %q", key)
	}
	if len(store.uploads) != 2 || !strings.HasPrefix(store.uploads[0], "loan-documents/") {
		t.Fatalf("expected uploads into the loan documents bucket, got %v", store.uploads)
	}
}

func TestLoanDocumentStoreRejectsContentTypeAsValidation(t *testing.T) {
	docs := NewLoanDocumentStore(&fakeStorage{rejectAll: true}, "loan-documents")

	_, err := docs.UploadContractFile(context.Background(), uuid.New(), "clip.mp4", "video/mp4", strings.NewReader("x"), 1)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoanDocumentStoreExistsUsesBucket(t *testing.T) {
	docs := NewLoanDocumentStore(&fakeStorage{objects: map[string]bool{"loan-documents/leads/a/w2.pdf": true}}, "loan-documents")

	ok, err := docs.Exists(context.Background(), "leads/a/w2.pdf")
	if err != nil || !ok {
		t.Fatalf("expected document to exist, got %v %v", ok, err)
	}
	ok, _ = docs.Exists(context.Background(), "leads/a/missing.pdf")
	if ok {
		t.Fatal("expected missing document to be reported absent")
	}
}

type captureBus struct {
	published []events.Event
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *captureBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func TestLeadChangedPublisherPublishesRefreshSignal(t *testing.T) {
	bus := &captureBus{}
	leadID := uuid.New()

	NewLeadChangedPublisher(bus).OnLeadChanged(context.Background(), leadID, "stage_changed")

	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	ev, ok := bus.published[0].(events.LeadChanged)
	if !ok || ev.LeadID != leadID || ev.Reason != "stage_changed" {
		t.Fatalf("unexpected event %+v", bus.published[0])
	}
}

type fakeConditionSource struct {
	items []domain.Condition
}

func (f fakeConditionSource) ListForLead(context.Context, uuid.UUID) ([]domain.Condition, error) {
	return f.items, nil
}

func TestLeadConditionsReaderFormatsDueDate(t *testing.T) {
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	reader := NewLeadConditionsReader(fakeConditionSource{items: []domain.Condition{
		{ID: uuid.New(), Title: "Paystubs", Status: domain.StatusRequested, Priority: domain.PriorityHigh, DueDate: &due},
	}})

	items, err := reader.ListConditionSummaries(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].DueDate == nil || *items[0].DueDate != "2026-04-01" {
		t.Fatalf("unexpected summaries %+v", items)
	}
	if items[0].Status != "requested" || items[0].Priority != "high" {
		t.Fatalf("expected status and priority strings, got %+v", items[0])
	}
}
