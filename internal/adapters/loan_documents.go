package adapters

import (
	"context"
	"fmt"
	"io"

	"loan_pipeline_backend/internal/adapters/storage"
	conditionsvc "loan_pipeline_backend/internal/conditions/service"
	leadsvc "loan_pipeline_backend/internal/leads/service"
	"loan_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// LoanDocumentStore keeps condition documents and contract files in the loan
// documents bucket, one folder per lead.
type LoanDocumentStore struct {
	storage storage.StorageService
	bucket  string
}

// NewLoanDocumentStore creates a new loan document store adapter.
func NewLoanDocumentStore(storageSvc storage.StorageService, bucket string) *LoanDocumentStore {
	return &LoanDocumentStore{storage: storageSvc, bucket: bucket}
}

// Exists reports whether documentID names a stored object.
func (s *LoanDocumentStore) Exists(ctx context.Context, documentID string) (bool, error) {
	return s.storage.Exists(ctx, s.bucket, documentID)
}

// UploadConditionDocument stores a file under the condition's folder.
func (s *LoanDocumentStore) UploadConditionDocument(ctx context.Context, leadID, conditionID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	folder := fmt.Sprintf("leads/%s/conditions/%s", leadID, conditionID)
	return s.upload(ctx, folder, fileName, contentType, reader, size)
}

// UploadContractFile stores a signed contract under the lead's folder.
func (s *LoanDocumentStore) UploadContractFile(ctx context.Context, leadID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	folder := fmt.Sprintf("leads/%s/contract", leadID)
	return s.upload(ctx, folder, fileName, contentType, reader, size)
}

func (s *LoanDocumentStore) upload(ctx context.Context, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	if err := s.storage.ValidateContentType(contentType); err != nil {
		return "", apperr.Validation(err.Error())
	}
	if err := s.storage.ValidateFileSize(size); err != nil {
		return "", apperr.Validation(err.Error())
	}
	return s.storage.UploadFile(ctx, s.bucket, folder, fileName, contentType, reader, size)
}

// Compile-time checks.
var (
	_ conditionsvc.DocumentStore = (*LoanDocumentStore)(nil)
	_ leadsvc.ContractStore      = (*LoanDocumentStore)(nil)
)
