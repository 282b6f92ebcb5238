package linking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledgerlens/internal/domain"
	"ledgerlens/mocks"
)

func TestService_Link_RejectsSelfLink(t *testing.T) {
	svc := NewService(new(mocks.MockInvoiceRepo), new(mocks.MockDuplicateLinkRepo))

	id := uuid.New()
	err := svc.Link(context.Background(), id, id)
	assert.ErrorIs(t, err, domain.ErrSelfLink)
}

func TestService_Link_PropagatesVerification(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	links := new(mocks.MockDuplicateLinkRepo)

	originalID := uuid.New()
	duplicateID := uuid.New()
	original := &domain.Invoice{ID: originalID, VerificationStatus: domain.VerificationStatusVerified}
	duplicate := &domain.Invoice{ID: duplicateID, VerificationStatus: domain.VerificationStatusPending}

	invoices.On("GetByID", mock.Anything, originalID).Return(original, nil)
	invoices.On("GetByID", mock.Anything, duplicateID).Return(duplicate, nil)
	links.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.DuplicateLink) bool {
		return l.DuplicateID == duplicateID && l.OriginalID == originalID
	})).Return(nil)
	invoices.On("Update", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.ID == duplicateID && inv.VerificationStatus == domain.VerificationStatusVerified
	})).Return(nil)

	svc := NewService(invoices, links)
	require.NoError(t, svc.Link(context.Background(), duplicateID, originalID))
	invoices.AssertExpectations(t)
	links.AssertExpectations(t)
}

func TestService_Link_AlreadyLinkedIsNoOp(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	links := new(mocks.MockDuplicateLinkRepo)

	originalID := uuid.New()
	duplicateID := uuid.New()
	invoices.On("GetByID", mock.Anything, originalID).
		Return(&domain.Invoice{ID: originalID}, nil)
	invoices.On("GetByID", mock.Anything, duplicateID).
		Return(&domain.Invoice{ID: duplicateID}, nil)
	links.On("Create", mock.Anything, mock.Anything).Return(domain.ErrAlreadyLinked)

	svc := NewService(invoices, links)
	assert.NoError(t, svc.Link(context.Background(), duplicateID, originalID))
	invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_IsDuplicate(t *testing.T) {
	links := new(mocks.MockDuplicateLinkRepo)
	linkedID := uuid.New()
	unlinkedID := uuid.New()

	links.On("GetByDuplicate", mock.Anything, linkedID).
		Return(&domain.DuplicateLink{DuplicateID: linkedID}, nil)
	links.On("GetByDuplicate", mock.Anything, unlinkedID).
		Return(nil, domain.ErrNotFound)

	svc := NewService(new(mocks.MockInvoiceRepo), links)

	linked, err := svc.IsDuplicate(context.Background(), linkedID)
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = svc.IsDuplicate(context.Background(), unlinkedID)
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestService_Original(t *testing.T) {
	invoices := new(mocks.MockInvoiceRepo)
	links := new(mocks.MockDuplicateLinkRepo)

	originalID := uuid.New()
	duplicateID := uuid.New()
	links.On("GetByDuplicate", mock.Anything, duplicateID).
		Return(&domain.DuplicateLink{DuplicateID: duplicateID, OriginalID: originalID}, nil)
	invoices.On("GetByID", mock.Anything, originalID).
		Return(&domain.Invoice{ID: originalID}, nil)

	svc := NewService(invoices, links)

	original, err := svc.Original(context.Background(), duplicateID)
	require.NoError(t, err)
	assert.Equal(t, originalID, original.ID)

	links.On("GetByDuplicate", mock.Anything, mock.Anything).
		Return(nil, domain.ErrNotFound)
	_, err = svc.Original(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
