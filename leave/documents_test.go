package leave_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

// mockStorage is a DocumentStorage that can also remove uploads.
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, file leave.File, destination string) (leave.UploadResult, error) {
	args := m.Called(ctx, file.Name, destination)
	if file.Body != nil {
		io.Copy(io.Discard, file.Body)
	}
	return args.Get(0).(leave.UploadResult), args.Error(1)
}

func (m *mockStorage) Remove(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func destinationFor(name string) interface{} {
	return mock.MatchedBy(func(dest string) bool {
		return strings.HasPrefix(dest, "leaves/acme/emp-001/") && strings.HasSuffix(dest, "-"+name)
	})
}

func sickNote(name string) leave.File {
	return leave.File{Name: name, ContentType: "application/pdf", Body: strings.NewReader("%PDF")}
}

func TestApplyLeave_UploadsFiles(t *testing.T) {
	// GIVEN: A three day sick leave with a certificate attached
	// WHEN: Applying
	// THEN: The file is uploaded under the employee's folder and recorded

	f := newFixture(t)
	storage := new(mockStorage)
	f.leaves.Documents = storage
	storage.On("Upload", mock.Anything, "certificate.pdf", destinationFor("certificate.pdf")).
		Return(leave.UploadResult{URL: "https://files.test/certificate.pdf"}, nil).Once()

	in := input("SL", "2024-06-10", "2024-06-12")
	in.Files = []leave.File{sickNote("certificate.pdf")}
	req := f.apply(t, in)

	require.Len(t, req.Documents, 1)
	assert.Equal(t, leave.Document{Name: "certificate.pdf", URL: "https://files.test/certificate.pdf"}, req.Documents[0])
	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestApplyLeave_RejectedApplicationDiscardsUploads(t *testing.T) {
	// GIVEN: An application that will overlap an existing request
	// WHEN: It is submitted with a file
	// THEN: The uploaded file is removed again

	f := newFixture(t)
	f.apply(t, input("EL", "2024-06-10", "2024-06-11"))

	storage := new(mockStorage)
	f.leaves.Documents = storage
	storage.On("Upload", mock.Anything, "note.pdf", destinationFor("note.pdf")).
		Return(leave.UploadResult{URL: "https://files.test/note.pdf"}, nil).Once()
	storage.On("Remove", mock.Anything, "https://files.test/note.pdf").Return(nil).Once()

	in := input("SL", "2024-06-10", "2024-06-12")
	in.Files = []leave.File{sickNote("note.pdf")}
	_, err := f.leaves.ApplyLeave(context.Background(), in)
	assert.ErrorIs(t, err, leave.ErrOverlap)
	storage.AssertExpectations(t)
}

func TestApplyLeave_UploadFailure(t *testing.T) {
	// GIVEN: Storage accepts the first file and fails on the second
	// WHEN: Applying with both
	// THEN: The first upload is discarded and nothing is recorded

	f := newFixture(t)
	storage := new(mockStorage)
	f.leaves.Documents = storage
	storage.On("Upload", mock.Anything, "a.pdf", mock.Anything).
		Return(leave.UploadResult{URL: "https://files.test/a.pdf"}, nil).Once()
	storage.On("Upload", mock.Anything, "b.pdf", mock.Anything).
		Return(leave.UploadResult{}, errors.New("bucket unavailable")).Once()
	storage.On("Remove", mock.Anything, "https://files.test/a.pdf").Return(nil).Once()

	in := input("SL", "2024-06-10", "2024-06-12")
	in.Files = []leave.File{sickNote("a.pdf"), sickNote("b.pdf")}
	_, err := f.leaves.ApplyLeave(context.Background(), in)

	var ue *leave.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "b.pdf", ue.FileName)
	assert.ErrorIs(t, err, leave.ErrUpload)
	assert.Contains(t, err.Error(), "bucket unavailable")
	storage.AssertExpectations(t)

	recorded, err := f.leaves.ListCompanyRequests(context.Background(), company)
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestApplyLeave_NoPolicySkipsUpload(t *testing.T) {
	f := newFixture(t)
	storage := new(mockStorage)
	f.leaves.Documents = storage

	in := input("SL", "2024-06-10", "2024-06-12")
	in.CompanyID = "globex"
	in.Files = []leave.File{sickNote("note.pdf")}
	_, err := f.leaves.ApplyLeave(context.Background(), in)

	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}
