package services

import (
	"bytes"
	"errors"
	"log"
	"testing"
	"time"

	"edutest/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueIfPassedIdempotent(t *testing.T) {
	db := newTestDB(t)
	cs := NewCertificateService(db, nil, quietLogger())

	first, err := cs.IssueIfPassed(7, 3, 5, 100, 92.5)
	require.NoError(t, err)
	assert.Equal(t, uint(7), first.UserID)
	assert.Equal(t, uint(3), first.CourseID)
	assert.Equal(t, uint(100), first.AttemptID)
	assert.InDelta(t, 92.5, first.Score, 0.001)
	assert.NotEmpty(t, first.Code)

	// repeat trigger referencing a different passing attempt yields the
	// same record, unchanged
	second, err := cs.IssueIfPassed(7, 3, 5, 101, 100.0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, uint(100), second.AttemptID)
	assert.InDelta(t, 92.5, second.Score, 0.001)

	var count int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// same user, different course gets its own certificate
	other, err := cs.IssueIfPassed(7, 4, 6, 102, 88.0)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.NotEqual(t, first.Code, other.Code)
}

func TestCertificateCodeFormat(t *testing.T) {
	issued := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	code := newCertificateCode(3, 7, issued)
	assert.Regexp(t, `^CERT-3-7-20250615-[0-9A-F]{8}$`, code)
}

type failingRenderer struct{ calls int }

func (r *failingRenderer) Render(cert *models.Certificate) error {
	r.calls++
	return errors.New("image backend unreachable")
}

func TestRenderFailureDoesNotBlockIssuance(t *testing.T) {
	db := newTestDB(t)
	var buf bytes.Buffer
	renderer := &failingRenderer{}
	cs := NewCertificateService(db, renderer, log.New(&buf, "", 0))

	cert, err := cs.IssueIfPassed(1, 2, 3, 4, 95)
	require.NoError(t, err)
	assert.NotZero(t, cert.ID)
	assert.Equal(t, 1, renderer.calls)
	assert.Contains(t, buf.String(), "artifact rendering failed")

	// the record survived the render failure
	var stored models.Certificate
	require.NoError(t, db.First(&stored, cert.ID).Error)

	// renderer runs only for the winning insert, never on repeats
	_, err = cs.IssueIfPassed(1, 2, 3, 5, 99)
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.calls)
}

func TestVerifyCode(t *testing.T) {
	db := newTestDB(t)
	cs := NewCertificateService(db, nil, quietLogger())

	issued, err := cs.IssueIfPassed(1, 2, 3, 4, 90)
	require.NoError(t, err)

	found, err := cs.VerifyCode(issued.Code)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, found.ID)

	_, err = cs.VerifyCode("CERT-0-0-19700101-DEADBEEF")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUserCertificates(t *testing.T) {
	db := newTestDB(t)
	cs := NewCertificateService(db, nil, quietLogger())

	_, err := cs.IssueIfPassed(1, 10, 3, 4, 90)
	require.NoError(t, err)
	_, err = cs.IssueIfPassed(1, 11, 5, 6, 85)
	require.NoError(t, err)
	_, err = cs.IssueIfPassed(2, 10, 3, 7, 99)
	require.NoError(t, err)

	mine, err := cs.ListUserCertificates(1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
